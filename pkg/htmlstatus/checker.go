// Package htmlstatus normalizes server-rendered status pages that expose
// no JSON API. It recognizes the markup conventions of hosted status
// pages: a page-status banner, component containers and unresolved
// incident blocks.
package htmlstatus

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/net/html"

	"github.com/statuswatch/statuswatch/pkg/log"
	"github.com/statuswatch/statuswatch/pkg/status"
	"github.com/statuswatch/statuswatch/pkg/types"
)

const (
	userAgent      = "statuswatch/1.0"
	requestTimeout = 30 * time.Second
)

// Checker polls HTML-rendered status pages.
type Checker struct {
	client      *http.Client
	logger      zerolog.Logger
	testMarkers []string
}

// Option configures a Checker.
type Option func(*Checker)

// WithTestMarkers overrides the synthetic-incident name prefixes dropped
// before severity and details derivation.
func WithTestMarkers(prefixes []string) Option {
	return func(c *Checker) { c.testMarkers = prefixes }
}

// NewChecker creates a checker with the default HTTP client.
func NewChecker(opts ...Option) *Checker {
	return NewCheckerWithClient(&http.Client{Timeout: requestTimeout}, opts...)
}

// NewCheckerWithClient creates a checker with a custom HTTP client.
func NewCheckerWithClient(client *http.Client, opts ...Option) *Checker {
	c := &Checker{
		client:      client,
		logger:      log.WithComponent("htmlstatus"),
		testMarkers: status.DefaultTestMarkers,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Check fetches and parses the page. Failures come back as a result with
// a nil status, same contract as the JSON checker.
func (c *Checker) Check(ctx context.Context, svc types.Service) types.PollResult {
	start := time.Now()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, svc.URL, nil)
	if err != nil {
		return failureResult("request_error", "Request Error", err)
	}
	req.Header.Set("User-Agent", userAgent)

	resp, err := c.client.Do(req)
	if err != nil {
		category, text := categorize(err)
		c.logger.Warn().Str("service", svc.Key).Str("category", category).Err(err).Msg("check failed")
		return failureResult(category, text, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		err := fmt.Errorf("unexpected HTTP status %d", resp.StatusCode)
		category := "http_4xx_error"
		if resp.StatusCode >= 500 {
			category = "http_5xx_error"
		}
		c.logger.Warn().Str("service", svc.Key).Str("category", category).Err(err).Msg("check failed")
		return failureResult(category, "HTTP Error", err)
	}

	body, err := io.ReadAll(resp.Body)
	responseTime := time.Since(start).Seconds()
	if err != nil {
		return failureResult("read_error", "Read Error", err)
	}

	page, err := parsePage(bytes.NewReader(body))
	if err != nil {
		c.logger.Error().Str("service", svc.Key).Err(err).Msg("unparseable HTML")
		return failureResult("parse_error", "Parse Error", err)
	}
	if len(page.components) == 0 && page.indicator == "" {
		// A page we cannot recognize is a failed check, not an outage.
		err := errors.New("no recognizable status markup in page")
		c.logger.Warn().Str("service", svc.Key).Err(err).Msg("check failed")
		return failureResult("parse_error", "Parse Error", err)
	}

	return c.derive(svc, page, responseTime)
}

// parsed content of one page
type parsedPage struct {
	indicator  string
	banner     string
	components []types.Component
	incidents  []types.Incident
}

func (c *Checker) derive(svc types.Service, page parsedPage, responseTime float64) types.PollResult {
	indicator := page.indicator
	if indicator == "" {
		indicator = "unknown"
	}
	description := page.banner
	if description == "" {
		description = "No description available"
	}

	var nonOperational []string
	for _, comp := range page.components {
		if comp.Status != "operational" {
			nonOperational = append(nonOperational, comp.Name)
		}
	}

	incidents := status.FilterTestIncidents(page.incidents, c.testMarkers)

	if len(incidents) > 0 {
		names := make([]string, 0, len(incidents))
		for _, inc := range incidents {
			names = append(names, inc.Name)
		}
		description = strings.Join(names, "; ")
		if highest := status.HighestImpact(incidents); highest != "none" {
			indicator = highest
		}
	} else if len(nonOperational) > 0 {
		indicator = "minor"
		description = "Non-operational components: " + strings.Join(nonOperational, "; ")
	}

	return types.PollResult{
		Status:       types.StatusPtr(status.IndicatorValue(indicator)),
		ResponseTime: responseTime,
		RawStatus:    strings.ToLower(indicator),
		StatusText:   status.IndicatorText(indicator),
		Details:      description,
		Success:      true,
		Incidents:    incidents,
		Maintenances: []types.Maintenance{},
		Components:   page.components,
	}
}

func parsePage(r io.Reader) (parsedPage, error) {
	root, err := html.Parse(r)
	if err != nil {
		return parsedPage{}, err
	}

	var page parsedPage
	walk(root, func(n *html.Node) {
		if n.Type != html.ElementNode {
			return
		}
		classes := nodeClasses(n)
		switch {
		case hasClass(classes, "page-status"):
			page.indicator = statusClassToken(classes)
			page.banner = strings.TrimSpace(nodeText(n))
		case hasClass(classes, "component-inner-container"):
			if comp, ok := parseComponent(n); ok {
				page.components = append(page.components, comp)
			}
		case hasClass(classes, "unresolved-incident"):
			if inc, ok := parseIncident(n, classes); ok {
				page.incidents = append(page.incidents, inc)
			}
		}
	})
	return page, nil
}

func parseComponent(n *html.Node) (types.Component, bool) {
	name := strings.TrimSpace(textOfClass(n, "name"))
	if name == "" {
		return types.Component{}, false
	}
	raw := strings.TrimSpace(textOfClass(n, "component-status"))
	// "Partial Outage" -> "partial_outage"
	st := strings.ReplaceAll(strings.ToLower(raw), " ", "_")
	if st == "" {
		st = "unknown"
	}
	return types.Component{
		Name:        name,
		Status:      st,
		StatusValue: status.ComponentValue(st),
	}, true
}

func parseIncident(n *html.Node, classes []string) (types.Incident, bool) {
	name := strings.TrimSpace(textOfClass(n, "incident-title"))
	if name == "" {
		name = strings.TrimSpace(textOfClass(n, "actual-title"))
	}
	if name == "" {
		return types.Incident{}, false
	}

	impact := "unknown"
	for _, cls := range classes {
		if rest, ok := strings.CutPrefix(cls, "impact-"); ok {
			impact = rest
		}
	}

	shortlink := ""
	walk(n, func(child *html.Node) {
		if shortlink != "" || child.Type != html.ElementNode || child.Data != "a" {
			return
		}
		if href := attr(child, "href"); href != "" {
			shortlink = href
		}
	})

	// HTML pages expose no stable incident id; the title stands in,
	// which is stable enough for the id-set comparison upstream.
	return types.Incident{
		ID:                 name,
		Name:               name,
		Status:             "investigating",
		Impact:             impact,
		StartedAt:          "unknown",
		Shortlink:          shortlink,
		AffectedComponents: []string{},
	}, true
}

// walk visits every node under n in document order.
func walk(n *html.Node, visit func(*html.Node)) {
	visit(n)
	for child := n.FirstChild; child != nil; child = child.NextSibling {
		walk(child, visit)
	}
}

func nodeClasses(n *html.Node) []string {
	return strings.Fields(attr(n, "class"))
}

func attr(n *html.Node, key string) string {
	for _, a := range n.Attr {
		if a.Key == key {
			return a.Val
		}
	}
	return ""
}

func hasClass(classes []string, want string) bool {
	for _, cls := range classes {
		if cls == want {
			return true
		}
	}
	return false
}

// statusClassToken extracts the indicator from banner classes like
// "page-status status-none".
func statusClassToken(classes []string) string {
	for _, cls := range classes {
		if rest, ok := strings.CutPrefix(cls, "status-"); ok {
			return rest
		}
	}
	return ""
}

func textOfClass(n *html.Node, class string) string {
	var out string
	walk(n, func(child *html.Node) {
		if out != "" || child.Type != html.ElementNode {
			return
		}
		if hasClass(nodeClasses(child), class) {
			out = nodeText(child)
		}
	})
	return out
}

func nodeText(n *html.Node) string {
	var sb strings.Builder
	walk(n, func(child *html.Node) {
		if child.Type == html.TextNode {
			sb.WriteString(child.Data)
		}
	})
	return strings.Join(strings.Fields(sb.String()), " ")
}

func categorize(err error) (category, text string) {
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return "timeout", "Timeout"
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return "timeout", "Timeout"
	}
	return "connection_error", "Connection Error"
}

func failureResult(category, text string, err error) types.PollResult {
	return types.PollResult{
		Status:       nil,
		ResponseTime: 0,
		RawStatus:    category,
		StatusText:   text,
		Details:      err.Error(),
		Success:      false,
		Error:        err.Error(),
		Incidents:    []types.Incident{},
		Maintenances: []types.Maintenance{},
		Components:   []types.Component{},
	}
}
