// Package statuspage fetches and normalizes StatusPage.io summary
// endpoints into poll results.
package statuspage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/sethvargo/go-retry"

	"github.com/statuswatch/statuswatch/pkg/log"
	"github.com/statuswatch/statuswatch/pkg/status"
	"github.com/statuswatch/statuswatch/pkg/types"
)

const (
	userAgent      = "statuswatch/1.0"
	requestTimeout = 15 * time.Second
	maxRetries     = 3
	retryBase      = 500 * time.Millisecond
)

// terminal lifecycle stages; anything else with no resolved_at is active
var (
	terminalIncidentStatuses    = map[string]struct{}{"resolved": {}, "completed": {}, "postmortem": {}}
	terminalMaintenanceStatuses = map[string]struct{}{"completed": {}, "cancelled": {}}
)

// Checker polls StatusPage.io style JSON summary endpoints.
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
		logger:      log.WithComponent("statuspage"),
		testMarkers: status.DefaultTestMarkers,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// wire format of /api/v2/summary.json
type summary struct {
	Status struct {
		Indicator   string `json:"indicator"`
		Description string `json:"description"`
	} `json:"status"`
	Components            []apiComponent   `json:"components"`
	Incidents             []apiIncident    `json:"incidents"`
	ScheduledMaintenances []apiMaintenance `json:"scheduled_maintenances"`
}

type apiComponent struct {
	Name   string `json:"name"`
	Status string `json:"status"`
}

type apiIncident struct {
	ID         string         `json:"id"`
	Name       string         `json:"name"`
	Status     string         `json:"status"`
	Impact     string         `json:"impact"`
	CreatedAt  string         `json:"created_at"`
	StartedAt  string         `json:"started_at"`
	UpdatedAt  string         `json:"updated_at"`
	ResolvedAt string         `json:"resolved_at"`
	Shortlink  string         `json:"shortlink"`
	Components []apiComponent `json:"components"`
}

type apiMaintenance struct {
	ID             string         `json:"id"`
	Name           string         `json:"name"`
	Status         string         `json:"status"`
	CreatedAt      string         `json:"created_at"`
	ScheduledFor   string         `json:"scheduled_for"`
	ScheduledUntil string         `json:"scheduled_until"`
	ResolvedAt     string         `json:"resolved_at"`
	Shortlink      string         `json:"shortlink"`
	Components     []apiComponent `json:"components"`
}

// Check fetches the service's summary endpoint and derives a normalized
// poll result. Check never returns an error; failures come back as a
// result with a nil status and a categorized raw status.
func (c *Checker) Check(ctx context.Context, svc types.Service) types.PollResult {
	start := time.Now()
	body, err := c.fetch(ctx, svc.URL)
	responseTime := time.Since(start).Seconds()

	if err != nil {
		category, text := categorize(err)
		c.logger.Warn().
			Str("service", svc.Key).
			Str("category", category).
			Err(err).
			Msg("check failed")
		return failureResult(category, text, err)
	}

	var sum summary
	if err := json.Unmarshal(body, &sum); err != nil {
		c.logger.Error().Str("service", svc.Key).Err(err).Msg("invalid JSON response")
		return failureResult("json_error", "Parse Error", err)
	}

	return c.derive(svc, sum, responseTime)
}

// fetch performs the GET with retry on 5xx and transport errors.
func (c *Checker) fetch(ctx context.Context, url string) ([]byte, error) {
	var body []byte

	backoff := retry.WithMaxRetries(maxRetries, retry.NewExponential(retryBase))
	err := retry.Do(ctx, backoff, func(ctx context.Context) error {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
		if err != nil {
			return err
		}
		req.Header.Set("User-Agent", userAgent)

		resp, err := c.client.Do(req)
		if err != nil {
			return retry.RetryableError(err)
		}
		defer resp.Body.Close()

		if resp.StatusCode >= 500 {
			return retry.RetryableError(&httpError{code: resp.StatusCode})
		}
		if resp.StatusCode >= 400 {
			return &httpError{code: resp.StatusCode}
		}

		body, err = io.ReadAll(resp.Body)
		if err != nil {
			return retry.RetryableError(err)
		}
		return nil
	})
	return body, err
}

// derive turns a parsed summary into a poll result, applying the active
// filters, severity override and component fallback rules.
func (c *Checker) derive(svc types.Service, sum summary, responseTime float64) types.PollResult {
	indicator := sum.Status.Indicator
	if indicator == "" {
		indicator = "unknown"
	}
	description := sum.Status.Description
	if description == "" {
		description = "No description available"
	}

	components := make([]types.Component, 0, len(sum.Components))
	var nonOperational []string
	for _, comp := range sum.Components {
		name := comp.Name
		if name == "" {
			name = "Unknown"
		}
		st := strings.ToLower(comp.Status)
		if st == "" {
			st = "unknown"
		}
		components = append(components, types.Component{
			Name:        name,
			Status:      st,
			StatusValue: status.ComponentValue(st),
		})
		if st != "operational" {
			nonOperational = append(nonOperational, name)
		}
	}

	// Synthetic test incidents must not reach severity or details
	// derivation; a vendor's [TEST] critical would flip the status gauge.
	incidents := status.FilterTestIncidents(activeIncidents(svc.URL, sum.Incidents), c.testMarkers)
	maintenances := activeMaintenances(sum.ScheduledMaintenances)

	if len(incidents) > 0 {
		details := make([]string, 0, len(incidents))
		for _, inc := range incidents {
			detail := inc.Name
			if len(inc.AffectedComponents) > 0 {
				detail = fmt.Sprintf("%s (affects: %s)", detail, strings.Join(inc.AffectedComponents, ", "))
			}
			if inc.Shortlink != "" {
				detail = fmt.Sprintf("%s - %s", detail, inc.Shortlink)
			}
			details = append(details, detail)
		}
		description = strings.Join(details, "; ")

		// The page-level indicator can lag behind its own incident list;
		// the worst active impact wins.
		if highest := status.HighestImpact(incidents); highest != "none" {
			indicator = highest
		}
	} else if len(nonOperational) > 0 {
		// Components are down but the vendor has not filed an incident
		// yet. Synthesize a minor signal so dashboards still notice.
		indicator = "minor"
		description = "Non-operational components: " + strings.Join(nonOperational, "; ")
		c.logger.Warn().
			Str("service", svc.Key).
			Int("count", len(nonOperational)).
			Msg("non-operational components without active incidents")
	}

	return types.PollResult{
		Status:       types.StatusPtr(status.IndicatorValue(indicator)),
		ResponseTime: responseTime,
		RawStatus:    strings.ToLower(indicator),
		StatusText:   status.IndicatorText(indicator),
		Details:      description,
		Success:      true,
		Incidents:    incidents,
		Maintenances: maintenances,
		Components:   components,
	}
}

func activeIncidents(serviceURL string, raw []apiIncident) []types.Incident {
	baseURL := strings.TrimSuffix(strings.TrimSuffix(serviceURL, "/api/v2/summary.json"), "/")

	seen := make(map[string]struct{}, len(raw))
	out := make([]types.Incident, 0, len(raw))
	for _, inc := range raw {
		st := strings.ToLower(inc.Status)
		if _, terminal := terminalIncidentStatuses[st]; terminal || inc.ResolvedAt != "" {
			continue
		}
		id := inc.ID
		if id == "" {
			id = "unknown"
		}
		if _, dup := seen[id]; dup {
			continue
		}
		seen[id] = struct{}{}

		shortlink := inc.Shortlink
		if shortlink == "" && baseURL != "" && id != "unknown" {
			shortlink = fmt.Sprintf("%s/incidents/%s", baseURL, id)
		}
		startedAt := inc.StartedAt
		if startedAt == "" {
			startedAt = inc.CreatedAt
		}

		affected := make([]string, 0, len(inc.Components))
		for _, comp := range inc.Components {
			affected = append(affected, comp.Name)
		}

		name := inc.Name
		if name == "" {
			name = "Unnamed incident"
		}
		impact := strings.ToLower(inc.Impact)
		if impact == "" {
			impact = "unknown"
		}

		out = append(out, types.Incident{
			ID:                 id,
			Name:               name,
			Status:             st,
			Impact:             impact,
			StartedAt:          startedAt,
			UpdatedAt:          inc.UpdatedAt,
			Shortlink:          shortlink,
			AffectedComponents: affected,
		})
	}
	return out
}

func activeMaintenances(raw []apiMaintenance) []types.Maintenance {
	seen := make(map[string]struct{}, len(raw))
	out := make([]types.Maintenance, 0, len(raw))
	for _, m := range raw {
		st := strings.ToLower(m.Status)
		if _, terminal := terminalMaintenanceStatuses[st]; terminal || m.ResolvedAt != "" {
			continue
		}
		id := m.ID
		if id == "" {
			id = "unknown"
		}
		if _, dup := seen[id]; dup {
			continue
		}
		seen[id] = struct{}{}

		scheduledStart := m.ScheduledFor
		if scheduledStart == "" {
			scheduledStart = m.CreatedAt
		}
		scheduledEnd := m.ScheduledUntil
		if scheduledEnd == "" {
			scheduledEnd = m.ScheduledFor
		}

		affected := make([]string, 0, len(m.Components))
		for _, comp := range m.Components {
			affected = append(affected, comp.Name)
		}

		name := m.Name
		if name == "" {
			name = "Unnamed maintenance"
		}

		out = append(out, types.Maintenance{
			ID:                 id,
			Name:               name,
			Status:             st,
			ScheduledStart:     scheduledStart,
			ScheduledEnd:       scheduledEnd,
			Shortlink:          m.Shortlink,
			AffectedComponents: affected,
		})
	}
	return out
}

type httpError struct {
	code int
}

func (e *httpError) Error() string {
	return fmt.Sprintf("unexpected HTTP status %d", e.code)
}

// categorize buckets a fetch error for the failure counter and logs.
func categorize(err error) (category, text string) {
	var he *httpError
	if errors.As(err, &he) {
		switch {
		case he.code == http.StatusNotFound:
			return "http_404_not_found", "HTTP Error"
		case he.code == http.StatusUnauthorized || he.code == http.StatusForbidden:
			return "http_auth_error", "HTTP Error"
		case he.code >= 400 && he.code < 500:
			return "http_4xx_error", "HTTP Error"
		case he.code >= 500:
			return "http_5xx_error", "HTTP Error"
		default:
			return "http_error", "HTTP Error"
		}
	}

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
