package reconciler

import (
	"sort"
	"strings"

	"github.com/rs/zerolog"

	"github.com/statuswatch/statuswatch/pkg/log"
	"github.com/statuswatch/statuswatch/pkg/status"
	"github.com/statuswatch/statuswatch/pkg/types"
)

// Gauge identifies a metric the engine mutates. The metrics sink maps
// these to its registered collectors.
type Gauge string

const (
	GaugeServiceStatus   Gauge = "service_status"
	GaugeResponseTime    Gauge = "response_time"
	GaugeIncidentInfo    Gauge = "incident_info"
	GaugeMaintenanceInfo Gauge = "maintenance_info"
	GaugeComponentStatus Gauge = "component_status"
)

// Op is the kind of mutation to apply.
type Op int

const (
	// OpSet writes Value at the label combination.
	OpSet Op = iota
	// OpRemove drops the label combination entirely.
	OpRemove
	// OpClear drops every label combination of the gauge. Only emitted
	// in redraw mode; selective mode retracts by setting 0 instead.
	OpClear
)

// Mutation is one instruction for the metrics sink.
type Mutation struct {
	Gauge  Gauge
	Op     Op
	Labels map[string]string
	Value  float64
}

// Result is the outcome of reconciling one service for one cycle.
type Result struct {
	// Mutations to apply to the sink, in order. Retractions for
	// disappeared entities come before sets for current ones.
	Mutations []Mutation

	// Baseline is the poll result to persist as the new baseline.
	// It equals the previous baseline when nothing material changed.
	Baseline *types.PollResult

	// BaselineChanged reports whether Baseline differs materially from
	// the previous one and should be written to the store.
	BaselineChanged bool
}

// truncation limits keep label cardinality sane
const (
	maxNameLabelLen     = 100
	maxAffectedLabelLen = 150
)

// DefaultTestMarkers mirrors the shared synthetic-incident marker list.
var DefaultTestMarkers = status.DefaultTestMarkers

// Engine computes the metric mutations needed to bring the sink in line
// with a freshly observed poll result. It holds no per-service state;
// Reconcile is a pure function of (baseline, current).
type Engine struct {
	testMarkers []string
	redraw      bool
	logger      zerolog.Logger
}

// Option configures an Engine.
type Option func(*Engine)

// WithTestMarkers overrides the synthetic-incident name prefixes.
func WithTestMarkers(prefixes []string) Option {
	return func(e *Engine) { e.testMarkers = prefixes }
}

// WithRedrawEveryCycle switches to the legacy strategy that re-emits the
// service's full state each cycle. The cycle driver clears every gauge
// once per cycle (ClearAll) before any service redraws; clearing per
// service would wipe the series other services already wrote. The
// default selective strategy avoids the empty-scrape window this opens.
func WithRedrawEveryCycle() Option {
	return func(e *Engine) { e.redraw = true }
}

// WithLogger sets the engine logger.
func WithLogger(l zerolog.Logger) Option {
	return func(e *Engine) { e.logger = l }
}

// RedrawEveryCycle reports whether the engine is in legacy redraw mode.
// The cycle driver must apply ClearAll once per cycle when it is.
func (e *Engine) RedrawEveryCycle() bool {
	return e.redraw
}

// ClearAll returns the mutations that drop every series of every gauge.
// In redraw mode the cycle driver applies these once at the start of a
// cycle, before any service re-emits its state.
func ClearAll() []Mutation {
	return []Mutation{
		{Gauge: GaugeServiceStatus, Op: OpClear},
		{Gauge: GaugeResponseTime, Op: OpClear},
		{Gauge: GaugeIncidentInfo, Op: OpClear},
		{Gauge: GaugeMaintenanceInfo, Op: OpClear},
		{Gauge: GaugeComponentStatus, Op: OpClear},
	}
}

// NewEngine creates a reconciliation engine.
func NewEngine(opts ...Option) *Engine {
	e := &Engine{
		testMarkers: DefaultTestMarkers,
		logger:      log.WithComponent("reconciler"),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Reconcile compares the freshly fetched (or cache-substituted) result
// against the baseline captured at the start of the cycle and returns the
// mutations needed plus the baseline persistence verdict.
//
// A current result without a status signal produces zero mutations and
// leaves the baseline untouched: a transient vendor error must never
// blank a gauge or flip an alert.
func (e *Engine) Reconcile(serviceName string, baseline *types.PollResult, current types.PollResult) Result {
	if current.Status == nil {
		return Result{Baseline: baseline}
	}

	cur := e.sanitize(current)
	var prev *types.PollResult
	if baseline != nil && baseline.Status != nil {
		p := e.sanitize(*baseline)
		prev = &p
	}

	if e.redraw {
		return e.redrawAll(serviceName, prev, cur)
	}

	var muts []Mutation

	statusChanged := prev == nil || *prev.Status != *cur.Status
	if statusChanged {
		if prev != nil {
			e.logger.Info().
				Str("service", serviceName).
				Int("from", int(*prev.Status)).
				Int("to", int(*cur.Status)).
				Msg("status changed")
		}
		muts = append(muts, Mutation{
			Gauge:  GaugeServiceStatus,
			Labels: serviceLabels(serviceName),
			Value:  float64(*cur.Status),
		})
	}

	// Response time is a trend metric, refreshed every cycle.
	muts = append(muts, Mutation{
		Gauge:  GaugeResponseTime,
		Labels: serviceLabels(serviceName),
		Value:  cur.ResponseTime,
	})

	incMuts, incChanged := e.reconcileIncidents(serviceName, prev, cur)
	muts = append(muts, incMuts...)

	maintMuts, maintChanged := e.reconcileMaintenances(serviceName, prev, cur)
	muts = append(muts, maintMuts...)

	compMuts, compChanged := e.reconcileComponents(serviceName, prev, cur)
	muts = append(muts, compMuts...)

	changed := prev == nil || statusChanged || incChanged || maintChanged || compChanged
	res := Result{Mutations: muts, Baseline: baseline, BaselineChanged: changed}
	if changed {
		res.Baseline = &cur
	}
	return res
}

// reconcileIncidents compares incident id sets. Non-identifying field
// drift (updated_at, wording) is deliberately invisible here.
func (e *Engine) reconcileIncidents(serviceName string, prev *types.PollResult, cur types.PollResult) ([]Mutation, bool) {
	currentIDs := incidentIDSet(cur.Incidents)

	if prev != nil {
		cachedIDs := incidentIDSet(prev.Incidents)
		if sameIDSet(currentIDs, cachedIDs) {
			return nil, false
		}
		e.logIDDelta(serviceName, "incidents", currentIDs, cachedIDs)

		var muts []Mutation
		for _, id := range sortedDifference(cachedIDs, currentIDs) {
			inc := incidentByID(prev.Incidents, id)
			muts = append(muts, Mutation{
				Gauge:  GaugeIncidentInfo,
				Labels: incidentLabels(serviceName, inc),
				Value:  0,
			})
		}
		muts = append(muts, e.setIncidents(serviceName, cur.Incidents)...)
		return muts, true
	}

	return e.setIncidents(serviceName, cur.Incidents), true
}

func (e *Engine) setIncidents(serviceName string, incidents []types.Incident) []Mutation {
	if len(incidents) == 0 {
		// Sentinel series so "no incidents" is observable rather than
		// indistinguishable from "never scraped".
		return []Mutation{{
			Gauge: GaugeIncidentInfo,
			Labels: map[string]string{
				"service_name":        serviceName,
				"incident_id":         "none",
				"incident_name":       "No Active Incidents",
				"impact":              "none",
				"shortlink":           "N/A",
				"started_at":          "N/A",
				"affected_components": "N/A",
			},
			Value: 0,
		}}
	}

	muts := make([]Mutation, 0, len(incidents))
	for i := range incidents {
		muts = append(muts, Mutation{
			Gauge:  GaugeIncidentInfo,
			Labels: incidentLabels(serviceName, incidents[i]),
			Value:  1,
		})
	}
	return muts
}

func (e *Engine) reconcileMaintenances(serviceName string, prev *types.PollResult, cur types.PollResult) ([]Mutation, bool) {
	currentIDs := maintenanceIDSet(cur.Maintenances)

	if prev != nil {
		cachedIDs := maintenanceIDSet(prev.Maintenances)
		if sameIDSet(currentIDs, cachedIDs) {
			return nil, false
		}
		e.logIDDelta(serviceName, "maintenances", currentIDs, cachedIDs)

		var muts []Mutation
		for _, id := range sortedDifference(cachedIDs, currentIDs) {
			m := maintenanceByID(prev.Maintenances, id)
			muts = append(muts, Mutation{
				Gauge:  GaugeMaintenanceInfo,
				Labels: maintenanceLabels(serviceName, m),
				Value:  0,
			})
		}
		muts = append(muts, e.setMaintenances(serviceName, cur.Maintenances)...)
		return muts, true
	}

	return e.setMaintenances(serviceName, cur.Maintenances), true
}

func (e *Engine) setMaintenances(serviceName string, maints []types.Maintenance) []Mutation {
	if len(maints) == 0 {
		return []Mutation{{
			Gauge: GaugeMaintenanceInfo,
			Labels: map[string]string{
				"service_name":        serviceName,
				"maintenance_id":      "none",
				"maintenance_name":    "No Active Maintenance",
				"scheduled_start":     "N/A",
				"scheduled_end":       "N/A",
				"shortlink":           "N/A",
				"affected_components": "N/A",
			},
			Value: 0,
		}}
	}

	muts := make([]Mutation, 0, len(maints))
	for i := range maints {
		muts = append(muts, Mutation{
			Gauge:  GaugeMaintenanceInfo,
			Labels: maintenanceLabels(serviceName, maints[i]),
			Value:  1,
		})
	}
	return muts
}

// reconcileComponents compares (name, status value) pairs as a set.
// Identity is the name string: a rename reads as removal plus addition.
func (e *Engine) reconcileComponents(serviceName string, prev *types.PollResult, cur types.PollResult) ([]Mutation, bool) {
	currentPairs := componentPairSet(cur.Components)

	var muts []Mutation
	if prev != nil {
		cachedPairs := componentPairSet(prev.Components)
		if samePairSet(currentPairs, cachedPairs) {
			return nil, false
		}

		currentNames := componentNameSet(cur.Components)
		var removed []string
		for i := range prev.Components {
			name := componentName(prev.Components[i])
			if _, ok := currentNames[name]; !ok {
				removed = append(removed, name)
			}
		}
		sort.Strings(removed)
		for _, name := range removed {
			muts = append(muts, Mutation{
				Gauge: GaugeComponentStatus,
				Labels: map[string]string{
					"service_name":   serviceName,
					"component_name": name,
				},
				Value: 0,
			})
		}
		if len(removed) > 0 {
			e.logger.Info().
				Str("service", serviceName).
				Strs("components", removed).
				Msg("components removed")
		}
	}

	for i := range cur.Components {
		muts = append(muts, Mutation{
			Gauge: GaugeComponentStatus,
			Labels: map[string]string{
				"service_name":   serviceName,
				"component_name": componentName(cur.Components[i]),
			},
			Value: float64(cur.Components[i].StatusValue),
		})
	}
	return muts, true
}

// redrawAll implements the per-service half of the legacy redraw
// strategy: the full current state is re-emitted unconditionally. The
// cycle-wide clear happens in the driver via ClearAll. The baseline
// verdict is computed the same way as in selective mode so switching
// strategies does not thrash the store.
func (e *Engine) redrawAll(serviceName string, prev *types.PollResult, cur types.PollResult) Result {
	var muts []Mutation
	muts = append(muts, Mutation{
		Gauge:  GaugeServiceStatus,
		Labels: serviceLabels(serviceName),
		Value:  float64(*cur.Status),
	})
	muts = append(muts, Mutation{
		Gauge:  GaugeResponseTime,
		Labels: serviceLabels(serviceName),
		Value:  cur.ResponseTime,
	})
	muts = append(muts, e.setIncidents(serviceName, cur.Incidents)...)
	muts = append(muts, e.setMaintenances(serviceName, cur.Maintenances)...)
	for i := range cur.Components {
		muts = append(muts, Mutation{
			Gauge: GaugeComponentStatus,
			Labels: map[string]string{
				"service_name":   serviceName,
				"component_name": componentName(cur.Components[i]),
			},
			Value: float64(cur.Components[i].StatusValue),
		})
	}

	changed := prev == nil ||
		*prev.Status != *cur.Status ||
		!sameIDSet(incidentIDSet(cur.Incidents), incidentIDSet(prev.Incidents)) ||
		!sameIDSet(maintenanceIDSet(cur.Maintenances), maintenanceIDSet(prev.Maintenances)) ||
		!samePairSet(componentPairSet(cur.Components), componentPairSet(prev.Components))

	res := Result{Mutations: muts, BaselineChanged: changed}
	if changed {
		res.Baseline = &cur
	} else {
		res.Baseline = prev
	}
	return res
}

// sanitize returns a comparable copy of r: duplicate incident and
// maintenance ids dropped, synthetic test incidents excluded, embedded
// timestamps normalized to second precision.
func (e *Engine) sanitize(r types.PollResult) types.PollResult {
	out := r

	seen := make(map[string]struct{}, len(r.Incidents))
	incidents := make([]types.Incident, 0, len(r.Incidents))
	for i := range r.Incidents {
		inc := r.Incidents[i]
		if e.isTestIncident(inc.Name) {
			continue
		}
		id := incidentID(inc)
		if _, dup := seen[id]; dup {
			continue
		}
		seen[id] = struct{}{}
		inc.StartedAt = status.NormalizeTimestamp(inc.StartedAt)
		inc.UpdatedAt = status.NormalizeTimestamp(inc.UpdatedAt)
		incidents = append(incidents, inc)
	}
	out.Incidents = incidents

	seenM := make(map[string]struct{}, len(r.Maintenances))
	maints := make([]types.Maintenance, 0, len(r.Maintenances))
	for i := range r.Maintenances {
		m := r.Maintenances[i]
		id := maintenanceID(m)
		if _, dup := seenM[id]; dup {
			continue
		}
		seenM[id] = struct{}{}
		m.ScheduledStart = status.NormalizeTimestamp(m.ScheduledStart)
		m.ScheduledEnd = status.NormalizeTimestamp(m.ScheduledEnd)
		maints = append(maints, m)
	}
	out.Maintenances = maints

	return out
}

func (e *Engine) isTestIncident(name string) bool {
	return status.IsTestIncident(name, e.testMarkers)
}

func (e *Engine) logIDDelta(serviceName, kind string, current, cached map[string]struct{}) {
	added := sortedDifference(current, cached)
	removed := sortedDifference(cached, current)
	ev := e.logger.Info().Str("service", serviceName)
	if len(added) > 0 {
		ev = ev.Strs("added", added)
	}
	if len(removed) > 0 {
		ev = ev.Strs("removed", removed)
	}
	ev.Msg(kind + " changed")
}

func serviceLabels(serviceName string) map[string]string {
	return map[string]string{"service_name": serviceName}
}

func incidentLabels(serviceName string, inc types.Incident) map[string]string {
	return map[string]string{
		"service_name":        serviceName,
		"incident_id":         incidentID(inc),
		"incident_name":       truncate(defaultStr(inc.Name, "Unknown"), maxNameLabelLen),
		"impact":              defaultStr(inc.Impact, "unknown"),
		"shortlink":           defaultStr(inc.Shortlink, "N/A"),
		"started_at":          status.NormalizeTimestamp(defaultStr(inc.StartedAt, "unknown")),
		"affected_components": truncate(strings.Join(inc.AffectedComponents, ", "), maxAffectedLabelLen),
	}
}

func maintenanceLabels(serviceName string, m types.Maintenance) map[string]string {
	return map[string]string{
		"service_name":        serviceName,
		"maintenance_id":      maintenanceID(m),
		"maintenance_name":    truncate(defaultStr(m.Name, "Unknown"), maxNameLabelLen),
		"scheduled_start":     status.NormalizeTimestamp(defaultStr(m.ScheduledStart, "unknown")),
		"scheduled_end":       status.NormalizeTimestamp(defaultStr(m.ScheduledEnd, "unknown")),
		"shortlink":           defaultStr(m.Shortlink, "N/A"),
		"affected_components": truncate(strings.Join(m.AffectedComponents, ", "), maxAffectedLabelLen),
	}
}

func incidentID(inc types.Incident) string {
	return defaultStr(inc.ID, "unknown")
}

func maintenanceID(m types.Maintenance) string {
	return defaultStr(m.ID, "unknown")
}

func componentName(c types.Component) string {
	return defaultStr(c.Name, "Unknown")
}

func incidentIDSet(incidents []types.Incident) map[string]struct{} {
	set := make(map[string]struct{}, len(incidents))
	for i := range incidents {
		set[incidentID(incidents[i])] = struct{}{}
	}
	return set
}

func maintenanceIDSet(maints []types.Maintenance) map[string]struct{} {
	set := make(map[string]struct{}, len(maints))
	for i := range maints {
		set[maintenanceID(maints[i])] = struct{}{}
	}
	return set
}

func incidentByID(incidents []types.Incident, id string) types.Incident {
	for i := range incidents {
		if incidentID(incidents[i]) == id {
			return incidents[i]
		}
	}
	return types.Incident{ID: id}
}

func maintenanceByID(maints []types.Maintenance, id string) types.Maintenance {
	for i := range maints {
		if maintenanceID(maints[i]) == id {
			return maints[i]
		}
	}
	return types.Maintenance{ID: id}
}

type componentPair struct {
	name  string
	value types.StatusValue
}

func componentPairSet(comps []types.Component) map[componentPair]struct{} {
	set := make(map[componentPair]struct{}, len(comps))
	for i := range comps {
		set[componentPair{componentName(comps[i]), comps[i].StatusValue}] = struct{}{}
	}
	return set
}

func componentNameSet(comps []types.Component) map[string]struct{} {
	set := make(map[string]struct{}, len(comps))
	for i := range comps {
		set[componentName(comps[i])] = struct{}{}
	}
	return set
}

func sameIDSet(a, b map[string]struct{}) bool {
	if len(a) != len(b) {
		return false
	}
	for k := range a {
		if _, ok := b[k]; !ok {
			return false
		}
	}
	return true
}

func samePairSet(a, b map[componentPair]struct{}) bool {
	if len(a) != len(b) {
		return false
	}
	for k := range a {
		if _, ok := b[k]; !ok {
			return false
		}
	}
	return true
}

func sortedDifference(a, b map[string]struct{}) []string {
	var out []string
	for k := range a {
		if _, ok := b[k]; !ok {
			out = append(out, k)
		}
	}
	sort.Strings(out)
	return out
}

func truncate(s string, max int) string {
	runes := []rune(s)
	if len(runes) <= max {
		return s
	}
	return string(runes[:max])
}

func defaultStr(s, def string) string {
	if s == "" {
		return def
	}
	return s
}
