// Package status holds the pure mapping rules that turn vendor status
// indicators into the normalized values exposed as metrics.
package status

import (
	"regexp"
	"strings"

	"github.com/statuswatch/statuswatch/pkg/types"
)

// Impact severity ranks, highest wins when several incidents are active.
const (
	severityNone     = 0
	severityMinor    = 1
	severityMajor    = 2
	severityCritical = 3
)

var severityRank = map[string]int{
	"none":     severityNone,
	"minor":    severityMinor,
	"major":    severityMajor,
	"critical": severityCritical,
}

// IndicatorValue maps a status page indicator to the tri-state service
// status. Unrecognized indicators map to maintenance (0) rather than
// flipping an alert either way.
func IndicatorValue(indicator string) types.StatusValue {
	switch strings.ToLower(indicator) {
	case "none":
		return types.StatusOperational
	case "minor", "major", "critical":
		return types.StatusIncident
	case "maintenance":
		return types.StatusMaintenance
	default:
		return types.StatusMaintenance
	}
}

// IndicatorText returns the human-readable status text for an indicator.
func IndicatorText(indicator string) string {
	switch strings.ToLower(indicator) {
	case "none":
		return "Operational"
	case "minor":
		return "Minor Outage"
	case "major":
		return "Major Outage"
	case "critical":
		return "Critical Outage"
	case "maintenance":
		return "Maintenance"
	default:
		return "Unknown"
	}
}

// ComponentValue maps a component status string to its numeric value.
// The 3-value scale is used throughout: 1 operational, -1 degraded or
// down, 0 maintenance or unknown.
func ComponentValue(status string) types.StatusValue {
	switch strings.ToLower(status) {
	case "operational":
		return types.StatusOperational
	case "degraded", "partial_outage", "major_outage", "degraded_performance":
		return types.StatusIncident
	case "under_maintenance", "maintenance":
		return types.StatusMaintenance
	default:
		return types.StatusMaintenance
	}
}

// HighestImpact returns the most severe impact among the given incidents,
// or "none" when no incident carries an impact above none. Unknown impact
// strings rank as none.
func HighestImpact(incidents []types.Incident) string {
	highest := "none"
	rank := severityNone
	for i := range incidents {
		impact := strings.ToLower(incidents[i].Impact)
		if r, ok := severityRank[impact]; ok && r > rank {
			rank = r
			highest = impact
		}
	}
	return highest
}

// DefaultTestMarkers are name prefixes of synthetic health-check
// incidents some vendors leave on their pages. They carry no signal.
var DefaultTestMarkers = []string{"[test]"}

// IsTestIncident reports whether an incident name starts with one of the
// synthetic-test markers. Matching is case-insensitive after trimming.
func IsTestIncident(name string, markers []string) bool {
	trimmed := strings.ToLower(strings.TrimSpace(name))
	for _, prefix := range markers {
		if strings.HasPrefix(trimmed, strings.ToLower(prefix)) {
			return true
		}
	}
	return false
}

// FilterTestIncidents drops synthetic test incidents. Both the adapters
// and the reconciler filter through this: adapters so that severity and
// details derivation never sees test noise, the reconciler so that a
// cached baseline from before the markers changed still compares clean.
func FilterTestIncidents(incidents []types.Incident, markers []string) []types.Incident {
	out := make([]types.Incident, 0, len(incidents))
	for i := range incidents {
		if IsTestIncident(incidents[i].Name, markers) {
			continue
		}
		out = append(out, incidents[i])
	}
	return out
}

// Timestamps arrive with millisecond jitter from some APIs; comparing or
// labelling on them raw would manufacture spurious series.
var fractionalSeconds = regexp.MustCompile(`\.\d+([Z+\-])`)

// NormalizeTimestamp strips fractional seconds from an ISO-8601 timestamp
// so that "2025-11-04T13:25:38.181Z" becomes "2025-11-04T13:25:38Z".
// Placeholder values like "unknown" and "N/A" pass through unchanged, as
// does anything already at second precision.
func NormalizeTimestamp(ts string) string {
	if ts == "" || ts == "N/A" || ts == "unknown" {
		return ts
	}
	return fractionalSeconds.ReplaceAllString(ts, "$1")
}
