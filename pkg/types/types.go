package types

// CheckerType selects which status-source adapter fetches a service.
type CheckerType string

const (
	CheckerStatusPage CheckerType = "status_page"
	CheckerHTML       CheckerType = "html_status_page"
)

// Service is a single monitored status page.
type Service struct {
	// Key is the stable identifier used for baselines and cache entries.
	Key string `yaml:"key"`

	// Name is the display name used in metric labels.
	Name string `yaml:"name"`

	// URL is the status page endpoint (summary.json for status_page,
	// the rendered page for html_status_page).
	URL string `yaml:"url"`

	// Type selects the adapter. Defaults to status_page.
	Type CheckerType `yaml:"type"`
}

// StatusValue is the normalized tri-state service status.
type StatusValue int

const (
	StatusIncident    StatusValue = -1
	StatusMaintenance StatusValue = 0
	StatusOperational StatusValue = 1
)

// PollResult is the normalized outcome of one fetch for one service.
//
// Status is nil when the check failed and produced no usable signal; in
// that case nothing derived from this result may touch a metric.
type PollResult struct {
	Status       *StatusValue  `json:"status"`
	ResponseTime float64       `json:"response_time"`
	RawStatus    string        `json:"raw_status"`
	StatusText   string        `json:"status_text"`
	Details      string        `json:"details"`
	Success      bool          `json:"success"`
	Error        string        `json:"error,omitempty"`
	Incidents    []Incident    `json:"incidents"`
	Maintenances []Maintenance `json:"maintenances"`
	Components   []Component   `json:"components"`
}

// Incident is one active incident reported by a status page.
type Incident struct {
	ID                 string   `json:"id"`
	Name               string   `json:"name"`
	Status             string   `json:"status"`
	Impact             string   `json:"impact"`
	StartedAt          string   `json:"started_at"`
	UpdatedAt          string   `json:"updated_at"`
	Shortlink          string   `json:"shortlink"`
	AffectedComponents []string `json:"affected_components"`
}

// Maintenance is one active scheduled maintenance window.
type Maintenance struct {
	ID                 string   `json:"id"`
	Name               string   `json:"name"`
	Status             string   `json:"status"`
	ScheduledStart     string   `json:"scheduled_start"`
	ScheduledEnd       string   `json:"scheduled_end"`
	Shortlink          string   `json:"shortlink"`
	AffectedComponents []string `json:"affected_components"`
}

// Component is one sub-component of a service. Components have no id on
// the wire; Name is the identity key, so a rename looks like a removal
// plus an addition.
type Component struct {
	Name        string      `json:"name"`
	Status      string      `json:"status"`
	StatusValue StatusValue `json:"status_value"`
}

// StatusPtr returns a pointer to v, for building PollResult literals.
func StatusPtr(v StatusValue) *StatusValue {
	return &v
}

// HasStatus reports whether the result carries a usable status signal.
func (r *PollResult) HasStatus() bool {
	return r != nil && r.Status != nil
}
