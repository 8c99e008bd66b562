package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// Service metrics
	ServiceStatus = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "statuspage_service_status",
			Help: "Status of monitored services (1=operational, 0=maintenance, -1=incident)",
		},
		[]string{"service_name"},
	)

	ResponseTime = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "statuspage_response_time_seconds",
			Help: "Response time for status page endpoints in seconds",
		},
		[]string{"service_name"},
	)

	// Incident and maintenance info metrics carry metadata in labels so
	// resolved entries can be retracted at the exact label combination
	// they were set with.
	IncidentInfo = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "statuspage_incident_info",
			Help: "Active incident metadata (1=active, 0=retracted or none active)",
		},
		[]string{"service_name", "incident_id", "incident_name", "impact", "shortlink", "started_at", "affected_components"},
	)

	MaintenanceInfo = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "statuspage_maintenance_info",
			Help: "Active maintenance event metadata (1=active, 0=retracted or none active)",
		},
		[]string{"service_name", "maintenance_id", "maintenance_name", "scheduled_start", "scheduled_end", "shortlink", "affected_components"},
	)

	ComponentStatus = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "statuspage_component_status",
			Help: "Status of individual service components (1=operational, 0=maintenance/removed, -1=degraded/down)",
		},
		[]string{"service_name", "component_name"},
	)

	// Failure metrics
	CheckFailures = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "statuspage_check_failures_total",
			Help: "Total number of failed status checks by failure reason, including ones absorbed by the cached fallback",
		},
		[]string{"service_name", "reason"},
	)
)

func init() {
	prometheus.MustRegister(ServiceStatus)
	prometheus.MustRegister(ResponseTime)
	prometheus.MustRegister(IncidentInfo)
	prometheus.MustRegister(MaintenanceInfo)
	prometheus.MustRegister(ComponentStatus)
	prometheus.MustRegister(CheckFailures)
}

// Handler returns the Prometheus HTTP handler
func Handler() http.Handler {
	return promhttp.Handler()
}
