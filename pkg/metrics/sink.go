package metrics

import (
	"github.com/prometheus/client_golang/prometheus"

	"github.com/statuswatch/statuswatch/pkg/reconciler"
)

// PromSink applies reconciliation mutations to Prometheus gauge vectors.
type PromSink struct {
	gauges   map[reconciler.Gauge]*prometheus.GaugeVec
	failures *prometheus.CounterVec
}

// NewSink returns a sink backed by the default registered gauges.
func NewSink() *PromSink {
	return &PromSink{
		gauges: map[reconciler.Gauge]*prometheus.GaugeVec{
			reconciler.GaugeServiceStatus:   ServiceStatus,
			reconciler.GaugeResponseTime:    ResponseTime,
			reconciler.GaugeIncidentInfo:    IncidentInfo,
			reconciler.GaugeMaintenanceInfo: MaintenanceInfo,
			reconciler.GaugeComponentStatus: ComponentStatus,
		},
		failures: CheckFailures,
	}
}

// NewSinkWithRegistry returns a sink with fresh gauge vectors registered
// against reg. Used by tests to avoid the process-wide registry.
func NewSinkWithRegistry(reg prometheus.Registerer) *PromSink {
	serviceStatus := prometheus.NewGaugeVec(
		prometheus.GaugeOpts{Name: "statuspage_service_status", Help: "Status of monitored services"},
		[]string{"service_name"},
	)
	responseTime := prometheus.NewGaugeVec(
		prometheus.GaugeOpts{Name: "statuspage_response_time_seconds", Help: "Response time in seconds"},
		[]string{"service_name"},
	)
	incidentInfo := prometheus.NewGaugeVec(
		prometheus.GaugeOpts{Name: "statuspage_incident_info", Help: "Active incident metadata"},
		[]string{"service_name", "incident_id", "incident_name", "impact", "shortlink", "started_at", "affected_components"},
	)
	maintenanceInfo := prometheus.NewGaugeVec(
		prometheus.GaugeOpts{Name: "statuspage_maintenance_info", Help: "Active maintenance metadata"},
		[]string{"service_name", "maintenance_id", "maintenance_name", "scheduled_start", "scheduled_end", "shortlink", "affected_components"},
	)
	componentStatus := prometheus.NewGaugeVec(
		prometheus.GaugeOpts{Name: "statuspage_component_status", Help: "Component status"},
		[]string{"service_name", "component_name"},
	)

	checkFailures := prometheus.NewCounterVec(
		prometheus.CounterOpts{Name: "statuspage_check_failures_total", Help: "Failed status checks"},
		[]string{"service_name", "reason"},
	)

	reg.MustRegister(serviceStatus, responseTime, incidentInfo, maintenanceInfo, componentStatus, checkFailures)

	return &PromSink{
		gauges: map[reconciler.Gauge]*prometheus.GaugeVec{
			reconciler.GaugeServiceStatus:   serviceStatus,
			reconciler.GaugeResponseTime:    responseTime,
			reconciler.GaugeIncidentInfo:    incidentInfo,
			reconciler.GaugeMaintenanceInfo: maintenanceInfo,
			reconciler.GaugeComponentStatus: componentStatus,
		},
		failures: checkFailures,
	}
}

// Set writes value at the given label combination.
func (s *PromSink) Set(gauge reconciler.Gauge, labels map[string]string, value float64) {
	vec, ok := s.gauges[gauge]
	if !ok {
		return
	}
	vec.With(labels).Set(value)
}

// Remove drops one label combination from the gauge.
func (s *PromSink) Remove(gauge reconciler.Gauge, labels map[string]string) {
	vec, ok := s.gauges[gauge]
	if !ok {
		return
	}
	vec.Delete(labels)
}

// Clear drops every label combination from the gauge.
func (s *PromSink) Clear(gauge reconciler.Gauge) {
	vec, ok := s.gauges[gauge]
	if !ok {
		return
	}
	vec.Reset()
}

// Apply applies mutations in order.
func (s *PromSink) Apply(muts []reconciler.Mutation) {
	for _, m := range muts {
		switch m.Op {
		case reconciler.OpSet:
			s.Set(m.Gauge, m.Labels, m.Value)
		case reconciler.OpRemove:
			s.Remove(m.Gauge, m.Labels)
		case reconciler.OpClear:
			s.Clear(m.Gauge)
		}
	}
}

// CountFailure increments the check-failure counter for a service.
func (s *PromSink) CountFailure(serviceName, reason string) {
	s.failures.WithLabelValues(serviceName, reason).Inc()
}
