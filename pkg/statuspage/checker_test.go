package statuspage

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/statuswatch/statuswatch/pkg/types"
)

const summaryOperational = `{
  "status": {"indicator": "none", "description": "All Systems Operational"},
  "components": [
    {"name": "API", "status": "operational"},
    {"name": "Webhooks", "status": "operational"}
  ],
  "incidents": [],
  "scheduled_maintenances": []
}`

const summaryIncident = `{
  "status": {"indicator": "minor", "description": "Partial outage"},
  "components": [
    {"name": "API", "status": "partial_outage"},
    {"name": "Webhooks", "status": "operational"}
  ],
  "incidents": [
    {
      "id": "abc123",
      "name": "Elevated API errors",
      "status": "investigating",
      "impact": "major",
      "created_at": "2025-11-04T13:20:00.000Z",
      "started_at": "2025-11-04T13:25:38.181Z",
      "updated_at": "2025-11-04T13:30:00.000Z",
      "shortlink": "https://stspg.io/abc123",
      "components": [{"name": "API", "status": "partial_outage"}]
    },
    {
      "id": "old456",
      "name": "Resolved incident",
      "status": "resolved",
      "impact": "critical",
      "resolved_at": "2025-11-03T10:00:00Z"
    }
  ],
  "scheduled_maintenances": []
}`

func serve(t *testing.T, handler http.HandlerFunc) (*Checker, types.Service) {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	svc := types.Service{
		Key:  "acme",
		Name: "Acme",
		URL:  srv.URL + "/api/v2/summary.json",
		Type: types.CheckerStatusPage,
	}
	return NewCheckerWithClient(srv.Client()), svc
}

func TestCheckOperational(t *testing.T) {
	checker, svc := serve(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/v2/summary.json", r.URL.Path)
		assert.Equal(t, userAgent, r.Header.Get("User-Agent"))
		w.Write([]byte(summaryOperational))
	})

	res := checker.Check(context.Background(), svc)

	require.True(t, res.HasStatus())
	assert.Equal(t, types.StatusOperational, *res.Status)
	assert.Equal(t, "none", res.RawStatus)
	assert.Equal(t, "Operational", res.StatusText)
	assert.Equal(t, "All Systems Operational", res.Details)
	assert.True(t, res.Success)
	assert.Greater(t, res.ResponseTime, float64(0))
	assert.Empty(t, res.Incidents)
	assert.Empty(t, res.Maintenances)

	require.Len(t, res.Components, 2)
	assert.Equal(t, "API", res.Components[0].Name)
	assert.Equal(t, types.StatusValue(1), res.Components[0].StatusValue)
}

func TestCheckActiveIncident(t *testing.T) {
	checker, svc := serve(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(summaryIncident))
	})

	res := checker.Check(context.Background(), svc)

	require.True(t, res.HasStatus())
	assert.Equal(t, types.StatusIncident, *res.Status)
	// Highest active impact overrides the page indicator.
	assert.Equal(t, "major", res.RawStatus)
	assert.Equal(t, "Major Outage", res.StatusText)
	assert.Contains(t, res.Details, "Elevated API errors")
	assert.Contains(t, res.Details, "affects: API")
	assert.Contains(t, res.Details, "https://stspg.io/abc123")

	// Resolved incidents are filtered out.
	require.Len(t, res.Incidents, 1)
	inc := res.Incidents[0]
	assert.Equal(t, "abc123", inc.ID)
	assert.Equal(t, "investigating", inc.Status)
	assert.Equal(t, "major", inc.Impact)
	assert.Equal(t, "2025-11-04T13:25:38.181Z", inc.StartedAt)
	assert.Equal(t, []string{"API"}, inc.AffectedComponents)
}

func TestCheckShortlinkReconstruction(t *testing.T) {
	checker, svc := serve(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{
  "status": {"indicator": "minor", "description": "Degraded"},
  "incidents": [
    {"id": "xyz", "name": "No shortlink", "status": "identified", "impact": "minor"}
  ]
}`))
	})

	res := checker.Check(context.Background(), svc)

	require.Len(t, res.Incidents, 1)
	base := svc.URL[:len(svc.URL)-len("/api/v2/summary.json")]
	assert.Equal(t, base+"/incidents/xyz", res.Incidents[0].Shortlink)
}

func TestCheckStartedAtFallsBackToCreatedAt(t *testing.T) {
	checker, svc := serve(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{
  "status": {"indicator": "minor", "description": "Degraded"},
  "incidents": [
    {"id": "xyz", "name": "n", "status": "identified", "impact": "minor",
     "created_at": "2025-11-04T12:00:00Z"}
  ]
}`))
	})

	res := checker.Check(context.Background(), svc)

	require.Len(t, res.Incidents, 1)
	assert.Equal(t, "2025-11-04T12:00:00Z", res.Incidents[0].StartedAt)
}

func TestCheckNonOperationalComponentsSynthesizeMinor(t *testing.T) {
	checker, svc := serve(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{
  "status": {"indicator": "none", "description": "All Systems Operational"},
  "components": [
    {"name": "API", "status": "operational"},
    {"name": "CDN", "status": "degraded_performance"}
  ],
  "incidents": []
}`))
	})

	res := checker.Check(context.Background(), svc)

	require.True(t, res.HasStatus())
	assert.Equal(t, types.StatusIncident, *res.Status)
	assert.Equal(t, "minor", res.RawStatus)
	assert.Contains(t, res.Details, "CDN")
}

func TestCheckTestIncidentsIgnored(t *testing.T) {
	checker, svc := serve(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{
  "status": {"indicator": "none", "description": "All Systems Operational"},
  "components": [{"name": "API", "status": "operational"}],
  "incidents": [
    {"id": "t1", "name": "[TEST] synthetic critical check", "status": "investigating", "impact": "critical"}
  ]
}`))
	})

	res := checker.Check(context.Background(), svc)

	// A synthetic incident must not drive the status gauge, the severity
	// override, or the details string.
	require.True(t, res.HasStatus())
	assert.Equal(t, types.StatusOperational, *res.Status)
	assert.Equal(t, "none", res.RawStatus)
	assert.Equal(t, "All Systems Operational", res.Details)
	assert.Empty(t, res.Incidents)
}

func TestCheckTestIncidentAlongsideReal(t *testing.T) {
	checker, svc := serve(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{
  "status": {"indicator": "minor", "description": "Degraded"},
  "incidents": [
    {"id": "t1", "name": "[test] failover drill", "status": "investigating", "impact": "critical"},
    {"id": "real", "name": "Slow API", "status": "identified", "impact": "minor"}
  ]
}`))
	})

	res := checker.Check(context.Background(), svc)

	// Severity comes from the real incident only.
	assert.Equal(t, "minor", res.RawStatus)
	require.Len(t, res.Incidents, 1)
	assert.Equal(t, "real", res.Incidents[0].ID)
	assert.NotContains(t, res.Details, "drill")
}

func TestCheckScheduledMaintenance(t *testing.T) {
	checker, svc := serve(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{
  "status": {"indicator": "maintenance", "description": "Maintenance in progress"},
  "scheduled_maintenances": [
    {"id": "m1", "name": "DB upgrade", "status": "in_progress",
     "scheduled_for": "2025-11-05T02:00:00Z", "scheduled_until": "2025-11-05T04:00:00Z",
     "shortlink": "https://stspg.io/m1"},
    {"id": "m2", "name": "Done", "status": "completed",
     "scheduled_for": "2025-11-01T02:00:00Z"}
  ]
}`))
	})

	res := checker.Check(context.Background(), svc)

	require.True(t, res.HasStatus())
	assert.Equal(t, types.StatusMaintenance, *res.Status)

	require.Len(t, res.Maintenances, 1)
	m := res.Maintenances[0]
	assert.Equal(t, "m1", m.ID)
	assert.Equal(t, "2025-11-05T02:00:00Z", m.ScheduledStart)
	assert.Equal(t, "2025-11-05T04:00:00Z", m.ScheduledEnd)
}

func TestCheckHTTPFailure(t *testing.T) {
	checker, svc := serve(t, func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "not found", http.StatusNotFound)
	})

	res := checker.Check(context.Background(), svc)

	assert.False(t, res.HasStatus())
	assert.False(t, res.Success)
	assert.Equal(t, "http_404_not_found", res.RawStatus)
	assert.Equal(t, "HTTP Error", res.StatusText)
	assert.NotEmpty(t, res.Error)
}

func TestCheckInvalidJSON(t *testing.T) {
	checker, svc := serve(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("<html>not json</html>"))
	})

	res := checker.Check(context.Background(), svc)

	assert.False(t, res.HasStatus())
	assert.Equal(t, "json_error", res.RawStatus)
	assert.Equal(t, "Parse Error", res.StatusText)
}

func TestCategorize(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want string
	}{
		{"not found", &httpError{code: 404}, "http_404_not_found"},
		{"unauthorized", &httpError{code: 401}, "http_auth_error"},
		{"forbidden", &httpError{code: 403}, "http_auth_error"},
		{"teapot", &httpError{code: 418}, "http_4xx_error"},
		{"server error", &httpError{code: 503}, "http_5xx_error"},
		{"deadline", context.DeadlineExceeded, "timeout"},
		{"refused", errors.New("dial tcp: connection refused"), "connection_error"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, _ := categorize(tt.err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestActiveIncidentsDeduplicated(t *testing.T) {
	raw := []apiIncident{
		{ID: "dup", Name: "First", Status: "investigating", Impact: "minor"},
		{ID: "dup", Name: "Second", Status: "investigating", Impact: "minor"},
	}

	out := activeIncidents("https://status.example.com/api/v2/summary.json", raw)

	require.Len(t, out, 1)
	assert.Equal(t, "First", out[0].Name)
}

func TestCheckEmptyIndicator(t *testing.T) {
	checker, svc := serve(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"status": {}}`))
	})

	res := checker.Check(context.Background(), svc)

	require.True(t, res.HasStatus())
	assert.Equal(t, types.StatusMaintenance, *res.Status)
	assert.Equal(t, "unknown", res.RawStatus)
	assert.Equal(t, "No description available", res.Details)
}
