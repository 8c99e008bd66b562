package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/statuswatch/statuswatch/pkg/types"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "statuswatch.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoadDefaults(t *testing.T) {
	path := writeConfig(t, `
services:
  - key: github
    url: https://www.githubstatus.com/api/v2/summary.json
`)

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, 20, cfg.PollIntervalMinutes)
	assert.Equal(t, ":9001", cfg.ListenAddr)
	assert.Equal(t, "cache", cfg.CacheDir)
	assert.False(t, cfg.ClearCacheOnStart)
	assert.False(t, cfg.Debug)
	assert.False(t, cfg.RedrawEveryCycle)

	require.Len(t, cfg.Services, 1)
	svc := cfg.Services[0]
	assert.Equal(t, "github", svc.Key)
	assert.Equal(t, "github", svc.Name)
	assert.Equal(t, types.CheckerStatusPage, svc.Type)
}

func TestLoadFullConfig(t *testing.T) {
	path := writeConfig(t, `
poll_interval_minutes: 5
listen_addr: ":9100"
cache_dir: /var/lib/statuswatch
clear_cache_on_start: true
debug: true
json_logs: true
redraw_every_cycle: true
services:
  - key: github
    name: GitHub
    url: https://www.githubstatus.com/api/v2/summary.json
    type: status_page
  - key: legacy
    name: Legacy Vendor
    url: https://status.legacy.example.com
    type: html_status_page
`)

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, 5, cfg.PollIntervalMinutes)
	assert.Equal(t, ":9100", cfg.ListenAddr)
	assert.Equal(t, "/var/lib/statuswatch", cfg.CacheDir)
	assert.True(t, cfg.ClearCacheOnStart)
	assert.True(t, cfg.Debug)
	assert.True(t, cfg.JSONLogs)
	assert.True(t, cfg.RedrawEveryCycle)

	require.Len(t, cfg.Services, 2)
	assert.Equal(t, "GitHub", cfg.Services[0].Name)
	assert.Equal(t, types.CheckerHTML, cfg.Services[1].Type)
}

func TestLoadEnvOverride(t *testing.T) {
	path := writeConfig(t, `
services:
  - key: github
    url: https://www.githubstatus.com/api/v2/summary.json
`)

	t.Setenv("STATUSWATCH_POLL_INTERVAL_MINUTES", "7")
	t.Setenv("STATUSWATCH_LISTEN_ADDR", ":9999")

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, 7, cfg.PollIntervalMinutes)
	assert.Equal(t, ":9999", cfg.ListenAddr)
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	assert.Error(t, err)
}

func TestLoadValidation(t *testing.T) {
	tests := []struct {
		name    string
		content string
		errstr  string
	}{
		{
			name:    "no services",
			content: `poll_interval_minutes: 20`,
			errstr:  "no services",
		},
		{
			name: "missing url",
			content: `
services:
  - key: github
`,
			errstr: "url is required",
		},
		{
			name: "missing key",
			content: `
services:
  - url: https://example.com
`,
			errstr: "key is required",
		},
		{
			name: "duplicate key",
			content: `
services:
  - key: github
    url: https://a.example.com
  - key: github
    url: https://b.example.com
`,
			errstr: "duplicate service key",
		},
		{
			name: "bad type",
			content: `
services:
  - key: github
    url: https://example.com
    type: carrier_pigeon
`,
			errstr: "unknown type",
		},
		{
			name: "bad interval",
			content: `
poll_interval_minutes: -3
services:
  - key: github
    url: https://example.com
`,
			errstr: "must be positive",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Load(writeConfig(t, tt.content))
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.errstr)
		})
	}
}

func TestCronSpec(t *testing.T) {
	cfg := &Config{PollIntervalMinutes: 15}
	assert.Equal(t, "*/15 * * * *", cfg.CronSpec())

	cfg.Cron = "0 */2 * * *"
	assert.Equal(t, "0 */2 * * *", cfg.CronSpec())
}

func TestLoadCronOverride(t *testing.T) {
	path := writeConfig(t, `
cron: "30 * * * *"
services:
  - key: github
    url: https://www.githubstatus.com/api/v2/summary.json
`)

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "30 * * * *", cfg.CronSpec())
}
