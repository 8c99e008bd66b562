// Package config loads exporter configuration from a YAML file with
// environment variable overrides.
package config

import (
	"fmt"
	"os"

	"github.com/ilyakaznacheev/cleanenv"

	"github.com/statuswatch/statuswatch/pkg/types"
)

// Config is the full exporter configuration.
type Config struct {
	// Services lists the status pages to monitor.
	Services []types.Service `yaml:"services"`

	// PollIntervalMinutes is how often a monitoring cycle runs.
	PollIntervalMinutes int `yaml:"poll_interval_minutes" env:"STATUSWATCH_POLL_INTERVAL_MINUTES" env-default:"20"`

	// Cron is an optional cron expression overriding the derived
	// minute-interval schedule.
	Cron string `yaml:"cron" env:"STATUSWATCH_CRON"`

	// ListenAddr is the Prometheus exposition listen address.
	ListenAddr string `yaml:"listen_addr" env:"STATUSWATCH_LISTEN_ADDR" env-default:":9001"`

	// CacheDir holds the last-known-good baseline database.
	CacheDir string `yaml:"cache_dir" env:"STATUSWATCH_CACHE_DIR" env-default:"cache"`

	// ClearCacheOnStart drops all baselines before the first cycle,
	// forcing a full metric redraw.
	ClearCacheOnStart bool `yaml:"clear_cache_on_start" env:"STATUSWATCH_CLEAR_CACHE_ON_START" env-default:"false"`

	// Debug enables debug-level logging.
	Debug bool `yaml:"debug" env:"STATUSWATCH_DEBUG" env-default:"false"`

	// JSONLogs switches console logging to JSON output.
	JSONLogs bool `yaml:"json_logs" env:"STATUSWATCH_JSON_LOGS" env-default:"false"`

	// RedrawEveryCycle opts into the legacy clear-and-redraw gauge
	// strategy instead of selective diffing.
	RedrawEveryCycle bool `yaml:"redraw_every_cycle" env:"STATUSWATCH_REDRAW_EVERY_CYCLE" env-default:"false"`
}

// Load reads the configuration file, applies environment overrides and
// validates the service list.
func Load(path string) (*Config, error) {
	var cfg Config
	if path != "" {
		if _, err := os.Stat(path); err != nil {
			return nil, fmt.Errorf("config file %s: %w", path, err)
		}
		if err := cleanenv.ReadConfig(path, &cfg); err != nil {
			return nil, fmt.Errorf("read config %s: %w", path, err)
		}
	} else {
		if err := cleanenv.ReadEnv(&cfg); err != nil {
			return nil, fmt.Errorf("read environment: %w", err)
		}
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) validate() error {
	if len(c.Services) == 0 {
		return fmt.Errorf("no services configured")
	}
	if c.PollIntervalMinutes <= 0 {
		return fmt.Errorf("poll_interval_minutes must be positive, got %d", c.PollIntervalMinutes)
	}

	seen := make(map[string]struct{}, len(c.Services))
	for i := range c.Services {
		svc := &c.Services[i]
		if svc.Key == "" {
			return fmt.Errorf("service %d: key is required", i)
		}
		if _, dup := seen[svc.Key]; dup {
			return fmt.Errorf("duplicate service key %q", svc.Key)
		}
		seen[svc.Key] = struct{}{}
		if svc.URL == "" {
			return fmt.Errorf("service %s: url is required", svc.Key)
		}
		if svc.Name == "" {
			svc.Name = svc.Key
		}
		switch svc.Type {
		case "":
			svc.Type = types.CheckerStatusPage
		case types.CheckerStatusPage, types.CheckerHTML:
		default:
			return fmt.Errorf("service %s: unknown type %q", svc.Key, svc.Type)
		}
	}
	return nil
}

// CronSpec returns the schedule expression: the explicit cron override
// when set, otherwise one derived from the minute interval.
func (c *Config) CronSpec() string {
	if c.Cron != "" {
		return c.Cron
	}
	return fmt.Sprintf("*/%d * * * *", c.PollIntervalMinutes)
}
