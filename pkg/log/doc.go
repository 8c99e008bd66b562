/*
Package log provides structured logging for statuswatch using zerolog.

The log package wraps the zerolog library to provide JSON-structured logging
with component-specific loggers, configurable log levels, and helper functions
for common logging patterns. All logs include timestamps and support filtering
by severity level.

# Usage

Initialize the global logger once at startup:

	log.Init(log.Config{
		Level:      log.InfoLevel,
		JSONOutput: false, // console output for humans
	})

Packages derive child loggers carrying a component field:

	logger := log.WithComponent("monitor")
	logger.Info().Str("service", "github").Msg("check completed")

Which produces, in JSON mode:

	{"level":"info","component":"monitor","service":"github",
	 "time":"2025-11-04T13:25:38Z","message":"check completed"}

Console mode renders the same event human-readable for local runs; JSON mode
is intended for production where logs are shipped and queried.

# Conventions

  - Per-service events carry a "service" field with the service key
  - Checkers log failures at warn with a "category" field matching the
    failure counter label
  - State transitions (status changes, incident add/remove) log at info
  - Debug level is reserved for per-cycle detail that would be noise in
    normal operation
*/
package log
