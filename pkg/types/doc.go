/*
Package types defines the core data structures shared across statuswatch.

This package contains the fundamental types that represent the monitoring
domain model: services to watch, normalized poll results, and the incident,
maintenance and component records extracted from vendor status pages. These
types flow through every other package, from the checkers that produce them
to the reconciler that diffs them and the store that persists them.

# Core Types

Service configuration:
  - Service: one status page to monitor (key, display name, URL, checker type)
  - CheckerType: which adapter polls the page (JSON summary API or HTML)

Poll results:
  - PollResult: the normalized outcome of one check against one service
  - StatusValue: the tri-state service status (1 operational, 0 maintenance,
    -1 incident)
  - Incident: an active incident with identity, impact and affected components
  - Maintenance: an active or scheduled maintenance window
  - Component: one sub-system of a service with its own status

# Status Semantics

A PollResult with a nil Status carries no usable signal: the check failed
before any status could be determined. Consumers must treat such results as
"skip", never as "outage". The HasStatus helper encodes this check; the
Success flag tells a failed fetch apart from a successful one that was
substituted from cache.

All types serialize to JSON for baseline persistence. Field values are
normalized by the producing checker (lowercase statuses and impacts) so that
two observations of the same state compare equal.
*/
package types
