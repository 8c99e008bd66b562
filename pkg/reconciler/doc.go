/*
Package reconciler computes the metric mutations needed to bring the
exported gauges in line with a freshly observed status page state.

The engine is the core of statuswatch. Each cycle it compares the current
poll result for a service against the baseline captured from the previous
material change and emits a minimal ordered list of mutations:

	┌──────────┐   baseline    ┌────────────┐   mutations   ┌────────┐
	│  store   ├──────────────▶│   engine   ├──────────────▶│  sink  │
	└──────────┘               │ Reconcile  │               └────────┘
	┌──────────┐   current     │            │   baseline
	│ checker  ├──────────────▶│            ├──────────────▶ store
	└──────────┘               └────────────┘   (if changed)

# Strategy

The default strategy is selective: only what changed is touched. A resolved
incident is retracted by setting its gauge to 0 at the exact label
combination it was originally exported with, reconstructed from the cached
baseline. Retractions are emitted before sets so a scrape between the two
never sees a half-updated pair. The legacy redraw strategy
(WithRedrawEveryCycle) re-exports each service's full state every cycle,
with the cycle driver resetting every gauge once per cycle first (ClearAll);
it trades a scrape-window gap for simplicity and exists for operators
migrating from exporters that behaved that way.

# Change Detection

Incidents and maintenances are compared by id set only. Metadata drift on a
live incident (updated_at ticking, wording edits) does not produce mutations
or a baseline write; an incident changes state by appearing or disappearing.
Components are compared as (name, status value) pairs, so a component
changes state by flipping status or by appearing or disappearing.

Before comparison both sides are sanitized identically: duplicate ids
dropped, synthetic test incidents excluded by name prefix, and embedded
timestamps normalized to second precision. Sanitizing both sides is what
makes Reconcile(b, b) a fixed point, which in turn makes cache substitution
and crash recovery idempotent.

# Failed Checks

A current result with a nil status produces zero mutations and leaves the
baseline untouched. Transient vendor errors must never blank a gauge or
flip an alert.
*/
package reconciler
