/*
Package monitor drives the poll-reconcile cycle across all configured
services.

A cycle snapshots every service's baseline from the store, then for each
service: fetches via the type-appropriate checker, substitutes the cached
baseline wholesale when the fetch fails, reconciles against the snapshot
and applies the resulting mutations to the metrics sink. Baselines are
written back only when the reconciler reports a material change.

Cycles are scheduled by cron expression and never overlap: if a cycle is
still running when the next is due, the new one is skipped with a warning.
Overlap would let a later comparison read a baseline the in-flight cycle
already rewrote.

The first cycle runs immediately on Start so the exporter serves real data
as soon as it is scraped, rather than after the first interval elapses.
*/
package monitor
