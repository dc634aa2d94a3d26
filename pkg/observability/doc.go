/*
Package observability provides lifecycle hooks for monitoring a yax store.

Metrics exports Prometheus counters and histograms for dispatches, commits and
module changes. LoggingHooks writes the same events to a slog.Logger. Combine
merges several hook sets so both can be installed with yax.WithLifecycleHooks.
*/
package observability
