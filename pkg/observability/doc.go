/*
Package observability turns controller lifecycle hooks into metrics and logs.

Metrics exposes Prometheus counters for dispatched events, activity starts and
ends, reactions and errors by kind. LogHooks writes the same lifecycle as
structured slog records. Both return domain.LifecycleHooks, so they compose
with domain.CombineHooks.
*/
package observability
