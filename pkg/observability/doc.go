/*
Package observability turns flow lifecycle events into Prometheus metrics
and structured log lines.

Both are exposed as domain.LifecycleHooks and can be combined with
domain.MergeHooks before being handed to flows.WithLifecycleHooks.
*/
package observability
