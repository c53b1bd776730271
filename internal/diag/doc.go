// Package diag serves runtime diagnostics over HTTP.
//
// Routes:
//
//	GET /healthz             liveness
//	GET /metrics             Prometheus exposition of store, pool and loop counters
//	GET /debug/eventstore    JSON snapshot of the event store
//
// The server is optional. An empty address disables it.
package diag
