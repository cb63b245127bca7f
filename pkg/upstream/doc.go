// Package upstream manages the set of backend endpoints eligible to
// receive proxied traffic.
//
// The Pool is the single owner of endpoint membership. Registration and
// deregistration are explicit and idempotent; selection is round-robin
// over a snapshot of the current members, safe for concurrent use from
// many in-flight requests.
//
// An optional Watcher keeps the pool reconciled against a YAML endpoints
// file on disk, so an external supervisor can add or remove backend
// replicas without restarting the front door.
package upstream
