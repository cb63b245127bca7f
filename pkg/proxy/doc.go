// Package proxy implements the front door: the single network entry
// point that classifies each inbound request against the fixed route
// table, serves static assets directly and forwards API traffic to the
// upstream pool.
//
// The front door never crashes on a request: an empty pool is a 503, a
// failed upstream dispatch is a 502, a handler panic is a 500. A client
// that disconnects mid-dispatch abandons the upstream attempt via
// context propagation; nothing is retried against another pool member.
package proxy
