// Package audit persists an operational trail of probe attempts, gate
// transitions, and dispatch outcomes. Records are written asynchronously
// so the request path never blocks on storage, and old records are
// pruned on a cron schedule.
package audit
