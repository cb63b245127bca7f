package audit

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Record kinds.
const (
	KindProbe    = "probe"
	KindGate     = "gate"
	KindDispatch = "dispatch"
)

// Record is a single audit trail entry.
type Record struct {
	// ID is a unique identifier for the record.
	ID string

	// Time is when the recorded event happened.
	Time time.Time

	// Kind classifies the event: probe, gate, or dispatch.
	Kind string

	// Target names what the event acted on: a probe name, a gate name,
	// or an upstream address.
	Target string

	// Outcome is a short free-form result, e.g. "ready", "failed",
	// "exhausted", or an error summary.
	Outcome string

	// Status is the HTTP status for dispatch records, zero otherwise.
	Status int

	// LatencyMS is the observed latency in milliseconds, when measured.
	LatencyMS int64

	// RequestID correlates dispatch records with request logs.
	RequestID string
}

// NewRecord creates a record stamped with a fresh ID and the current time.
func NewRecord(kind, target, outcome string) *Record {
	return &Record{
		ID:      uuid.NewString(),
		Time:    time.Now().UTC(),
		Kind:    kind,
		Target:  target,
		Outcome: outcome,
	}
}

// Query filters records when listing the trail. Zero values mean
// "no constraint".
type Query struct {
	Kind   string
	Target string
	Since  time.Time
	Limit  int
}

// Storage persists audit records.
type Storage interface {
	// Store persists a single record.
	Store(ctx context.Context, record *Record) error

	// List returns records matching the query, newest first.
	List(ctx context.Context, q Query) ([]*Record, error)

	// DeleteOlderThan removes records with Time before the cutoff and
	// returns how many were removed.
	DeleteOlderThan(ctx context.Context, cutoff time.Time) (int64, error)

	// Count returns the total number of stored records.
	Count(ctx context.Context) (int64, error)

	// Close releases storage resources.
	Close() error
}

// StorageError wraps a storage failure with the backend and operation
// that produced it.
type StorageError struct {
	Backend string
	Op      string
	Err     error
}

func (e *StorageError) Error() string {
	return fmt.Sprintf("audit storage (%s) %s: %v", e.Backend, e.Op, e.Err)
}

func (e *StorageError) Unwrap() error {
	return e.Err
}

func newStorageError(backend, op string, err error) *StorageError {
	return &StorageError{Backend: backend, Op: op, Err: err}
}
