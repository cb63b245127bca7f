package gate

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"
)

var errProbe = errors.New("connection refused")

// report feeds a scripted probe sequence into the gate.
// true = successful probe, false = failed probe.
func report(g *Gate, results ...bool) {
	for _, ok := range results {
		if ok {
			g.Report(nil)
		} else {
			g.Report(errProbe)
		}
	}
}

func TestGate_Transitions(t *testing.T) {
	tests := []struct {
		name        string
		maxFailures int
		results     []bool
		want        Status
	}{
		{
			name:        "ready on first probe",
			maxFailures: 5,
			results:     []bool{true},
			want:        StatusReady,
		},
		{
			name:        "ready after two failures",
			maxFailures: 5,
			results:     []bool{false, false, true},
			want:        StatusReady,
		},
		{
			name:        "ready on last allowed attempt",
			maxFailures: 5,
			results:     []bool{false, false, false, false, false, true},
			want:        StatusReady,
		},
		{
			name:        "failed after budget exhausted",
			maxFailures: 5,
			results:     []bool{false, false, false, false, false, false},
			want:        StatusFailed,
		},
		{
			name:        "still waiting within budget",
			maxFailures: 5,
			results:     []bool{false, false, false},
			want:        StatusWaiting,
		},
		{
			name:        "zero budget fails on first failure",
			maxFailures: 0,
			results:     []bool{false},
			want:        StatusFailed,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			g := New("datastore", tt.maxFailures, nil)
			report(g, tt.results...)

			if got := g.State(); got != tt.want {
				t.Errorf("State() = %s, want %s", got, tt.want)
			}
		})
	}
}

func TestGate_ReadyIsIrreversible(t *testing.T) {
	g := New("datastore", 2, nil)

	report(g, true)
	if got := g.State(); got != StatusReady {
		t.Fatalf("State() = %s, want ready", got)
	}

	// Failure reports after Ready are ignored, no matter how many.
	report(g, false, false, false, false, false)
	if got := g.State(); got != StatusReady {
		t.Errorf("State() = %s after post-ready failures, want ready", got)
	}
}

func TestGate_FailedIsTerminal(t *testing.T) {
	g := New("datastore", 0, nil)

	report(g, false)
	if got := g.State(); got != StatusFailed {
		t.Fatalf("State() = %s, want failed", got)
	}

	// A late success never resurrects a failed gate.
	report(g, true)
	if got := g.State(); got != StatusFailed {
		t.Errorf("State() = %s after post-failure success, want failed", got)
	}
}

func TestGate_ReadyExactlyOnce(t *testing.T) {
	g := New("datastore", 5, nil)

	// Concurrent success reports must produce exactly one transition;
	// the ready channel is closed once and never panics on double close.
	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			g.Report(nil)
		}()
	}
	wg.Wait()

	select {
	case <-g.Ready():
	default:
		t.Fatal("Ready() channel not closed after success report")
	}
	if got := g.State(); got != StatusReady {
		t.Errorf("State() = %s, want ready", got)
	}
}

func TestGate_Wait(t *testing.T) {
	t.Run("returns nil on ready", func(t *testing.T) {
		g := New("datastore", 5, nil)
		go func() {
			report(g, false, false, true)
		}()

		if err := g.Wait(context.Background()); err != nil {
			t.Errorf("Wait() = %v, want nil", err)
		}
	})

	t.Run("returns ErrExhausted on failure", func(t *testing.T) {
		g := New("datastore", 1, nil)
		go func() {
			report(g, false, false)
		}()

		if err := g.Wait(context.Background()); !errors.Is(err, ErrExhausted) {
			t.Errorf("Wait() = %v, want ErrExhausted", err)
		}
	})

	t.Run("returns context error on cancellation", func(t *testing.T) {
		g := New("datastore", 5, nil)
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
		defer cancel()

		if err := g.Wait(ctx); !errors.Is(err, context.DeadlineExceeded) {
			t.Errorf("Wait() = %v, want context.DeadlineExceeded", err)
		}
	})
}

func TestGate_Failures(t *testing.T) {
	g := New("datastore", 10, nil)
	report(g, false, false, false)

	if got := g.Failures(); got != 3 {
		t.Errorf("Failures() = %d, want 3", got)
	}
}
