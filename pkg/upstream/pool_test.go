package upstream

import (
	"errors"
	"sync"
	"testing"
)

func testEndpoints(n int) []Endpoint {
	names := []string{"app-1", "app-2", "app-3", "app-4", "app-5"}
	endpoints := make([]Endpoint, 0, n)
	for i := 0; i < n; i++ {
		endpoints = append(endpoints, Endpoint{
			Name: names[i],
			Host: "127.0.0.1",
			Port: 4000 + i,
		})
	}
	return endpoints
}

func TestPool_NextEmpty(t *testing.T) {
	pool := NewPool(nil)

	_, err := pool.Next()
	if !errors.Is(err, ErrPoolEmpty) {
		t.Fatalf("Next() on empty pool: got %v, want ErrPoolEmpty", err)
	}
}

func TestPool_RoundRobin(t *testing.T) {
	tests := []struct {
		name string
		k    int
	}{
		{name: "single endpoint", k: 1},
		{name: "two endpoints", k: 2},
		{name: "five endpoints", k: 5},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			pool := NewPool(nil)
			for _, e := range testEndpoints(tt.k) {
				pool.Register(e)
			}

			// k consecutive calls must return each endpoint exactly once.
			seen := make(map[string]int)
			for i := 0; i < tt.k; i++ {
				e, err := pool.Next()
				if err != nil {
					t.Fatalf("Next() error: %v", err)
				}
				seen[e.Addr()]++
			}

			if len(seen) != tt.k {
				t.Errorf("got %d distinct endpoints, want %d", len(seen), tt.k)
			}
			for addr, count := range seen {
				if count != 1 {
					t.Errorf("endpoint %s selected %d times, want 1", addr, count)
				}
			}
		})
	}
}

func TestPool_RoundRobinOrder(t *testing.T) {
	pool := NewPool(nil)
	a := Endpoint{Name: "a", Host: "127.0.0.1", Port: 4000}
	b := Endpoint{Name: "b", Host: "127.0.0.1", Port: 4001}
	pool.Register(a)
	pool.Register(b)

	first, err := pool.Next()
	if err != nil {
		t.Fatalf("Next() error: %v", err)
	}
	if first.Name != "a" {
		t.Fatalf("first selection = %s, want a", first.Name)
	}

	// After dispatching to a, the next dispatch must select b.
	second, err := pool.Next()
	if err != nil {
		t.Fatalf("Next() error: %v", err)
	}
	if second.Name != "b" {
		t.Errorf("second selection = %s, want b", second.Name)
	}
}

func TestPool_RegisterIdempotent(t *testing.T) {
	pool := NewPool(nil)
	e := Endpoint{Name: "app-1", Host: "127.0.0.1", Port: 4000}

	pool.Register(e)
	pool.Register(e)
	pool.Register(Endpoint{Name: "renamed", Host: "127.0.0.1", Port: 4000})

	if got := pool.Len(); got != 1 {
		t.Errorf("Len() = %d after duplicate registration, want 1", got)
	}
}

func TestPool_DeregisterIdempotent(t *testing.T) {
	pool := NewPool(nil)
	e := Endpoint{Name: "app-1", Host: "127.0.0.1", Port: 4000}

	// Deregistering a non-member is a no-op.
	pool.Deregister(e)
	if got := pool.Len(); got != 0 {
		t.Fatalf("Len() = %d, want 0", got)
	}

	pool.Register(e)
	pool.Deregister(e)
	pool.Deregister(e)

	if got := pool.Len(); got != 0 {
		t.Errorf("Len() = %d after deregistration, want 0", got)
	}
	if _, err := pool.Next(); !errors.Is(err, ErrPoolEmpty) {
		t.Errorf("Next() after deregistration: got %v, want ErrPoolEmpty", err)
	}
}

func TestPool_ConcurrentNext(t *testing.T) {
	const (
		k          = 3
		goroutines = 8
		perRoutine = 300
	)

	pool := NewPool(nil)
	for _, e := range testEndpoints(k) {
		pool.Register(e)
	}

	var mu sync.Mutex
	counts := make(map[string]int)

	var wg sync.WaitGroup
	for g := 0; g < goroutines; g++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			local := make(map[string]int)
			for i := 0; i < perRoutine; i++ {
				e, err := pool.Next()
				if err != nil {
					t.Errorf("Next() error: %v", err)
					return
				}
				local[e.Addr()]++
			}
			mu.Lock()
			for addr, n := range local {
				counts[addr] += n
			}
			mu.Unlock()
		}()
	}
	wg.Wait()

	total := 0
	for _, n := range counts {
		total += n
	}
	if total != goroutines*perRoutine {
		t.Fatalf("total selections = %d, want %d", total, goroutines*perRoutine)
	}

	// Distribution must be exactly even: the cursor is a shared atomic,
	// so every endpoint receives total/k selections.
	want := total / k
	for addr, n := range counts {
		if n != want {
			t.Errorf("endpoint %s selected %d times, want %d", addr, n, want)
		}
	}
}

func TestPool_Reconcile(t *testing.T) {
	pool := NewPool(nil)
	a := Endpoint{Name: "a", Host: "127.0.0.1", Port: 4000}
	b := Endpoint{Name: "b", Host: "127.0.0.1", Port: 4001}
	c := Endpoint{Name: "c", Host: "127.0.0.1", Port: 4002}

	pool.Register(a)
	pool.Register(b)

	pool.Reconcile([]Endpoint{b, c})

	snapshot := pool.Snapshot()
	if len(snapshot) != 2 {
		t.Fatalf("Len() = %d after reconcile, want 2", len(snapshot))
	}
	// b was already a member and keeps its position.
	if snapshot[0].Name != "b" || snapshot[1].Name != "c" {
		t.Errorf("snapshot = [%s %s], want [b c]", snapshot[0].Name, snapshot[1].Name)
	}
}

func TestPool_OnChange(t *testing.T) {
	pool := NewPool(nil)

	var sizes []int
	pool.OnChange(func(size int) { sizes = append(sizes, size) })

	e := Endpoint{Name: "a", Host: "127.0.0.1", Port: 4000}
	pool.Register(e)
	pool.Register(e) // no-op, must not notify
	pool.Deregister(e)

	if len(sizes) != 2 || sizes[0] != 1 || sizes[1] != 0 {
		t.Errorf("onChange sizes = %v, want [1 0]", sizes)
	}
}

func TestEndpoint_Validate(t *testing.T) {
	tests := []struct {
		name     string
		endpoint Endpoint
		wantErr  bool
	}{
		{
			name:     "valid",
			endpoint: Endpoint{Name: "a", Host: "10.0.0.1", Port: 8080},
			wantErr:  false,
		},
		{
			name:     "empty host",
			endpoint: Endpoint{Name: "a", Port: 8080},
			wantErr:  true,
		},
		{
			name:     "zero port",
			endpoint: Endpoint{Name: "a", Host: "10.0.0.1"},
			wantErr:  true,
		},
		{
			name:     "port out of range",
			endpoint: Endpoint{Name: "a", Host: "10.0.0.1", Port: 70000},
			wantErr:  true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.endpoint.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestEndpoint_URL(t *testing.T) {
	e := Endpoint{Name: "a", Host: "10.0.0.1", Port: 8080}
	if got := e.URL().String(); got != "http://10.0.0.1:8080" {
		t.Errorf("URL() = %s, want http://10.0.0.1:8080", got)
	}
}
