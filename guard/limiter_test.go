package guard

import (
	"errors"
	"sync"
	"testing"
)

func TestClientLimiterCap(t *testing.T) {
	// WHAT: N simultaneous acquisitions against a cap of C yield exactly
	// max(0, N-C) immediate rejections, and the counter returns to 0 once
	// every admitted request releases.
	const n, cap = 10, 3
	l := NewClientLimiter(cap)

	var mu sync.Mutex
	var releases []func()
	rejected := 0

	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			release, err := l.Acquire("client-a")
			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				if !errors.Is(err, ErrConcurrencyLimitExceeded) {
					t.Errorf("unexpected error: %v", err)
				}
				rejected++
				return
			}
			releases = append(releases, release)
		}()
	}
	wg.Wait()

	if rejected != n-cap {
		t.Errorf("rejected = %d, want %d", rejected, n-cap)
	}
	if got := l.Active("client-a"); got != cap {
		t.Errorf("active = %d, want %d", got, cap)
	}

	for _, r := range releases {
		r()
	}
	if got := l.Active("client-a"); got != 0 {
		t.Errorf("active after release = %d, want 0", got)
	}
}

func TestClientLimiterReleaseIdempotent(t *testing.T) {
	l := NewClientLimiter(2)
	release, err := l.Acquire("c")
	if err != nil {
		t.Fatal(err)
	}
	release()
	release() // second call must not underflow
	if got := l.Active("c"); got != 0 {
		t.Errorf("active = %d, want 0", got)
	}
}

func TestClientLimiterIsolatesClients(t *testing.T) {
	l := NewClientLimiter(1)
	relA, err := l.Acquire("a")
	if err != nil {
		t.Fatal(err)
	}
	defer relA()

	// A saturated client does not block others.
	relB, err := l.Acquire("b")
	if err != nil {
		t.Fatalf("client b should be admitted: %v", err)
	}
	relB()

	if _, err := l.Acquire("a"); !errors.Is(err, ErrConcurrencyLimitExceeded) {
		t.Errorf("client a over cap: got %v", err)
	}
}
