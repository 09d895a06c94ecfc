package guard

import (
	"fmt"
	"sync"
)

// ClientLimiter caps the number of simultaneously active requests per client
// identifier. It is the only mutable state shared across conversion calls;
// counts live in process memory and reset to zero on restart.
type ClientLimiter struct {
	mu     sync.Mutex
	max    int
	active map[string]int
}

// NewClientLimiter creates a limiter allowing max active requests per client.
func NewClientLimiter(max int) *ClientLimiter {
	if max <= 0 {
		max = 1
	}
	return &ClientLimiter{max: max, active: make(map[string]int)}
}

// Acquire admits one request for clientID or fails immediately with
// ErrConcurrencyLimitExceeded. On success it returns a release function that
// must be called exactly when the request finishes, on every exit path;
// calling it more than once is a no-op.
func (l *ClientLimiter) Acquire(clientID string) (func(), error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.active[clientID] >= l.max {
		return nil, fmt.Errorf("%w: client %q has %d active requests (max %d)",
			ErrConcurrencyLimitExceeded, clientID, l.active[clientID], l.max)
	}
	l.active[clientID]++

	var once sync.Once
	release := func() {
		once.Do(func() {
			l.mu.Lock()
			defer l.mu.Unlock()
			if l.active[clientID]--; l.active[clientID] <= 0 {
				delete(l.active, clientID)
			}
		})
	}
	return release, nil
}

// Active reports the current active-request count for clientID.
func (l *ClientLimiter) Active(clientID string) int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.active[clientID]
}
