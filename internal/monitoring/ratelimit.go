package monitoring

import (
	"sync"
	"time"

	"golang.org/x/time/rate"

	"github.com/banshee-data/topmass/internal/timeutil"
)

// RateLimiter forwards at most Burst messages per key per Window to Logf,
// refilling at Burst/Window. The next message forwarded after a drop is
// preceded by a count of the dropped ones.
type RateLimiter struct {
	Burst  int
	Window time.Duration

	clock timeutil.Clock
	mu    sync.Mutex
	keys  map[string]*rateState
}

type rateState struct {
	lim        *rate.Limiter
	suppressed int
}

// NewRateLimiter returns a limiter using clock (nil means the real clock).
func NewRateLimiter(clock timeutil.Clock, burst int, window time.Duration) *RateLimiter {
	if clock == nil {
		clock = timeutil.RealClock{}
	}
	return &RateLimiter{Burst: max(burst, 1), Window: window, clock: clock, keys: make(map[string]*rateState)}
}

// Logf logs through the package logger unless key is over its budget.
// A nil limiter logs nothing.
func (r *RateLimiter) Logf(key, format string, v ...interface{}) {
	if r == nil {
		return
	}
	r.mu.Lock()
	st, ok := r.keys[key]
	if !ok {
		st = &rateState{lim: rate.NewLimiter(rate.Every(r.Window/time.Duration(r.Burst)), r.Burst)}
		r.keys[key] = st
	}
	if !st.lim.AllowN(r.clock.Now(), 1) {
		st.suppressed++
		r.mu.Unlock()
		return
	}
	suppressed := st.suppressed
	st.suppressed = 0
	r.mu.Unlock()

	if suppressed > 0 {
		Logf("%s: suppressed %d messages", key, suppressed)
	}
	Logf(format, v...)
}

// Suppressed returns the number of messages dropped for key since the
// last one forwarded.
func (r *RateLimiter) Suppressed(key string) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	if st, ok := r.keys[key]; ok {
		return st.suppressed
	}
	return 0
}
