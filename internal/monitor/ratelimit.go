package monitor

import (
	"sync"
	"time"
)

// RateLimitRecord tracks one external service's quota state.
type RateLimitRecord struct {
	Service                string
	ResetTime              time.Time
	RemainingRequests      int
	RequestCountThisWindow int
}

// RateLimits keeps per-service sliding request counters and reported limit
// windows. Expiry is lazy: a limit clears itself on the first check after
// ResetTime, no background timer involved.
type RateLimits struct {
	mu      sync.Mutex
	windows map[string][]time.Time      // recent request timestamps per service
	limits  map[string]*RateLimitRecord // active reported limits
	period  time.Duration               // sliding window length
	now     func() time.Time
}

// NewRateLimits creates a manager with a one-minute sliding window.
func NewRateLimits() *RateLimits {
	return &RateLimits{
		windows: make(map[string][]time.Time),
		limits:  make(map[string]*RateLimitRecord),
		period:  time.Minute,
		now:     time.Now,
	}
}

// SetClock overrides the time source for tests.
func (r *RateLimits) SetClock(now func() time.Time) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.now = now
}

var (
	defaultRateLimits     *RateLimits
	defaultRateLimitsOnce sync.Once
)

// DefaultRateLimits returns the process-wide manager.
func DefaultRateLimits() *RateLimits {
	defaultRateLimitsOnce.Do(func() {
		if defaultRateLimits == nil {
			defaultRateLimits = NewRateLimits()
		}
	})
	return defaultRateLimits
}

// TrackRequest records one request against the service's current window.
func (r *RateLimits) TrackRequest(service string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.pruneLocked(service)
	r.windows[service] = append(r.windows[service], r.now())
}

// CanMakeRequest reports whether the service is under limit requests in the
// current window and not inside a reported limit period.
func (r *RateLimits) CanMakeRequest(service string, limit int) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.limitedLocked(service) {
		return false
	}
	r.pruneLocked(service)
	return len(r.windows[service]) < limit
}

// RecordRateLimit marks a service as limited until resetTime, typically from
// a 429 response. remaining may be -1 when the service did not report it.
func (r *RateLimits) RecordRateLimit(service string, resetTime time.Time, remaining int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.limits[service] = &RateLimitRecord{
		Service:                service,
		ResetTime:              resetTime,
		RemainingRequests:      remaining,
		RequestCountThisWindow: len(r.windows[service]),
	}
}

// IsRateLimited reports whether the service is inside a reported limit
// period. Elapsed limits are cleared on access.
func (r *RateLimits) IsRateLimited(service string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.limitedLocked(service)
}

// TimeUntilReset returns how long until the service's limit clears, zero
// when it is not limited.
func (r *RateLimits) TimeUntilReset(service string) time.Duration {
	r.mu.Lock()
	defer r.mu.Unlock()
	if !r.limitedLocked(service) {
		return 0
	}
	return r.limits[service].ResetTime.Sub(r.now())
}

// Info returns a copy of the active limit record, nil when none.
func (r *RateLimits) Info(service string) *RateLimitRecord {
	r.mu.Lock()
	defer r.mu.Unlock()
	if !r.limitedLocked(service) {
		return nil
	}
	record := *r.limits[service]
	return &record
}

// ClearRateLimit removes any reported limit for the service.
func (r *RateLimits) ClearRateLimit(service string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.limits, service)
}

func (r *RateLimits) limitedLocked(service string) bool {
	record, ok := r.limits[service]
	if !ok {
		return false
	}
	if !r.now().Before(record.ResetTime) {
		delete(r.limits, service)
		return false
	}
	return true
}

func (r *RateLimits) pruneLocked(service string) {
	cutoff := r.now().Add(-r.period)
	window := r.windows[service]
	i := 0
	for i < len(window) && window[i].Before(cutoff) {
		i++
	}
	r.windows[service] = window[i:]
}
