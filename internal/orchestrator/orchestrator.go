package orchestrator

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"codeberg.org/lexiread/lexiread/internal/cache"
	"codeberg.org/lexiread/lexiread/internal/degrade"
	"codeberg.org/lexiread/lexiread/internal/errs"
	"codeberg.org/lexiread/lexiread/internal/monitor"
	"codeberg.org/lexiread/lexiread/internal/provider"
	"codeberg.org/lexiread/lexiread/internal/retry"
)

const (
	// DefaultMaxConcurrency caps simultaneously in-flight provider calls
	// per batch.
	DefaultMaxConcurrency = 3

	// defaultCallTimeout bounds any single provider invocation. A timeout
	// abandons the in-flight call and is retried as a network failure.
	defaultCallTimeout = 60 * time.Second

	// maxVocabBatch bounds how many words one analysis request may carry.
	maxVocabBatch = 10

	// rateLimitCooldown is assumed when a provider reports a rate limit
	// without a reset time.
	rateLimitCooldown = 30 * time.Second
)

// Orchestrator drives batched article and vocabulary processing over the
// cache, the degradation selector and the retry engine. One Orchestrator
// serves any number of concurrent batch calls; per-batch state lives in the
// values it returns, never in the Orchestrator itself.
type Orchestrator struct {
	store       *cache.Store
	selector    *degrade.Selector
	limits      *monitor.RateLimits
	registry    *provider.Registry
	retrier     *retry.Retrier
	logger      zerolog.Logger
	callTimeout time.Duration
}

// Option configures an Orchestrator.
type Option func(*Orchestrator)

// WithRetrier overrides the default retry policy.
func WithRetrier(r *retry.Retrier) Option {
	return func(o *Orchestrator) { o.retrier = r }
}

// WithLogger sets the orchestrator logger.
func WithLogger(logger zerolog.Logger) Option {
	return func(o *Orchestrator) { o.logger = logger }
}

// WithCallTimeout overrides the per-provider-call timeout.
func WithCallTimeout(d time.Duration) Option {
	return func(o *Orchestrator) { o.callTimeout = d }
}

// New creates an Orchestrator over the given collaborators.
func New(store *cache.Store, selector *degrade.Selector, limits *monitor.RateLimits, registry *provider.Registry, opts ...Option) *Orchestrator {
	o := &Orchestrator{
		store:       store,
		selector:    selector,
		limits:      limits,
		registry:    registry,
		retrier:     retry.New(),
		logger:      zerolog.Nop(),
		callTimeout: defaultCallTimeout,
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// callProvider runs one provider operation on the named service with the
// full resilience stack: circuit-breaker admission, a per-call timeout and
// the retry engine. Rate-limit failures mark the service limited so the
// selector steers subsequent units elsewhere.
func callProvider[T any](ctx context.Context, o *Orchestrator, service, label string, fn func(ctx context.Context, p provider.Provider) (T, error)) (T, error) {
	var zero T
	p, ok := o.registry.Get(service)
	if !ok {
		return zero, errs.New(errs.KindAPIUnavailable, "no provider registered for "+service, false)
	}

	return retry.Do(ctx, o.retrier, label, func(ctx context.Context) (T, error) {
		done, err := o.selector.Begin(service)
		if err != nil {
			// Breaker open: not ready yet, worth retrying later.
			return zero, errs.New(errs.KindAPIUnavailable, service+" temporarily suspended: "+err.Error(), true)
		}

		callCtx, cancel := context.WithTimeout(ctx, o.callTimeout)
		defer cancel()

		result, err := fn(callCtx, p)
		if err != nil {
			typed := errs.Classify(err)
			done(false)
			if typed.Kind == errs.KindRateLimit {
				o.limits.RecordRateLimit(service, time.Now().Add(rateLimitCooldown), 0)
			}
			return zero, typed
		}
		done(true)
		return result, nil
	})
}
