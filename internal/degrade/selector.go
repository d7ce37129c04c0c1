package degrade

import (
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"github.com/sony/gobreaker"

	"codeberg.org/lexiread/lexiread/internal/monitor"
)

// LocalService is the reserved name of the fully-local, offline-capable
// provider. When the network is gone it is the only selectable service.
const LocalService = "local"

// Feature names gated by the availability table.
const (
	FeatureSummarize      = "summarize"
	FeatureRewrite        = "rewrite"
	FeatureTranslate      = "translate"
	FeatureVocabulary     = "vocabulary"
	FeatureDetectLanguage = "detect_language"
	FeatureViewCached     = "view_cached"
)

var allFeatures = []string{
	FeatureSummarize,
	FeatureRewrite,
	FeatureTranslate,
	FeatureVocabulary,
	FeatureDetectLanguage,
	FeatureViewCached,
}

// Selector chooses which upstream service a unit of work should use, given
// connectivity, rate-limit state and per-service circuit breakers. A nil
// result from BestService means the caller must fall back to cached or
// offline content.
type Selector struct {
	network *monitor.Network
	limits  *monitor.RateLimits
	logger  zerolog.Logger

	mu       sync.Mutex
	breakers map[string]*gobreaker.TwoStepCircuitBreaker
}

// NewSelector creates a selector over the given monitors.
func NewSelector(network *monitor.Network, limits *monitor.RateLimits, logger zerolog.Logger) *Selector {
	return &Selector{
		network:  network,
		limits:   limits,
		logger:   logger,
		breakers: make(map[string]*gobreaker.TwoStepCircuitBreaker),
	}
}

func (s *Selector) breaker(service string) *gobreaker.TwoStepCircuitBreaker {
	s.mu.Lock()
	defer s.mu.Unlock()
	cb, ok := s.breakers[service]
	if !ok {
		cb = gobreaker.NewTwoStepCircuitBreaker(gobreaker.Settings{
			Name:    service,
			Timeout: 30 * time.Second,
			ReadyToTrip: func(counts gobreaker.Counts) bool {
				return counts.ConsecutiveFailures >= 5
			},
		})
		s.breakers[service] = cb
	}
	return cb
}

// BestService returns the first candidate that is currently usable, in the
// caller's preference order. Offline, only the reserved local service
// qualifies. Rate-limited services and services with an open circuit
// breaker are skipped. ok is false when every candidate is unusable.
func (s *Selector) BestService(candidates []string) (service string, ok bool) {
	if !s.network.Online() {
		for _, c := range candidates {
			if c == LocalService {
				return LocalService, true
			}
		}
		return "", false
	}

	for _, c := range candidates {
		if s.limits.IsRateLimited(c) {
			s.logger.Debug().Str("service", c).Msg("skipping rate-limited service")
			continue
		}
		if s.breaker(c).State() == gobreaker.StateOpen {
			s.logger.Debug().Str("service", c).Msg("skipping service with open breaker")
			continue
		}
		return c, true
	}
	return "", false
}

// Begin registers the start of one request against the service's breaker
// and sliding rate counter. The returned done must be called with the
// request outcome. Begin fails when the breaker rejects the request.
func (s *Selector) Begin(service string) (done func(success bool), err error) {
	done, err = s.breaker(service).Allow()
	if err != nil {
		return nil, err
	}
	s.limits.TrackRequest(service)
	return done, nil
}

// DegradedModeMessage explains which services are unavailable and what
// still works.
func DegradedModeMessage(unavailable []string) string {
	if len(unavailable) == 0 {
		return "All AI services are available."
	}
	return "AI services currently unavailable: " + strings.Join(unavailable, ", ") +
		". Cached articles and saved vocabulary remain readable; new processing will retry automatically."
}

// FeatureAvailable answers whether a feature is usable right now.
// Viewing cached content is always available; local language detection
// works offline; everything else needs a usable remote service.
func (s *Selector) FeatureAvailable(feature string, candidates []string) bool {
	switch feature {
	case FeatureViewCached:
		return true
	case FeatureDetectLanguage:
		return true // served by the local provider when offline
	case FeatureSummarize, FeatureRewrite, FeatureTranslate, FeatureVocabulary:
		service, ok := s.BestService(candidates)
		return ok && service != LocalService
	default:
		return false
	}
}

// AvailableFeatures lists the currently usable features.
func (s *Selector) AvailableFeatures(candidates []string) []string {
	var available []string
	for _, feature := range allFeatures {
		if s.FeatureAvailable(feature, candidates) {
			available = append(available, feature)
		}
	}
	return available
}
