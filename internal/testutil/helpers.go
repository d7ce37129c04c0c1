package testutil

import (
	"testing"

	"github.com/rs/zerolog"

	"codeberg.org/lexiread/lexiread/internal/cache"
	"codeberg.org/lexiread/lexiread/internal/degrade"
	"codeberg.org/lexiread/lexiread/internal/monitor"
	"codeberg.org/lexiread/lexiread/internal/provider"
	"codeberg.org/lexiread/lexiread/internal/storage"
)

// Stack bundles the runtime pieces most pipeline tests need: an in-memory
// cache, a network monitor that starts online, rate limit tracking, a
// degradation selector, and a provider registry.
type Stack struct {
	KV       *storage.Memory
	Cache    *cache.Store
	Network  *monitor.Network
	Limits   *monitor.RateLimits
	Selector *degrade.Selector
	Registry *provider.Registry
}

// NewStack creates a Stack backed entirely by memory. The given providers
// are registered in order, which also fixes the service preference order.
func NewStack(t *testing.T, providers ...provider.Provider) *Stack {
	t.Helper()

	kv := storage.NewMemory()
	cacheStore := cache.New(cache.DefaultConfig(), cache.WithKV(kv))

	network := monitor.NewNetwork(zerolog.Nop())
	limits := monitor.NewRateLimits()
	selector := degrade.NewSelector(network, limits, zerolog.Nop())

	registry := provider.NewRegistry()
	for _, p := range providers {
		registry.Register(p)
	}

	return &Stack{
		KV:       kv,
		Cache:    cacheStore,
		Network:  network,
		Limits:   limits,
		Selector: selector,
		Registry: registry,
	}
}

// Services returns the registered service names in preference order.
func (s *Stack) Services() []string {
	return s.Registry.Candidates()
}
