package monitor

import (
	"sync"

	"github.com/rs/zerolog"
)

// Quality is the coarse connection quality bucket.
type Quality string

const (
	QualityGood    Quality = "good"
	QualityPoor    Quality = "poor"
	QualityOffline Quality = "offline"
)

// NetworkStatus is a snapshot of the connectivity state.
type NetworkStatus struct {
	Online  bool
	Quality Quality
}

// NetworkListener is notified on connectivity transitions.
type NetworkListener func(status NetworkStatus)

// Network tracks connectivity. Transitions are fed in explicitly through
// SetOnline / SetQualityHint (wired to whatever connectivity signal the host
// exposes), which keeps transitions deterministic in tests. Listeners are
// held in an ordered registry and notified in subscription order.
type Network struct {
	mu        sync.Mutex
	online    bool
	hint      Quality // coarse bandwidth/RTT hint, empty when unavailable
	listeners []networkSubscription
	nextID    int
	logger    zerolog.Logger
}

type networkSubscription struct {
	id int
	fn NetworkListener
}

// NewNetwork creates a monitor that starts online.
func NewNetwork(logger zerolog.Logger) *Network {
	return &Network{online: true, logger: logger}
}

var (
	defaultNetwork     *Network
	defaultNetworkOnce sync.Once
)

// DefaultNetwork returns the process-wide monitor.
func DefaultNetwork() *Network {
	defaultNetworkOnce.Do(func() {
		if defaultNetwork == nil {
			defaultNetwork = NewNetwork(zerolog.Nop())
		}
	})
	return defaultNetwork
}

// Online reports whether the network is currently reachable.
func (n *Network) Online() bool {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.online
}

// Status returns the current snapshot.
func (n *Network) Status() NetworkStatus {
	n.mu.Lock()
	defer n.mu.Unlock()
	return NetworkStatus{Online: n.online, Quality: n.qualityLocked()}
}

// Quality derives the connection quality. Without a bandwidth/RTT hint it
// collapses to good when online and offline otherwise.
func (n *Network) Quality() Quality {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.qualityLocked()
}

func (n *Network) qualityLocked() Quality {
	if !n.online {
		return QualityOffline
	}
	if n.hint == QualityPoor {
		return QualityPoor
	}
	return QualityGood
}

// SetOnline records a connectivity transition and notifies listeners when
// the state actually changed.
func (n *Network) SetOnline(online bool) {
	n.mu.Lock()
	if n.online == online {
		n.mu.Unlock()
		return
	}
	n.online = online
	status := NetworkStatus{Online: online, Quality: n.qualityLocked()}
	listeners := make([]networkSubscription, len(n.listeners))
	copy(listeners, n.listeners)
	n.mu.Unlock()

	n.logger.Info().Bool("online", online).Str("quality", string(status.Quality)).Msg("connectivity changed")
	for _, sub := range listeners {
		sub.fn(status)
	}
}

// SetQualityHint records a coarse quality hint (QualityPoor or QualityGood)
// from the platform, when one is available.
func (n *Network) SetQualityHint(hint Quality) {
	n.mu.Lock()
	n.hint = hint
	n.mu.Unlock()
}

// Subscribe registers a listener and returns a handle for Unsubscribe.
func (n *Network) Subscribe(fn NetworkListener) int {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.nextID++
	n.listeners = append(n.listeners, networkSubscription{id: n.nextID, fn: fn})
	return n.nextID
}

// Unsubscribe removes a listener by handle.
func (n *Network) Unsubscribe(id int) {
	n.mu.Lock()
	defer n.mu.Unlock()
	for i, sub := range n.listeners {
		if sub.id == id {
			n.listeners = append(n.listeners[:i], n.listeners[i+1:]...)
			return
		}
	}
}
