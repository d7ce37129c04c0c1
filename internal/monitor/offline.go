package monitor

import (
	"codeberg.org/lexiread/lexiread/internal/cache"
)

// OfflineCapabilities reports which content categories have cached material
// available for offline use.
type OfflineCapabilities struct {
	Articles   bool
	Vocabulary bool
	Sentences  bool
}

// Any reports whether anything at all is usable offline.
func (c OfflineCapabilities) Any() bool {
	return c.Articles || c.Vocabulary || c.Sentences
}

const offlineMessage = "You are offline. Previously processed articles and saved vocabulary remain available; new AI processing will resume when the connection returns."

// OfflineMode answers what the pipeline can still do without a network,
// based on what the cache currently holds.
type OfflineMode struct {
	network *Network
	store   *cache.Store
}

// NewOfflineMode creates an offline-mode manager over the given monitor and
// cache store.
func NewOfflineMode(network *Network, store *cache.Store) *OfflineMode {
	return &OfflineMode{network: network, store: store}
}

// Available reports whether offline mode has any usable cached content.
func (o *OfflineMode) Available() bool {
	return o.Capabilities().Any()
}

// Capabilities reports per-category cached-content availability.
func (o *OfflineMode) Capabilities() OfflineCapabilities {
	return OfflineCapabilities{
		Articles:   o.store.Len(cache.LedgerDocuments) > 0,
		Vocabulary: o.store.Len(cache.LedgerTranslations) > 0,
		Sentences:  o.store.Len(cache.LedgerDerived) > 0,
	}
}

// Message returns the fixed human-readable offline explanation.
func (o *OfflineMode) Message() string {
	return offlineMessage
}
