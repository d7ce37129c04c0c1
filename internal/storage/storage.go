package storage

import "context"

// KV is the persistent key-value surface the cache writes through. It
// mirrors an extension storage area: batched gets and sets, removal by key
// and a usage accessor. Set may fail with a quota-exceeded condition; the
// cache tolerates that.
type KV interface {
	Get(ctx context.Context, keys []string) (map[string][]byte, error)
	Set(ctx context.Context, items map[string][]byte) error
	Remove(ctx context.Context, keys []string) error
	Clear(ctx context.Context) error
	BytesInUse(ctx context.Context) (int64, error)
}
