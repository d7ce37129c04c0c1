// Package storage provides the persistent key-value store behind the cache.
// The SQLite implementation keeps cached articles and translations across
// restarts; the Memory implementation serves tests and cache-only runs.
package storage
