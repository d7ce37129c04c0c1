// Package cache implements the bounded content cache shared by all batch
// operations. Three independent ledgers (source documents, translated terms,
// derived content) each carry their own capacity, default TTL and hit/miss
// counters. Eviction is least-recently-used; expiry is swept by Maintain.
package cache
