// Package degrade selects which AI service a unit of work should use, or
// whether to fall back to cached and offline content. Selection considers
// connectivity, per-service rate limits and circuit-breaker state.
package degrade
