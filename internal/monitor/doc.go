// Package monitor tracks the runtime conditions the degradation selector
// decides on: network connectivity, per-service rate-limit windows and
// offline-mode capabilities derived from cached content.
package monitor
