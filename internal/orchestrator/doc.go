// Package orchestrator turns unreliable AI service calls into predictable
// batch runs. It splits documents into ordered chunks, fans work out under
// a bounded admission count, merges cache hits with live provider results
// and keeps one unit's exhausted retries from ever aborting its siblings.
package orchestrator
