// Package progress implements the observable state machine that reports
// unit and byte progress of long-running operations to any number of
// listeners. Specialized messages (model downloads, multi-part articles,
// word streaming) are formatting variants over the same machine.
package progress
