// Package errs defines the closed error taxonomy for the pipeline. Failures
// from AI providers, storage and the network are normalized into a typed
// Error exactly once, at the boundary where they occur, and carry fixed
// user-facing guidance per kind.
package errs
