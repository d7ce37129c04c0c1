// Package retry runs provider and storage operations with exponential
// backoff and jitter. Failures are classified through the errs taxonomy:
// retryable kinds back off and retry, non-retryable kinds fail fast.
package retry
