package errs

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"

	"github.com/sashabaranov/go-openai"
)

// Kind identifies the failure category of an Error. The set is closed:
// every failure crossing a collaborator boundary is normalized to exactly
// one of these.
type Kind string

const (
	KindNetwork                 Kind = "network"
	KindAPIUnavailable          Kind = "api_unavailable"
	KindRateLimit               Kind = "rate_limit"
	KindInvalidInput            Kind = "invalid_input"
	KindProcessingFailed        Kind = "processing_failed"
	KindContentExtractionFailed Kind = "content_extraction_failed"
	KindStorageQuotaExceeded    Kind = "storage_quota_exceeded"
	KindInvalidAPIKey           Kind = "invalid_api_key"
	KindInsufficientHardware    Kind = "insufficient_hardware"
)

// Error is the normalized failure type used throughout the pipeline.
// It is created once at the boundary where the failure occurred and
// propagated unchanged; callers never re-wrap an already-normalized error.
type Error struct {
	Kind            Kind
	Message         string
	Retryable       bool
	UserMessage     string
	SuggestedAction string
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

// guidanceEntry pairs the fixed user-facing text attached to each kind.
type guidanceEntry struct {
	userMessage     string
	suggestedAction string
}

var guidance = map[Kind]guidanceEntry{
	KindNetwork: {
		userMessage:     "Could not reach the service. Check your internet connection.",
		suggestedAction: "Verify connectivity and try again.",
	},
	KindAPIUnavailable: {
		userMessage:     "The AI service is temporarily unavailable.",
		suggestedAction: "Wait a moment and retry, or switch to cached content.",
	},
	KindRateLimit: {
		userMessage:     "Too many requests were sent in a short time.",
		suggestedAction: "Wait for the rate limit window to reset before retrying.",
	},
	KindInvalidInput: {
		userMessage:     "The provided content could not be processed.",
		suggestedAction: "Check the input text and try again.",
	},
	KindProcessingFailed: {
		userMessage:     "Processing failed unexpectedly.",
		suggestedAction: "Retry the operation; report the problem if it persists.",
	},
	KindContentExtractionFailed: {
		userMessage:     "No readable article content was found.",
		suggestedAction: "Try a different page or select the text manually.",
	},
	KindStorageQuotaExceeded: {
		userMessage:     "Local storage is full.",
		suggestedAction: "Clear cached articles to free up space.",
	},
	KindInvalidAPIKey: {
		userMessage:     "The configured API key was rejected.",
		suggestedAction: "Check the API key in your configuration.",
	},
	KindInsufficientHardware: {
		userMessage:     "This device cannot run the local model.",
		suggestedAction: "Use a remote AI service instead.",
	},
}

// New creates a normalized Error of the given kind. The user-facing
// message and suggested action are attached from a fixed per-kind table.
func New(kind Kind, message string, retryable bool) *Error {
	g := guidance[kind]
	return &Error{
		Kind:            kind,
		Message:         message,
		Retryable:       retryable,
		UserMessage:     g.userMessage,
		SuggestedAction: g.suggestedAction,
	}
}

// Classify normalizes an arbitrary error into an *Error. Already-normalized
// errors pass through untouched. Unknown failures become a non-retryable
// processing_failed.
func Classify(err error) *Error {
	if err == nil {
		return nil
	}

	var typed *Error
	if errors.As(err, &typed) {
		return typed
	}

	// Timeouts and cancellations are treated as transient network failures:
	// the in-flight call is abandoned and the retry engine backs off.
	if errors.Is(err, context.DeadlineExceeded) {
		return New(KindNetwork, "request timed out: "+err.Error(), true)
	}
	if errors.Is(err, context.Canceled) {
		return New(KindNetwork, "request canceled: "+err.Error(), true)
	}

	var apiErr *openai.APIError
	if errors.As(err, &apiErr) {
		return classifyHTTPStatus(apiErr.HTTPStatusCode, err)
	}

	var netErr net.Error
	if errors.As(err, &netErr) {
		return New(KindNetwork, err.Error(), true)
	}

	return New(KindProcessingFailed, err.Error(), false)
}

func classifyHTTPStatus(status int, err error) *Error {
	switch {
	case status == http.StatusUnauthorized || status == http.StatusForbidden:
		return New(KindInvalidAPIKey, err.Error(), false)
	case status == http.StatusTooManyRequests:
		return New(KindRateLimit, err.Error(), true)
	case status == http.StatusBadRequest || status == http.StatusUnprocessableEntity:
		return New(KindInvalidInput, err.Error(), false)
	case status >= 500:
		return New(KindAPIUnavailable, err.Error(), true)
	default:
		return New(KindProcessingFailed, err.Error(), false)
	}
}

// Severity of the user-visible presentation for a kind.
const (
	SeverityError   = "error"
	SeverityWarning = "warning"
)

// Presentation is the fixed user-visible tuple for an error kind.
type Presentation struct {
	Title    string
	Message  string
	Action   string
	Severity string
}

var titles = map[Kind]string{
	KindNetwork:                 "Connection Problem",
	KindAPIUnavailable:          "Service Unavailable",
	KindRateLimit:               "Rate Limited",
	KindInvalidInput:            "Invalid Input",
	KindProcessingFailed:        "Processing Failed",
	KindContentExtractionFailed: "No Article Found",
	KindStorageQuotaExceeded:    "Storage Full",
	KindInvalidAPIKey:           "Invalid API Key",
	KindInsufficientHardware:    "Device Not Supported",
}

// Present maps an error to its user-visible presentation. Retryable kinds
// are warnings, non-retryable kinds are errors.
func Present(e *Error) Presentation {
	severity := SeverityError
	if e.Retryable {
		severity = SeverityWarning
	}
	return Presentation{
		Title:    titles[e.Kind],
		Message:  e.UserMessage,
		Action:   e.SuggestedAction,
		Severity: severity,
	}
}
