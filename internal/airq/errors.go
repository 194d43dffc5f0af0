package airq

import "errors"

var (
	// ErrFetchUnavailable indicates the upstream fetch failed or timed out.
	ErrFetchUnavailable = errors.New("upstream air quality data unavailable")

	// ErrMalformedPayload indicates the fetch succeeded but required fields
	// were missing or unparseable.
	ErrMalformedPayload = errors.New("malformed upstream payload")

	// ErrNotConfigured indicates the target has no usable upstream identifier
	// (missing token, missing coordinates).
	ErrNotConfigured = errors.New("provider not configured for city")

	// ErrWriteFailure indicates the store append failed.
	ErrWriteFailure = errors.New("failed to persist snapshot")
)
