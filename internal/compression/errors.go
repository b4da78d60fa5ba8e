package compression

import "errors"

// Validation errors. Never retried; reported verbatim to the caller.
var (
	ErrEmptyContent    = errors.New("content is empty")
	ErrContentTooSmall = errors.New("content below compression floor")
	ErrUnknownStrategy = errors.New("unknown compression strategy")
)

// Backend transport errors. The caller may retry with a different
// configured backend; the engine never retries automatically.
var (
	ErrBackendFailure    = errors.New("backend request failed")
	ErrBackendTimeout    = errors.New("backend timed out")
	ErrMalformedResponse = errors.New("malformed backend response")
	ErrOutputTooLarge    = errors.New("backend output exceeds buffer ceiling")
)

// Business-rule rejections. Not technical failures; the Outcome
// carries the computed values so the caller can decide what to do.
var (
	ErrRatioBelowFloor   = errors.New("compression ratio below floor")
	ErrQualityBelowFloor = errors.New("quality score below floor")
)
