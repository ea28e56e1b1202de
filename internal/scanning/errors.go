package scanning

import "errors"

// Error classes that drive the fallback policy. Any other engine error is
// terminal for the whole request.
var (
	// ErrCapabilityUnavailable means the engine cannot run in this
	// environment at all (no tesseract install, no local model runtime).
	ErrCapabilityUnavailable = errors.New("recognition capability unavailable")

	// ErrEmptyResult means the engine ran but produced no usable text.
	ErrEmptyResult = errors.New("no text found in document")

	// ErrMalformedResponse means a model replied but the reply contained no
	// parseable JSON object. Partial output is never applied.
	ErrMalformedResponse = errors.New("model response contained no valid JSON")
)
