package extract

import "errors"

var (
	// ErrExtraction wraps any failure while reading a supported document.
	ErrExtraction = errors.New("extraction failed")

	// ErrUnsupported is returned by callers that reject a file before extraction.
	ErrUnsupported = errors.New("unsupported file type")

	// ErrNoOCR is returned when an image arrives and no OCR engine is configured.
	ErrNoOCR = errors.New("no OCR engine configured")
)
