package extract

import (
	"context"
	"fmt"
	"log/slog"
)

// Extractor dispatches raw uploads to the reader for their file extension.
type Extractor struct {
	ocr    OCREngine
	logger *slog.Logger
}

// New creates an Extractor. ocr may be nil, in which case image uploads fail with ErrNoOCR.
func New(ocr OCREngine, logger *slog.Logger) *Extractor {
	if logger == nil {
		logger = slog.Default()
	}
	return &Extractor{ocr: ocr, logger: logger}
}

// Extract reads data as the document type implied by filename's extension.
//
// Unknown extensions yield a KindUnknown document and no error. Any failure while reading a
// supported type yields a KindError document carrying the message, together with an error
// wrapping ErrExtraction. Parser panics are recovered and reported the same way.
func (e *Extractor) Extract(ctx context.Context, data []byte, filename string) (doc *Document, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("%w: %v", ErrExtraction, r)
			doc = e.failed(filename, err)
		}
	}()

	switch ext := Extension(filename); ext {
	case "jpg", "jpeg", "png":
		doc, err = e.extractImage(ctx, data)
	case "pdf":
		doc, err = e.extractPDF(data)
	case "docx":
		doc, err = extractDOCX(data)
	default:
		return &Document{Kind: KindUnknown}, nil
	}

	if err != nil {
		err = fmt.Errorf("%w: %w", ErrExtraction, err)
		return e.failed(filename, err), err
	}
	return doc, nil
}

func (e *Extractor) failed(filename string, err error) *Document {
	e.logger.Error("error processing file", "file", filename, "error", err)
	return &Document{Kind: KindError, Error: err.Error()}
}
