//go:build !tesseract

package extract

import "errors"

// NewTesseractOCR reports that this binary was built without Tesseract support.
func NewTesseractOCR(string) (OCREngine, error) {
	return nil, errors.New("tesseract OCR requires building with -tags tesseract")
}
