//go:build tesseract

package extract

import (
	"context"
	"fmt"

	"github.com/otiai10/gosseract/v2"
)

// TesseractOCR runs the local Tesseract engine. Available when built with -tags tesseract.
type TesseractOCR struct {
	language string
}

// NewTesseractOCR creates a Tesseract engine for the given language ("eng" when empty).
func NewTesseractOCR(language string) (OCREngine, error) {
	if language == "" {
		language = "eng"
	}
	return &TesseractOCR{language: language}, nil
}

func (t *TesseractOCR) Recognize(_ context.Context, image []byte, _ string) (string, error) {
	client := gosseract.NewClient()
	defer client.Close()

	if err := client.SetLanguage(t.language); err != nil {
		return "", fmt.Errorf("set language: %w", err)
	}
	if err := client.SetImageFromBytes(image); err != nil {
		return "", fmt.Errorf("load image: %w", err)
	}
	return client.Text()
}
