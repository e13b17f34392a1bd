// Package extract turns uploaded medical documents into plain text.
package extract

import (
	"path/filepath"
	"slices"
	"strings"
)

// Kind tags the format a document was read as.
type Kind string

const (
	KindImage   Kind = "image"
	KindPDF     Kind = "pdf"
	KindDOCX    Kind = "docx"
	KindUnknown Kind = "unknown"
	KindError   Kind = "error"
)

// Layout classifies what an upload looks like, used as retrieval metadata.
type Layout string

const (
	LayoutMedicalScan   Layout = "medical_scan"
	LayoutPhotoOfReport Layout = "photo_of_report"
	LayoutTextReport    Layout = "text_report"
)

// SupportedExtensions are the upload extensions the extractor can read.
var SupportedExtensions = []string{"pdf", "png", "jpg", "jpeg", "docx"}

// Document is the result of an extraction. An empty Text means no text could be read.
type Document struct {
	Text   string
	Kind   Kind
	Error  string // set when Kind is KindError
	Layout Layout

	// Image holds pixel statistics for image uploads, nil otherwise.
	Image *ImageFeatures
}

// HasText reports whether any non-blank text was extracted.
func (d *Document) HasText() bool {
	return d != nil && strings.TrimSpace(d.Text) != ""
}

// Metadata returns the fields stored alongside the document's embedding.
func (d *Document) Metadata() map[string]any {
	meta := map[string]any{"type": string(d.Kind)}
	if d.Layout != "" {
		meta["layout"] = string(d.Layout)
	}
	if d.Image != nil {
		meta["width"] = d.Image.Width
		meta["height"] = d.Image.Height
		meta["density"] = d.Image.Density
		meta["contrast"] = d.Image.Contrast
		meta["grayscale"] = d.Image.Grayscale
	}
	return meta
}

// Extension returns the lower-cased text after the last dot of filename, or "" if there is
// none.
func Extension(filename string) string {
	ext := filepath.Ext(filename)
	return strings.ToLower(strings.TrimPrefix(ext, "."))
}

// IsSupported reports whether filename has one of SupportedExtensions.
func IsSupported(filename string) bool {
	return slices.Contains(SupportedExtensions, Extension(filename))
}
