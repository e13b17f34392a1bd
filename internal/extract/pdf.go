package extract

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/ledongthuc/pdf"
)

// extractPDF concatenates the plain text of every page. Pages that fail to decode are
// logged and skipped.
func (e *Extractor) extractPDF(data []byte) (*Document, error) {
	reader, err := pdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return nil, fmt.Errorf("failed to create PDF reader: %w", err)
	}

	var text strings.Builder
	pageCount := reader.NumPage()

	for i := 1; i <= pageCount; i++ {
		page := reader.Page(i)
		if page.V.IsNull() {
			continue
		}

		fonts := make(map[string]*pdf.Font)
		for _, name := range page.Fonts() {
			font := page.Font(name)
			fonts[name] = &font
		}

		content, err := page.GetPlainText(fonts)
		if err != nil {
			e.logger.Warn("failed to extract text from page", "page", i, "error", err)
			continue
		}

		text.WriteString(content)
		text.WriteString("\n")
	}

	return &Document{Text: text.String(), Kind: KindPDF, Layout: LayoutTextReport}, nil
}
