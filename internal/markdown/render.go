// Package markdown formats the doctor's replies, which the chat model writes as light
// markdown, for the web page and the MCP tools.
package markdown

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/extension"
	"github.com/yuin/goldmark/parser"
	"github.com/yuin/goldmark/text"
	"go.abhg.dev/goldmark/toc"
)

// Renderer converts reply markdown to HTML and splits it into sections.
type Renderer struct {
	md goldmark.Markdown
}

// NewRenderer creates a renderer with GitHub flavoured tables and lists. Raw HTML in the
// input is escaped, never passed through.
func NewRenderer() *Renderer {
	md := goldmark.New(
		goldmark.WithExtensions(extension.GFM),
		goldmark.WithParserOptions(
			parser.WithAutoHeadingID(),
		),
	)
	return &Renderer{md: md}
}

// RenderHTML converts src to an HTML fragment.
func (r *Renderer) RenderHTML(src string) (string, error) {
	var buf bytes.Buffer
	if err := r.md.Convert([]byte(src), &buf); err != nil {
		return "", fmt.Errorf("render markdown: %w", err)
	}
	return buf.String(), nil
}

// Outline returns the heading titles of src in document order, indented two spaces per
// level below the first.
func (r *Renderer) Outline(src string) ([]string, error) {
	source := []byte(src)
	doc := r.md.Parser().Parse(text.NewReader(source))

	tree, err := toc.Inspect(doc, source, toc.MinDepth(1), toc.MaxDepth(3), toc.Compact(true))
	if err != nil {
		return nil, fmt.Errorf("inspect headings: %w", err)
	}

	var lines []string
	var walk func(items toc.Items, depth int)
	walk = func(items toc.Items, depth int) {
		for _, item := range items {
			if len(item.Title) > 0 {
				lines = append(lines, strings.Repeat("  ", depth)+string(item.Title))
			}
			walk(item.Items, depth+1)
		}
	}
	walk(tree.Items, 0)
	return lines, nil
}

// headingText returns the literal text of a heading node.
func headingText(h *ast.Heading, source []byte) string {
	var b strings.Builder
	lines := h.Lines()
	for i := 0; i < lines.Len(); i++ {
		seg := lines.At(i)
		b.Write(seg.Value(source))
	}
	return strings.TrimSpace(b.String())
}
