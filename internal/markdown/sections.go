package markdown

import (
	"strings"

	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/text"
)

// MaxSectionDepth is the deepest heading level that starts a new section.
const MaxSectionDepth = 3

// Section is the part of a reply under one heading.
type Section struct {
	Index   int    `json:"index"`
	Heading string `json:"heading,omitempty"` // empty for text before the first heading
	Path    string `json:"path,omitempty"`    // "Plan > Medication"
	Body    string `json:"body"`
}

// boundary marks where a section starts in the source.
type boundary struct {
	offset  int
	heading string
	level   int
}

// Sections splits src at headings up to MaxSectionDepth. Text before the first heading
// becomes a section with no heading; a reply with no headings is one section.
func (r *Renderer) Sections(src string) []Section {
	source := []byte(src)
	doc := r.md.Parser().Parse(text.NewReader(source))

	var bounds []boundary
	for n := doc.FirstChild(); n != nil; n = n.NextSibling() {
		h, ok := n.(*ast.Heading)
		if !ok || h.Level > MaxSectionDepth || h.Lines().Len() == 0 {
			continue
		}
		bounds = append(bounds, boundary{
			offset:  lineStart(source, h.Lines().At(0).Start),
			heading: headingText(h, source),
			level:   h.Level,
		})
	}

	var sections []Section
	add := func(s Section) {
		if s.Heading == "" && s.Body == "" {
			return
		}
		s.Index = len(sections)
		sections = append(sections, s)
	}

	if len(bounds) == 0 {
		add(Section{Body: strings.TrimSpace(src)})
		return sections
	}

	add(Section{Body: strings.TrimSpace(string(source[:bounds[0].offset]))})

	// stack holds the open heading at each level for the path.
	var stack []boundary
	for i, b := range bounds {
		for len(stack) > 0 && stack[len(stack)-1].level >= b.level {
			stack = stack[:len(stack)-1]
		}
		stack = append(stack, b)

		end := len(source)
		if i+1 < len(bounds) {
			end = bounds[i+1].offset
		}
		add(Section{
			Heading: b.heading,
			Path:    formatPath(stack),
			Body:    strings.TrimSpace(dropFirstLine(string(source[b.offset:end]))),
		})
	}
	return sections
}

func formatPath(stack []boundary) string {
	parts := make([]string, len(stack))
	for i, b := range stack {
		parts[i] = b.heading
	}
	return strings.Join(parts, " > ")
}

// lineStart moves pos back to the start of its line.
func lineStart(source []byte, pos int) int {
	for pos > 0 && source[pos-1] != '\n' {
		pos--
	}
	return pos
}

func dropFirstLine(s string) string {
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		return s[i+1:]
	}
	return ""
}
