package metadata

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"testing"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
)

// TestParseMetadataResponse verifies JSON parsing of valid response.
func TestParseMetadataResponse(t *testing.T) {
	jsonResponse := `{"summary": "Complete blood count", "findings": ["Hemoglobin 10.2 g/dL (low)", "MCV 72 fL (low)"], "category": "lab_report"}`

	metadata, err := parseMetadata(jsonResponse)
	if err != nil {
		t.Fatalf("Failed to parse valid JSON response: %v", err)
	}

	if metadata.Summary != "Complete blood count" {
		t.Errorf("Expected summary 'Complete blood count', got '%s'", metadata.Summary)
	}
	if len(metadata.Findings) != 2 {
		t.Fatalf("Expected 2 findings, got %d", len(metadata.Findings))
	}
	if metadata.Findings[0] != "Hemoglobin 10.2 g/dL (low)" {
		t.Errorf("Expected first finding 'Hemoglobin 10.2 g/dL (low)', got '%s'", metadata.Findings[0])
	}
	if metadata.Category != "lab_report" {
		t.Errorf("Expected category 'lab_report', got '%s'", metadata.Category)
	}
}

// TestParseMetadataResponse_Defaults verifies missing fields are filled in.
func TestParseMetadataResponse_Defaults(t *testing.T) {
	metadata, err := parseMetadata(`{"summary": "Note"}`)
	if err != nil {
		t.Fatalf("Failed to parse response: %v", err)
	}
	if metadata.Findings == nil || len(metadata.Findings) != 0 {
		t.Errorf("Expected empty findings, got %v", metadata.Findings)
	}
	if metadata.Category != "other" {
		t.Errorf("Expected category 'other', got '%s'", metadata.Category)
	}

	if _, err := parseMetadata("not json"); err == nil {
		t.Error("Expected error for invalid JSON")
	}
}

type stubChat struct {
	content string
	err     error
}

func (s *stubChat) New(context.Context, openai.ChatCompletionNewParams, ...option.RequestOption) (*openai.ChatCompletion, error) {
	if s.err != nil {
		return nil, s.err
	}
	return &openai.ChatCompletion{
		Choices: []openai.ChatCompletionChoice{{Message: openai.ChatCompletionMessage{Content: s.content}}},
	}, nil
}

// TestGenerateMetadata verifies the completion is parsed into metadata fields.
func TestGenerateMetadata(t *testing.T) {
	g := NewGenerator(&stubChat{content: `{"summary": "CBC", "findings": ["Low hemoglobin"], "category": "lab_report"}`}, "", slog.Default())

	metadata, err := g.GenerateMetadata(context.Background(), "labs.pdf", "Hemoglobin 10.2")
	if err != nil {
		t.Fatalf("GenerateMetadata failed: %v", err)
	}

	fields := metadata.Fields()
	if fields["category"] != "lab_report" {
		t.Errorf("Expected category field 'lab_report', got %v", fields["category"])
	}
	findings, ok := fields["findings"].([]any)
	if !ok || len(findings) != 1 || findings[0] != "Low hemoglobin" {
		t.Errorf("Unexpected findings field: %v", fields["findings"])
	}
}

// TestGenerateMetadata_Error verifies completion errors are returned.
func TestGenerateMetadata_Error(t *testing.T) {
	g := NewGenerator(&stubChat{err: errors.New("rate limited")}, "", nil)
	if _, err := g.GenerateMetadata(context.Background(), "labs.pdf", "text"); err == nil {
		t.Error("Expected error from failing completion")
	}
}

// TestTruncateContent verifies truncation works correctly for very long content.
func TestTruncateContent(t *testing.T) {
	g := NewGenerator(nil, "", nil)

	// Create very long string (100k chars, well over 16k tokens)
	longContent := strings.Repeat("This is a test content. ", 4000)

	truncated := g.truncateContent(longContent)

	// Expected max chars: 16000 tokens * 4 chars/token = 64000 chars
	expectedMaxChars := DefaultMaxTokens * 4
	if len(truncated) != expectedMaxChars {
		t.Errorf("Expected truncated length %d, got %d", expectedMaxChars, len(truncated))
	}
	if !strings.HasPrefix(longContent, truncated) {
		t.Error("Truncated content should be a prefix of original content")
	}
}

// TestTruncateContent_Short verifies short content is not truncated.
func TestTruncateContent_Short(t *testing.T) {
	g := NewGenerator(nil, "", nil)

	shortContent := strings.Repeat("Short. ", 140)

	if truncated := g.truncateContent(shortContent); truncated != shortContent {
		t.Error("Short content should not be truncated")
	}
}

// TestTruncateContent_CustomMaxTokens verifies custom max tokens setting.
func TestTruncateContent_CustomMaxTokens(t *testing.T) {
	customMaxTokens := 1000
	g := NewGenerator(nil, "", nil, customMaxTokens)

	content := strings.Repeat("Content. ", 1000) // ~9000 chars

	truncated := g.truncateContent(content)

	expectedMaxChars := customMaxTokens * 4
	if len(truncated) != expectedMaxChars {
		t.Errorf("Expected truncated length %d, got %d", expectedMaxChars, len(truncated))
	}
}
