// Package metadata derives structured findings from a medical document for use as search
// metadata.
package metadata

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"github.com/openai/openai-go"

	"github.com/bull/mediscan/internal/consult"
)

// DefaultMaxTokens is the maximum content length before truncation (in tokens).
const DefaultMaxTokens = 16000

// DefaultModel extracts findings when no model is configured.
const DefaultModel = "gpt-4o-mini"

// DocumentMetadata contains LLM-generated metadata for a document.
type DocumentMetadata struct {
	Summary  string   `json:"summary"`
	Findings []string `json:"findings"`
	Category string   `json:"category"`
}

// Generator produces document metadata through a JSON-mode chat completion.
type Generator struct {
	chat      consult.ChatCompleter
	model     string
	maxTokens int
	logger    *slog.Logger
}

// NewGenerator creates a metadata generator. An empty model selects DefaultModel.
// Optional maxTokens parameter sets truncation limit (defaults to DefaultMaxTokens).
func NewGenerator(chat consult.ChatCompleter, model string, logger *slog.Logger, maxTokens ...int) *Generator {
	max := DefaultMaxTokens
	if len(maxTokens) > 0 && maxTokens[0] > 0 {
		max = maxTokens[0]
	}
	if model == "" {
		model = DefaultModel
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Generator{
		chat:      chat,
		model:     model,
		maxTokens: max,
		logger:    logger,
	}
}

// GenerateMetadata analyzes a document and produces a one line summary, the notable
// findings and a document category.
func (g *Generator) GenerateMetadata(ctx context.Context, name, content string) (*DocumentMetadata, error) {
	truncated := g.truncateContent(content)

	prompt := fmt.Sprintf(`Analyze this medical document and provide:
1. A concise summary (1 sentence) of what the document is
2. A list of notable clinical findings, each a short phrase (abnormal values, diagnoses, impressions)
3. A category: one of "lab_report", "imaging_report", "prescription", "discharge_summary", "clinical_note", "other"

Document name: %s

Document content:
%s

Respond in JSON format:
{"summary": "Complete blood count from March 2024", "findings": ["Hemoglobin 10.2 g/dL (low)"], "category": "lab_report"}`, name, truncated)

	resp, err := g.chat.New(ctx, openai.ChatCompletionNewParams{
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.UserMessage(prompt),
		},
		Model: openai.ChatModel(g.model),
		ResponseFormat: openai.ChatCompletionNewParamsResponseFormatUnion{
			OfJSONObject: &openai.ResponseFormatJSONObjectParam{
				Type: "json_object",
			},
		},
	})
	if err != nil {
		return nil, fmt.Errorf("chat completion failed: %w", err)
	}
	if len(resp.Choices) == 0 {
		return nil, errors.New("chat completion contained no choices")
	}

	return parseMetadata(resp.Choices[0].Message.Content)
}

func parseMetadata(content string) (*DocumentMetadata, error) {
	var metadata DocumentMetadata
	if err := json.Unmarshal([]byte(content), &metadata); err != nil {
		return nil, fmt.Errorf("failed to parse response: %w", err)
	}
	if metadata.Findings == nil {
		metadata.Findings = []string{}
	}
	if metadata.Category == "" {
		metadata.Category = "other"
	}
	return &metadata, nil
}

// Fields returns the metadata as record metadata keys.
func (m *DocumentMetadata) Fields() map[string]any {
	findings := make([]any, len(m.Findings))
	for i, f := range m.Findings {
		findings[i] = f
	}
	return map[string]any{
		"summary":  m.Summary,
		"findings": findings,
		"category": m.Category,
	}
}

// truncateContent truncates content to fit within token limits.
// Uses rough estimate of 4 characters per token.
func (g *Generator) truncateContent(content string) string {
	// Rough estimate: 1 token ≈ 4 characters
	maxChars := g.maxTokens * 4

	if len(content) <= maxChars {
		return content
	}

	g.logger.Warn("Truncating content",
		"from_chars", len(content), "to_chars", maxChars, "estimated_tokens", g.maxTokens)

	return content[:maxChars]
}
