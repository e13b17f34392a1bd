// Package consult runs the doctor persona prompts against a hosted chat model.
package consult

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"

	"github.com/bull/mediscan/internal/config"
)

// DefaultMaxContextTokens bounds the document text sent with a summary request.
const DefaultMaxContextTokens = 12000

// ErrEmptyCompletion is returned when the model answers without content.
var ErrEmptyCompletion = errors.New("chat completion contained no choices")

// ChatCompleter is the subset of the OpenAI chat completions service the engine needs.
// *openai.ChatCompletionService satisfies it.
type ChatCompleter interface {
	New(ctx context.Context, body openai.ChatCompletionNewParams, opts ...option.RequestOption) (*openai.ChatCompletion, error)
}

// Exchange is one follow-up question and the answer given.
type Exchange struct {
	Question string
	Answer   string
}

// Reply is the outcome of a consultation prompt. When the model fails, Text holds the
// patient-facing fallback (empty for treatment), Fallback is true and Err holds the cause.
type Reply struct {
	Text     string
	Fallback bool
	Err      error
}

// Engine issues summary, follow-up and treatment prompts.
type Engine struct {
	chat   ChatCompleter
	cfg    config.ConsultConfig
	logger *slog.Logger
}

// NewEngine creates an Engine. Zero model and token limits in cfg fall back to
// config.Default(). Temperature is used as given, since 0 is a valid setting.
func NewEngine(chat ChatCompleter, cfg config.ConsultConfig, logger *slog.Logger) *Engine {
	def := config.Default().Consult
	if cfg.Model == "" {
		cfg.Model = def.Model
	}
	if cfg.SummaryTokens <= 0 {
		cfg.SummaryTokens = def.SummaryTokens
	}
	if cfg.FollowUpTokens <= 0 {
		cfg.FollowUpTokens = def.FollowUpTokens
	}
	if cfg.TreatmentTokens <= 0 {
		cfg.TreatmentTokens = def.TreatmentTokens
	}
	if cfg.MaxContextTokens <= 0 {
		cfg.MaxContextTokens = DefaultMaxContextTokens
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Engine{chat: chat, cfg: cfg, logger: logger}
}

// Summarize explains a document's findings to the patient, relating them to symptoms when
// given.
func (e *Engine) Summarize(ctx context.Context, text, symptoms string) Reply {
	msg := summaryUserMessage(e.truncateContent(text), symptoms)
	out, err := e.complete(ctx, summarySystemPrompt, msg, e.cfg.SummaryTokens)
	if err != nil {
		e.logger.Error("Error generating summary", "error", err)
		return Reply{Text: SummaryFallback, Fallback: true, Err: err}
	}
	return Reply{Text: out}
}

// AnswerFollowUp answers a question given prior interactions as context: the retrieved
// document text, then the earlier exchanges. Only the document is truncated, so the
// exchanges always reach the model.
func (e *Engine) AnswerFollowUp(ctx context.Context, question, symptoms, document string, exchanges []Exchange) Reply {
	msg := followUpUserMessage(question, symptoms, e.followUpContext(document, exchanges))
	out, err := e.complete(ctx, followUpSystemPrompt, msg, e.cfg.FollowUpTokens)
	if err != nil {
		e.logger.Error("Error in handling follow-up question", "error", err)
		return Reply{Text: FollowUpFallback, Fallback: true, Err: err}
	}
	return Reply{Text: out}
}

// SuggestTreatment concludes the consultation with treatment recommendations. On failure
// the reply has no text.
func (e *Engine) SuggestTreatment(ctx context.Context, summary, symptoms string, exchanges []Exchange) Reply {
	msg := treatmentUserMessage(summary, symptoms, exchanges)
	out, err := e.complete(ctx, treatmentSystemPrompt, msg, e.cfg.TreatmentTokens)
	if err != nil {
		e.logger.Error("Error in generating treatment recommendations", "error", err)
		return Reply{Fallback: true, Err: err}
	}
	return Reply{Text: out}
}

func (e *Engine) followUpContext(document string, exchanges []Exchange) string {
	var parts []string
	if document != "" {
		parts = append(parts, e.truncateContent(document))
	}
	if len(exchanges) > 0 {
		parts = append(parts, FormatExchanges(exchanges))
	}
	return strings.Join(parts, "\n\n")
}

func (e *Engine) complete(ctx context.Context, system, user string, maxTokens int) (string, error) {
	resp, err := e.chat.New(ctx, openai.ChatCompletionNewParams{
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.SystemMessage(system),
			openai.UserMessage(user),
		},
		Model:       openai.ChatModel(e.cfg.Model),
		MaxTokens:   openai.Int(int64(maxTokens)),
		Temperature: openai.Float(e.cfg.Temperature),
	})
	if err != nil {
		return "", fmt.Errorf("chat completion failed: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", ErrEmptyCompletion
	}
	return strings.TrimSpace(resp.Choices[0].Message.Content), nil
}

// truncateContent truncates content to fit within token limits.
// Uses rough estimate of 4 characters per token.
func (e *Engine) truncateContent(content string) string {
	maxChars := e.cfg.MaxContextTokens * 4

	if len(content) <= maxChars {
		return content
	}

	e.logger.Warn("Truncating content",
		"from_chars", len(content), "to_chars", maxChars, "max_tokens", e.cfg.MaxContextTokens)

	return content[:maxChars]
}
