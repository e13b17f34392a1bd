package extract

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"strings"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
)

// OCREngine recognizes text in an encoded image.
type OCREngine interface {
	Recognize(ctx context.Context, image []byte, mimeType string) (string, error)
}

// ChatCompleter is the subset of the OpenAI chat completions service used for vision OCR.
type ChatCompleter interface {
	New(ctx context.Context, body openai.ChatCompletionNewParams, opts ...option.RequestOption) (*openai.ChatCompletion, error)
}

// DefaultVisionModel reads images when no model is configured.
const DefaultVisionModel = "gpt-4o-mini"

const visionPrompt = "Transcribe all text visible in this medical document image exactly as written, " +
	"preserving line breaks. If the image is a scan without text, describe the visible findings " +
	"in one short paragraph. Reply with the text only."

// VisionOCR reads images with a vision capable chat model.
type VisionOCR struct {
	chat  ChatCompleter
	model string
}

// NewVisionOCR creates a VisionOCR. An empty model selects DefaultVisionModel.
func NewVisionOCR(chat ChatCompleter, model string) *VisionOCR {
	if model == "" {
		model = DefaultVisionModel
	}
	return &VisionOCR{chat: chat, model: model}
}

func (v *VisionOCR) Recognize(ctx context.Context, image []byte, mimeType string) (string, error) {
	dataURL := fmt.Sprintf("data:%s;base64,%s", mimeType, base64.StdEncoding.EncodeToString(image))

	resp, err := v.chat.New(ctx, openai.ChatCompletionNewParams{
		Model: openai.ChatModel(v.model),
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.UserMessage([]openai.ChatCompletionContentPartUnionParam{
				openai.TextContentPart(visionPrompt),
				openai.ImageContentPart(openai.ChatCompletionContentPartImageImageURLParam{
					URL: dataURL,
				}),
			}),
		},
		Temperature: openai.Float(0),
	})
	if err != nil {
		return "", fmt.Errorf("vision request failed: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", errors.New("vision response contained no choices")
	}

	return strings.TrimSpace(resp.Choices[0].Message.Content), nil
}

// NewOCR builds the engine named by engine: "vision" (default) or "tesseract".
func NewOCR(engine, model, language string, chat ChatCompleter) (OCREngine, error) {
	switch engine {
	case "", "vision":
		if chat == nil {
			return nil, ErrNoOCR
		}
		return NewVisionOCR(chat, model), nil
	case "tesseract":
		return NewTesseractOCR(language)
	default:
		return nil, fmt.Errorf("unknown OCR engine %q", engine)
	}
}
