package embedding

import (
	"fmt"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
)

// Client wraps the OpenAI client shared by embedding, consultation, OCR and speech.
type Client struct {
	client *openai.Client
}

// NewClient creates an OpenAI client with the given API key. baseURL is optional and lets an
// OpenAI-compatible server (for example a local Ollama) stand in for the hosted API; the key
// is only required when talking to the hosted API.
func NewClient(apiKey, baseURL string) (*Client, error) {
	if apiKey == "" && baseURL == "" {
		return nil, fmt.Errorf("OPENAI_API_KEY environment variable not set")
	}

	opts := []option.RequestOption{option.WithAPIKey(apiKey)}
	if baseURL != "" {
		opts = append(opts, option.WithBaseURL(baseURL))
	}
	client := openai.NewClient(opts...)

	return &Client{client: &client}, nil
}

// Client returns the underlying OpenAI client for use in other packages (e.g., consultation).
func (c *Client) Client() *openai.Client {
	return c.client
}
