package gemini

import (
	"context"

	"github.com/rotisserie/eris"
	"google.golang.org/genai"
)

const (
	defaultFlashModel   = "gemini-2.0-flash"
	defaultSummaryModel = "gemini-1.5-flash"
)

// Client wraps the Gemini API for search-grounded questions and plain
// text generation.
type Client interface {
	// GroundedAnswer asks the model with Google Search grounding enabled,
	// so the answer reflects live search results rather than model memory.
	GroundedAnswer(ctx context.Context, prompt string) (string, error)
	// Generate runs a plain completion with no grounding tools.
	Generate(ctx context.Context, prompt string) (string, error)
}

// Option configures the client.
type Option func(*genaiClient)

// WithFlashModel overrides the model used for grounded answers.
func WithFlashModel(model string) Option {
	return func(c *genaiClient) {
		if model != "" {
			c.flashModel = model
		}
	}
}

// WithSummaryModel overrides the model used for plain generation.
func WithSummaryModel(model string) Option {
	return func(c *genaiClient) {
		if model != "" {
			c.summaryModel = model
		}
	}
}

type genaiClient struct {
	client       *genai.Client
	flashModel   string
	summaryModel string
}

// NewClient creates a Gemini client backed by the GenAI SDK.
func NewClient(ctx context.Context, apiKey string, opts ...Option) (Client, error) {
	if apiKey == "" {
		return nil, eris.New("gemini: API key is required")
	}

	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, eris.Wrap(err, "gemini: create client")
	}

	c := &genaiClient{
		client:       client,
		flashModel:   defaultFlashModel,
		summaryModel: defaultSummaryModel,
	}
	for _, o := range opts {
		o(c)
	}
	return c, nil
}

func (c *genaiClient) GroundedAnswer(ctx context.Context, prompt string) (string, error) {
	resp, err := c.client.Models.GenerateContent(ctx, c.flashModel, genai.Text(prompt), &genai.GenerateContentConfig{
		Temperature: genai.Ptr[float32](0.1),
		Tools: []*genai.Tool{
			{GoogleSearch: &genai.GoogleSearch{}},
		},
	})
	if err != nil {
		return "", eris.Wrap(err, "gemini: grounded generate")
	}

	text := resp.Text()
	if text == "" {
		return "", eris.New("gemini: empty grounded response")
	}
	return text, nil
}

func (c *genaiClient) Generate(ctx context.Context, prompt string) (string, error) {
	resp, err := c.client.Models.GenerateContent(ctx, c.summaryModel, genai.Text(prompt), &genai.GenerateContentConfig{
		Temperature: genai.Ptr[float32](0.3),
	})
	if err != nil {
		return "", eris.Wrap(err, "gemini: generate")
	}

	text := resp.Text()
	if text == "" {
		return "", eris.New("gemini: empty response")
	}
	return text, nil
}
