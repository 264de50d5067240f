package completion

import (
	"context"
	"fmt"
	"iter"
	"sync"

	"google.golang.org/genai"

	"github.com/Rorical/c60chat/internal/models"
	"github.com/Rorical/c60chat/internal/persona"
)

// GeminiClient calls the Gemini API. The underlying genai client is created
// on first use so a missing key only fails the request that needs it.
type GeminiClient struct {
	apiKey   string
	baseURL  string
	settings Settings
	personas *persona.Catalogue

	mu     sync.Mutex
	client *genai.Client
}

var _ Client = &GeminiClient{}

func NewGeminiClient(apiKey, baseURL string, settings Settings, personas *persona.Catalogue) *GeminiClient {
	return &GeminiClient{
		apiKey:   apiKey,
		baseURL:  baseURL,
		settings: settings,
		personas: personas,
	}
}

func (c *GeminiClient) genAI(ctx context.Context) (*genai.Client, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.client != nil {
		return c.client, nil
	}
	if c.apiKey == "" {
		return nil, ErrMissingAPIKey
	}
	cfg := &genai.ClientConfig{
		APIKey:  c.apiKey,
		Backend: genai.BackendGeminiAPI,
	}
	if c.baseURL != "" {
		cfg.HTTPOptions.BaseURL = c.baseURL
	}
	client, err := genai.NewClient(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("creating genai client: %w", err)
	}
	c.client = client
	return client, nil
}

func (c *GeminiClient) contents(req Request) []*genai.Content {
	turns := Turns(req.History, req.Input)
	contents := make([]*genai.Content, 0, len(turns))
	for _, t := range turns {
		role := genai.RoleUser
		if t.Role == models.Model {
			role = genai.RoleModel
		}
		contents = append(contents, genai.NewContentFromText(t.Content, genai.Role(role)))
	}
	return contents
}

func (c *GeminiClient) config(req Request) *genai.GenerateContentConfig {
	cfg := &genai.GenerateContentConfig{
		SystemInstruction: genai.NewContentFromText(c.personas.Instruction(req.Elevated), genai.RoleModel),
	}
	if c.settings.Temperature > 0 {
		cfg.Temperature = genai.Ptr(c.settings.Temperature)
	}
	if c.settings.TopP > 0 {
		cfg.TopP = genai.Ptr(c.settings.TopP)
	}
	return cfg
}

func (c *GeminiClient) Stream(ctx context.Context, req Request) iter.Seq2[string, error] {
	client, err := c.genAI(ctx)
	if err != nil {
		return failed(err)
	}
	return func(yield func(string, error) bool) {
		for resp, err := range client.Models.GenerateContentStream(ctx, c.settings.Model, c.contents(req), c.config(req)) {
			if err != nil {
				yield("", err)
				return
			}
			text := resp.Text()
			if text == "" {
				continue
			}
			if !yield(text, nil) {
				return
			}
		}
	}
}

func (c *GeminiClient) Complete(ctx context.Context, req Request) (string, error) {
	client, err := c.genAI(ctx)
	if err != nil {
		return "", err
	}
	resp, err := client.Models.GenerateContent(ctx, c.settings.Model, c.contents(req), c.config(req))
	if err != nil {
		return "", err
	}
	return resp.Text(), nil
}
