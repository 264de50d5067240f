package completion

import (
	"context"
	"errors"
	"io"
	"iter"

	"github.com/sashabaranov/go-openai"

	"github.com/Rorical/c60chat/internal/models"
	"github.com/Rorical/c60chat/internal/persona"
)

// OpenAIClient calls any OpenAI-compatible chat completions endpoint.
type OpenAIClient struct {
	client   *openai.Client
	apiKey   string
	settings Settings
	personas *persona.Catalogue
}

var _ Client = &OpenAIClient{}

func NewOpenAIClient(apiKey, baseURL string, settings Settings, personas *persona.Catalogue) *OpenAIClient {
	clientConfig := openai.DefaultConfig(apiKey)
	if baseURL != "" {
		clientConfig.BaseURL = baseURL
	}
	return &OpenAIClient{
		client:   openai.NewClientWithConfig(clientConfig),
		apiKey:   apiKey,
		settings: settings,
		personas: personas,
	}
}

// messages puts the persona instruction in a leading system message; the
// protocol has no other slot for it.
func (c *OpenAIClient) messages(req Request) []openai.ChatCompletionMessage {
	turns := Turns(req.History, req.Input)
	msgs := make([]openai.ChatCompletionMessage, 0, len(turns)+1)
	msgs = append(msgs, openai.ChatCompletionMessage{
		Role:    openai.ChatMessageRoleSystem,
		Content: c.personas.Instruction(req.Elevated),
	})
	for _, t := range turns {
		role := openai.ChatMessageRoleUser
		if t.Role == models.Model {
			role = openai.ChatMessageRoleAssistant
		}
		msgs = append(msgs, openai.ChatCompletionMessage{Role: role, Content: t.Content})
	}
	return msgs
}

func (c *OpenAIClient) request(req Request) openai.ChatCompletionRequest {
	return openai.ChatCompletionRequest{
		Model:       c.settings.Model,
		Messages:    c.messages(req),
		Temperature: c.settings.Temperature,
		TopP:        c.settings.TopP,
	}
}

func (c *OpenAIClient) Stream(ctx context.Context, req Request) iter.Seq2[string, error] {
	if c.apiKey == "" {
		return failed(ErrMissingAPIKey)
	}
	return func(yield func(string, error) bool) {
		r := c.request(req)
		r.Stream = true
		stream, err := c.client.CreateChatCompletionStream(ctx, r)
		if err != nil {
			yield("", err)
			return
		}
		defer stream.Close()

		for {
			resp, err := stream.Recv()
			if errors.Is(err, io.EOF) {
				return
			}
			if err != nil {
				yield("", err)
				return
			}
			for _, choice := range resp.Choices {
				if choice.Delta.Content == "" {
					continue
				}
				if !yield(choice.Delta.Content, nil) {
					return
				}
			}
		}
	}
}

func (c *OpenAIClient) Complete(ctx context.Context, req Request) (string, error) {
	if c.apiKey == "" {
		return "", ErrMissingAPIKey
	}
	resp, err := c.client.CreateChatCompletion(ctx, c.request(req))
	if err != nil {
		return "", err
	}
	if len(resp.Choices) == 0 {
		return "", nil
	}
	return resp.Choices[0].Message.Content, nil
}
