// Package completion talks to the hosted model. A Client maps one
// (history, input, persona) triple to a lazy sequence of reply fragments; it
// keeps no conversation state of its own.
package completion

import (
	"context"
	"errors"
	"fmt"
	"iter"
	"strings"

	"github.com/Rorical/c60chat/internal/models"
	"github.com/Rorical/c60chat/internal/persona"
)

// ErrMissingAPIKey is returned at request time when no credential was configured.
var ErrMissingAPIKey = errors.New("API key must be set")

// Request is the input of one completion call. History is the conversation
// as it was before this turn; Input is the new user text.
type Request struct {
	History  []models.Message
	Input    string
	Elevated bool
}

// Client produces a reply for a Request.
type Client interface {
	// Stream yields fragments in arrival order. A failure is yielded once as
	// the error value and ends the sequence. The sequence can be ranged once.
	Stream(ctx context.Context, req Request) iter.Seq2[string, error]
	// Complete returns the whole reply in one piece.
	Complete(ctx context.Context, req Request) (string, error)
}

// Settings is the fixed request configuration bound to a client.
type Settings struct {
	Model       string
	Temperature float32
	TopP        float32
}

const (
	ProviderGemini = "gemini"
	ProviderOpenAI = "openai"
)

// New builds the client for provider.
func New(provider, apiKey, baseURL string, settings Settings, personas *persona.Catalogue) (Client, error) {
	switch provider {
	case "", ProviderGemini:
		return NewGeminiClient(apiKey, baseURL, settings, personas), nil
	case ProviderOpenAI:
		return NewOpenAIClient(apiKey, baseURL, settings, personas), nil
	default:
		return nil, fmt.Errorf("completion: unknown provider %q", provider)
	}
}

// Turns drops history entries with blank content and appends input as the
// final user turn.
func Turns(history []models.Message, input string) []models.Message {
	turns := make([]models.Message, 0, len(history)+1)
	for _, m := range history {
		if strings.TrimSpace(m.Content) == "" {
			continue
		}
		turns = append(turns, m)
	}
	return append(turns, models.Message{Role: models.User, Content: input})
}

// failed is a sequence that yields err and stops.
func failed(err error) iter.Seq2[string, error] {
	return func(yield func(string, error) bool) {
		yield("", err)
	}
}
