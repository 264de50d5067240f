package completion

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Rorical/c60chat/internal/persona"
)

type chatRequest struct {
	Model       string  `json:"model"`
	Stream      bool    `json:"stream"`
	Temperature float32 `json:"temperature"`
	TopP        float32 `json:"top_p"`
	Messages    []struct {
		Role    string `json:"role"`
		Content string `json:"content"`
	} `json:"messages"`
}

func sseServer(t *testing.T, fragments []string, seen *chatRequest) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/chat/completions", r.URL.Path)
		assert.NoError(t, json.NewDecoder(r.Body).Decode(seen))

		if !seen.Stream {
			w.Header().Set("Content-Type", "application/json")
			fmt.Fprint(w, `{"id":"c1","object":"chat.completion","created":1,"model":"m","choices":[{"index":0,"message":{"role":"assistant","content":"whole reply"},"finish_reason":"stop"}]}`)
			return
		}

		w.Header().Set("Content-Type", "text/event-stream")
		flusher := w.(http.Flusher)
		for _, f := range fragments {
			payload, _ := json.Marshal(f)
			fmt.Fprintf(w, "data: {\"id\":\"c1\",\"object\":\"chat.completion.chunk\",\"created\":1,\"model\":\"m\",\"choices\":[{\"index\":0,\"delta\":{\"content\":%s}}]}\n\n", payload)
			flusher.Flush()
		}
		fmt.Fprint(w, "data: [DONE]\n\n")
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestOpenAIStreamYieldsFragmentsInOrder(t *testing.T) {
	var seen chatRequest
	srv := sseServer(t, []string{"Hello", ", i am", " C60"}, &seen)
	personas := persona.Default()
	c := NewOpenAIClient("sk-test", srv.URL+"/v1", Settings{Model: "gpt-4o-mini", Temperature: 0.9, TopP: 0.95}, personas)

	frags, err := collect(t, c.Stream(context.Background(), Request{History: history(), Input: "hi", Elevated: true}))
	require.NoError(t, err)
	assert.Equal(t, []string{"Hello", ", i am", " C60"}, frags)

	assert.True(t, seen.Stream)
	assert.Equal(t, "gpt-4o-mini", seen.Model)
	assert.InDelta(t, 0.9, seen.Temperature, 1e-6)
	assert.InDelta(t, 0.95, seen.TopP, 1e-6)
	require.Len(t, seen.Messages, 5)
	assert.Equal(t, "system", seen.Messages[0].Role)
	assert.Equal(t, personas.Instruction(true), seen.Messages[0].Content)
	assert.Equal(t, "assistant", seen.Messages[2].Role)
	assert.Equal(t, "user", seen.Messages[4].Role)
	assert.Equal(t, "hi", seen.Messages[4].Content)
}

func TestOpenAIStreamStopsWhenConsumerBreaks(t *testing.T) {
	var seen chatRequest
	srv := sseServer(t, []string{"a", "b", "c"}, &seen)
	c := NewOpenAIClient("sk-test", srv.URL+"/v1", Settings{Model: "m"}, persona.Default())

	var got []string
	for frag, err := range c.Stream(context.Background(), Request{Input: "hi"}) {
		require.NoError(t, err)
		got = append(got, frag)
		if len(got) == 2 {
			break
		}
	}
	assert.Equal(t, []string{"a", "b"}, got)
}

func TestOpenAIComplete(t *testing.T) {
	var seen chatRequest
	srv := sseServer(t, nil, &seen)
	c := NewOpenAIClient("sk-test", srv.URL+"/v1", Settings{Model: "m"}, persona.Default())

	reply, err := c.Complete(context.Background(), Request{Input: "hi"})
	require.NoError(t, err)
	assert.Equal(t, "whole reply", reply)
	assert.False(t, seen.Stream)
	assert.Equal(t, persona.Default().Instruction(false), seen.Messages[0].Content)
}

func TestOpenAIUpstreamFailureIsSingleError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusUnauthorized)
		fmt.Fprint(w, `{"error":{"message":"invalid api key","type":"invalid_request_error"}}`)
	}))
	t.Cleanup(srv.Close)
	c := NewOpenAIClient("sk-bad", srv.URL+"/v1", Settings{Model: "m"}, persona.Default())

	var frags []string
	var errs []error
	for frag, err := range c.Stream(context.Background(), Request{Input: "hi"}) {
		if err != nil {
			errs = append(errs, err)
			continue
		}
		frags = append(frags, frag)
	}
	assert.Empty(t, frags)
	require.Len(t, errs, 1)
	assert.Contains(t, errs[0].Error(), "invalid api key")
}

func TestOpenAIMissingKey(t *testing.T) {
	c := NewOpenAIClient("", "", Settings{Model: "m"}, persona.Default())
	frags, err := collect(t, c.Stream(context.Background(), Request{Input: "hi"}))
	require.ErrorIs(t, err, ErrMissingAPIKey)
	assert.Empty(t, frags)
}
