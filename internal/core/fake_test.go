package core

import (
	"context"
	"iter"
	"strings"
	"sync"

	"github.com/Rorical/c60chat/internal/completion"
)

// fakeClient replays fragments and then, if set, fails with err.
type fakeClient struct {
	mu        sync.Mutex
	fragments []string
	err       error
	requests  []completion.Request
	afterEach func() // runs after every fragment has been consumed
	release   chan struct{}
}

func (f *fakeClient) Stream(ctx context.Context, req completion.Request) iter.Seq2[string, error] {
	f.mu.Lock()
	f.requests = append(f.requests, req)
	f.mu.Unlock()
	return func(yield func(string, error) bool) {
		if f.release != nil {
			select {
			case <-f.release:
			case <-ctx.Done():
				yield("", ctx.Err())
				return
			}
		}
		for _, frag := range f.fragments {
			if !yield(frag, nil) {
				return
			}
			if f.afterEach != nil {
				f.afterEach()
			}
		}
		if f.err != nil {
			yield("", f.err)
		}
	}
}

func (f *fakeClient) Complete(_ context.Context, req completion.Request) (string, error) {
	f.mu.Lock()
	f.requests = append(f.requests, req)
	f.mu.Unlock()
	if f.err != nil {
		return "", f.err
	}
	return strings.Join(f.fragments, ""), nil
}

func (f *fakeClient) calls() []completion.Request {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]completion.Request(nil), f.requests...)
}
