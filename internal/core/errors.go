package core

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/Rorical/c60chat/internal/ratelimit"
)

var (
	// ErrEmptyInput is returned for blank submissions; the UI ignores them.
	ErrEmptyInput = errors.New("empty input")
	// ErrBusy is returned while a reply is still streaming. Submissions are
	// rejected, never queued.
	ErrBusy = errors.New("a reply is still streaming")
)

// RateLimitError is shown inline when the sliding window is full.
type RateLimitError struct {
	Limit  int
	Window time.Duration
}

func (e *RateLimitError) Error() string {
	return fmt.Sprintf("LIMIT_REACHED: %d MSGS / %s. TAKE A BREAK.", e.Limit, ratelimit.FormatWindow(e.Window))
}

// UpstreamError wraps a failure of the completion service.
type UpstreamError struct {
	Err error
}

func (e *UpstreamError) Error() string {
	return "SYS_ERR: " + strings.ToUpper(e.Err.Error())
}

func (e *UpstreamError) Unwrap() error {
	return e.Err
}
