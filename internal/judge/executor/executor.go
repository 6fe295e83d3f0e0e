// Package executor dispatches composed sources to the remote execution backend.
package executor

import (
	"context"
	"time"

	"codearena/internal/judge/model"
)

// Limits are per-problem limits forwarded to the backend. Zero means unset.
type Limits struct {
	TimeLimitMs   int64
	MemoryLimitMB int64
}

// Request is one dispatch.
type Request struct {
	Language model.Language
	Source   string
	Limits   Limits
}

// Result carries captured output. Err is set when the backend could not be
// reached or answered with something unusable; Stdout and Stderr are empty then.
type Result struct {
	Stdout   string
	Stderr   string
	Duration time.Duration
	Err      error
}

// Dispatcher runs a composed source unit exactly once.
type Dispatcher interface {
	Dispatch(ctx context.Context, req Request) Result
	Supports(lang model.Language) bool
}
