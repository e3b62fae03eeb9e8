// Package translate turns normalized text into the target language through
// a pluggable model backend, chunking long inputs and reassembling results
// in original document order.
package translate

import (
	"context"
	"errors"
	"time"
)

var (
	// ErrUnavailable covers auth failures, 5xx and transport errors.
	ErrUnavailable = errors.New("translation backend unavailable")
	// ErrRateLimited is retried per chunk with exponential backoff.
	ErrRateLimited = errors.New("translation backend rate limited")
	// ErrBudgetExceeded means the input cannot fit the token budget at all.
	ErrBudgetExceeded = errors.New("token budget exceeded")
)

// Request is one chunk-sized translation call. Retries of a chunk must
// reuse the exact same parameters.
type Request struct {
	Text        string
	SourceLang  string // ISO 639-1 or "und" for backend auto-detect
	TargetLang  string
	MaxTokens   int
	Temperature float32
}

// Backend is a translation model provider, selected once at startup.
type Backend interface {
	Name() string
	Model() string
	Translate(ctx context.Context, req Request) (string, error)
}

// ChunkResult carries one chunk's outcome; Index is the original chunk
// position and drives reassembly regardless of completion order.
type ChunkResult struct {
	Index   int
	Source  string
	Text    string
	Latency time.Duration
	Err     error
}

// Output is the whole translate operation's result.
type Output struct {
	Chunks []ChunkResult
	// Complete is false when at least one chunk exhausted its retries.
	Complete bool
}

// FailedCount returns how many chunks ended with an error.
func (o Output) FailedCount() int {
	n := 0
	for _, c := range o.Chunks {
		if c.Err != nil {
			n++
		}
	}
	return n
}
