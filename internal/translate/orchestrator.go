package translate

import (
	"context"
	"errors"
	"time"

	"github.com/cenkalti/backoff/v4"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/semaphore"
)

// RetryPolicy bounds per-chunk retries. The policy value is local to one
// stage invocation; no retry state is shared across requests.
type RetryPolicy struct {
	MaxAttempts     int
	InitialInterval time.Duration
}

func (p RetryPolicy) attempts() uint64 {
	if p.MaxAttempts < 1 {
		return 0
	}
	return uint64(p.MaxAttempts - 1)
}

// Orchestrator fans chunk requests out to the backend and reassembles the
// results strictly by chunk index. One orchestrator is shared by all
// concurrent requests; the semaphore caps simultaneous outbound calls.
type Orchestrator struct {
	backend Backend
	sem     *semaphore.Weighted
	retry   RetryPolicy
	timeout time.Duration
	log     *zap.SugaredLogger
}

func New(backend Backend, maxConcurrent int64, timeout time.Duration, retry RetryPolicy, log *zap.SugaredLogger) *Orchestrator {
	if maxConcurrent < 1 {
		maxConcurrent = 1
	}
	return &Orchestrator{
		backend: backend,
		sem:     semaphore.NewWeighted(maxConcurrent),
		retry:   retry,
		timeout: timeout,
		log:     log,
	}
}

func (o *Orchestrator) Backend() Backend { return o.backend }

// Translate chunks the text and dispatches chunks concurrently. A chunk
// failing after its retries does not disturb the others; the caller reads
// per-chunk errors from the Output. The returned error is non-nil only when
// every chunk failed or the wall-clock timeout expired before any result.
func (o *Orchestrator) Translate(ctx context.Context, text, sourceLang, targetLang string, maxTokens int, temperature float32) (Output, error) {
	if maxTokens <= 0 {
		return Output{}, ErrBudgetExceeded
	}
	chunks := Chunk(text, maxTokens)
	if len(chunks) == 0 {
		return Output{Complete: true}, nil
	}

	ctx, cancel := context.WithTimeout(ctx, o.timeout)
	defer cancel()

	results := make([]ChunkResult, len(chunks))
	var g errgroup.Group
	for i, chunk := range chunks {
		results[i] = ChunkResult{Index: i, Source: chunk}
		g.Go(func() error {
			if err := o.sem.Acquire(ctx, 1); err != nil {
				results[i].Err = err
				return nil
			}
			defer o.sem.Release(1)

			req := Request{
				Text:        chunk,
				SourceLang:  sourceLang,
				TargetLang:  targetLang,
				MaxTokens:   maxTokens,
				Temperature: temperature,
			}
			start := time.Now()
			out, err := o.translateChunk(ctx, req)
			results[i].Latency = time.Since(start)
			results[i].Text = out
			results[i].Err = err
			if err != nil {
				o.log.Warnw("chunk translation failed",
					"chunk", i, "backend", o.backend.Name(), "err", err)
			}
			return nil
		})
	}
	_ = g.Wait()

	output := Output{Chunks: results, Complete: true}
	var firstErr error
	failed := 0
	for _, r := range results {
		if r.Err != nil {
			failed++
			output.Complete = false
			if firstErr == nil {
				firstErr = r.Err
			}
		}
	}
	if failed == len(results) {
		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return output, context.DeadlineExceeded
		}
		return output, firstErr
	}
	return output, nil
}

// translateChunk retries rate limits with exponential backoff; every retry
// reuses the identical request parameters. Other errors are terminal for
// the chunk.
func (o *Orchestrator) translateChunk(ctx context.Context, req Request) (string, error) {
	bo := backoff.NewExponentialBackOff()
	if o.retry.InitialInterval > 0 {
		bo.InitialInterval = o.retry.InitialInterval
	}
	policy := backoff.WithContext(backoff.WithMaxRetries(bo, o.retry.attempts()), ctx)

	var out string
	err := backoff.Retry(func() error {
		s, err := o.backend.Translate(ctx, req)
		if err != nil {
			if errors.Is(err, ErrRateLimited) {
				return err
			}
			return backoff.Permanent(err)
		}
		out = s
		return nil
	}, policy)
	if err != nil {
		return "", err
	}
	return out, nil
}

// Assemble joins chunk results in original order, substituting a visible
// marker for chunks that could not be translated. Silent truncation is
// forbidden: a failed chunk always leaves a trace in the output.
func Assemble(out Output, marker func(source string) string) string {
	parts := make([]string, 0, len(out.Chunks))
	for _, c := range out.Chunks {
		if c.Err != nil {
			parts = append(parts, marker(c.Source))
			continue
		}
		parts = append(parts, c.Text)
	}
	return joinNonEmpty(parts)
}

func joinNonEmpty(parts []string) string {
	out := ""
	for _, p := range parts {
		if p == "" {
			continue
		}
		if out != "" {
			out += "\n"
		}
		out += p
	}
	return out
}
