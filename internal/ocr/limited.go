package ocr

import (
	"context"
	"fmt"
	"time"

	"golang.org/x/sync/semaphore"
)

// Limited wraps an engine with a shared invocation cap and a hard per-call
// timeout. The cap keeps concurrent engine work within the hosting tier's
// resource ceiling; the timeout turns a wedged engine into ErrUnavailable.
type Limited struct {
	eng     Engine
	sem     *semaphore.Weighted
	timeout time.Duration
}

func Limit(e Engine, maxConcurrent int64, timeout time.Duration) *Limited {
	if maxConcurrent < 1 {
		maxConcurrent = 1
	}
	return &Limited{eng: e, sem: semaphore.NewWeighted(maxConcurrent), timeout: timeout}
}

func (l *Limited) Name() string { return l.eng.Name() }

func (l *Limited) Recognize(ctx context.Context, req Request) (Result, error) {
	if err := l.sem.Acquire(ctx, 1); err != nil {
		return Result{}, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}

	ctx, cancel := context.WithTimeout(ctx, l.timeout)
	defer cancel()

	type outcome struct {
		res Result
		err error
	}
	done := make(chan outcome, 1)
	go func() {
		defer l.sem.Release(1)
		res, err := l.eng.Recognize(ctx, req)
		done <- outcome{res, err}
	}()

	select {
	case out := <-done:
		return out.res, out.err
	case <-ctx.Done():
		// The call is abandoned; a late result is discarded with the channel.
		return Result{}, fmt.Errorf("%w: %s: %v", ErrUnavailable, l.eng.Name(), ctx.Err())
	}
}
