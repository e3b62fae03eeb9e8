package translate

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type fakeBackend struct {
	mu       sync.Mutex
	calls    []Request
	behavior func(req Request, attempt int) (string, error)
	attempts map[string]int
	block    chan struct{} // when set, Translate blocks until closed or ctx done
}

func newFakeBackend(behavior func(req Request, attempt int) (string, error)) *fakeBackend {
	return &fakeBackend{behavior: behavior, attempts: map[string]int{}}
}

func (f *fakeBackend) Name() string  { return "fake" }
func (f *fakeBackend) Model() string { return "fake-1" }

func (f *fakeBackend) Translate(ctx context.Context, req Request) (string, error) {
	f.mu.Lock()
	f.calls = append(f.calls, req)
	f.attempts[req.Text]++
	attempt := f.attempts[req.Text]
	f.mu.Unlock()
	if f.block != nil {
		select {
		case <-f.block:
		case <-ctx.Done():
			return "", fmt.Errorf("%w: %v", ErrUnavailable, ctx.Err())
		}
	}
	return f.behavior(req, attempt)
}

func (f *fakeBackend) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.calls)
}

func testLogger() *zap.SugaredLogger { return zap.NewNop().Sugar() }

func quickRetry() RetryPolicy {
	return RetryPolicy{MaxAttempts: 3, InitialInterval: time.Millisecond}
}

// Long enough text for several chunks at maxTokens=20 (40-char budget).
const multiChunkText = "Alpha sentence one here. Beta sentence two here. Gamma sentence three here. Delta sentence four here."

func TestTranslateReassemblesInOriginalOrder(t *testing.T) {
	backend := newFakeBackend(func(req Request, _ int) (string, error) {
		// Later chunks complete first.
		if strings.HasPrefix(req.Text, "Alpha") {
			time.Sleep(50 * time.Millisecond)
		} else if strings.HasPrefix(req.Text, "Beta") {
			time.Sleep(25 * time.Millisecond)
		}
		return "T:" + req.Text, nil
	})
	o := New(backend, 8, time.Second, quickRetry(), testLogger())

	out, err := o.Translate(context.Background(), multiChunkText, "en", "ru", 20, 0.3)
	require.NoError(t, err)
	require.True(t, out.Complete)
	require.Greater(t, len(out.Chunks), 2)

	for i, c := range out.Chunks {
		assert.Equal(t, i, c.Index)
		assert.Equal(t, "T:"+c.Source, c.Text)
	}
	assembled := Assemble(out, func(s string) string { return "[x]" })
	assert.True(t, strings.Index(assembled, "Alpha") < strings.Index(assembled, "Delta"))
}

func TestTranslateRetriesRateLimitWithSameParams(t *testing.T) {
	backend := newFakeBackend(func(req Request, attempt int) (string, error) {
		if attempt < 3 {
			return "", ErrRateLimited
		}
		return "ok", nil
	})
	o := New(backend, 2, time.Second, quickRetry(), testLogger())

	out, err := o.Translate(context.Background(), "Short text.", "en", "de", 2000, 0.3)
	require.NoError(t, err)
	assert.True(t, out.Complete)
	assert.Equal(t, 3, backend.callCount())

	// Every retry reused identical parameters.
	first := backend.calls[0]
	for _, call := range backend.calls[1:] {
		assert.Equal(t, first, call)
	}
	assert.Equal(t, 2000, first.MaxTokens)
	assert.InDelta(t, 0.3, first.Temperature, 0.0001)
}

func TestTranslatePartialFailureIsolation(t *testing.T) {
	backend := newFakeBackend(func(req Request, _ int) (string, error) {
		if strings.HasPrefix(req.Text, "Beta") {
			return "", fmt.Errorf("%w: boom", ErrUnavailable)
		}
		return "T:" + req.Text, nil
	})
	o := New(backend, 4, time.Second, quickRetry(), testLogger())

	out, err := o.Translate(context.Background(), multiChunkText, "en", "ru", 20, 0.3)
	require.NoError(t, err, "partial failure must not fail the operation")
	assert.False(t, out.Complete)
	assert.Equal(t, 1, out.FailedCount())

	assembled := Assemble(out, func(s string) string {
		return "[untranslated: " + s + "]"
	})
	assert.Contains(t, assembled, "[untranslated: Beta")
	assert.Contains(t, assembled, "T:Alpha")
	assert.Contains(t, assembled, "T:Delta")
}

func TestTranslateAllChunksFailedReturnsError(t *testing.T) {
	backend := newFakeBackend(func(Request, int) (string, error) {
		return "", ErrUnavailable
	})
	o := New(backend, 2, time.Second, quickRetry(), testLogger())

	_, err := o.Translate(context.Background(), "Some text.", "en", "ru", 2000, 0.3)
	assert.ErrorIs(t, err, ErrUnavailable)
}

func TestTranslateRateLimitExhaustionIsTerminalForChunk(t *testing.T) {
	backend := newFakeBackend(func(Request, int) (string, error) {
		return "", ErrRateLimited
	})
	o := New(backend, 1, time.Second, RetryPolicy{MaxAttempts: 2, InitialInterval: time.Millisecond}, testLogger())

	_, err := o.Translate(context.Background(), "Some text.", "en", "ru", 2000, 0.3)
	assert.ErrorIs(t, err, ErrRateLimited)
	assert.Equal(t, 2, backend.callCount())
}

func TestTranslateWallClockTimeout(t *testing.T) {
	backend := newFakeBackend(func(req Request, _ int) (string, error) {
		return "too late", nil
	})
	backend.block = make(chan struct{})
	t.Cleanup(func() { close(backend.block) })
	o := New(backend, 2, 50*time.Millisecond, quickRetry(), testLogger())

	start := time.Now()
	_, err := o.Translate(context.Background(), "Some text.", "en", "ru", 2000, 0.3)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Less(t, time.Since(start), 2*time.Second)
}

func TestTranslateZeroBudget(t *testing.T) {
	o := New(newFakeBackend(nil), 1, time.Second, quickRetry(), testLogger())
	_, err := o.Translate(context.Background(), "text", "en", "ru", 0, 0.3)
	assert.ErrorIs(t, err, ErrBudgetExceeded)
}

func TestTranslateEmptyText(t *testing.T) {
	o := New(newFakeBackend(nil), 1, time.Second, quickRetry(), testLogger())
	out, err := o.Translate(context.Background(), "  ", "en", "ru", 2000, 0.3)
	require.NoError(t, err)
	assert.True(t, out.Complete)
	assert.Empty(t, out.Chunks)
}
