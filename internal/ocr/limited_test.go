package ocr

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeEngine struct {
	name    string
	delay   time.Duration
	res     Result
	err     error
	active  atomic.Int64
	maxSeen atomic.Int64
}

func (f *fakeEngine) Name() string { return f.name }

func (f *fakeEngine) Recognize(ctx context.Context, _ Request) (Result, error) {
	cur := f.active.Add(1)
	defer f.active.Add(-1)
	for {
		seen := f.maxSeen.Load()
		if cur <= seen || f.maxSeen.CompareAndSwap(seen, cur) {
			break
		}
	}
	if f.delay > 0 {
		select {
		case <-time.After(f.delay):
		case <-ctx.Done():
			return Result{}, ctx.Err()
		}
	}
	return f.res, f.err
}

func TestLimitedPassesThrough(t *testing.T) {
	eng := &fakeEngine{name: "fake", res: Result{PlainText: "hi", JointPass: true}}
	l := Limit(eng, 2, time.Second)

	res, err := l.Recognize(context.Background(), Request{})
	require.NoError(t, err)
	assert.Equal(t, "hi", res.PlainText)
	assert.Equal(t, "fake", l.Name())
}

func TestLimitedTimeoutBecomesUnavailable(t *testing.T) {
	eng := &fakeEngine{name: "slow", delay: 5 * time.Second}
	l := Limit(eng, 1, 30*time.Millisecond)

	start := time.Now()
	_, err := l.Recognize(context.Background(), Request{})
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrUnavailable)
	assert.Less(t, time.Since(start), time.Second, "must not wait for the engine")
}

func TestLimitedCapsConcurrency(t *testing.T) {
	eng := &fakeEngine{name: "fake", delay: 20 * time.Millisecond}
	l := Limit(eng, 2, time.Second)

	done := make(chan struct{})
	for i := 0; i < 6; i++ {
		go func() {
			_, _ = l.Recognize(context.Background(), Request{})
			done <- struct{}{}
		}()
	}
	for i := 0; i < 6; i++ {
		<-done
	}
	assert.LessOrEqual(t, eng.maxSeen.Load(), int64(2))
}

func TestLimitedContentErrorNotRewritten(t *testing.T) {
	eng := &fakeEngine{name: "fake", err: ErrNoText}
	l := Limit(eng, 1, time.Second)

	_, err := l.Recognize(context.Background(), Request{})
	assert.ErrorIs(t, err, ErrNoText)
	assert.False(t, errors.Is(err, ErrUnavailable))
}

func TestManagerPerChatOverride(t *testing.T) {
	def := &fakeEngine{name: "default"}
	alt := &fakeEngine{name: "alt"}
	m := NewManager(def)

	assert.Equal(t, "default", m.Get(1).Name())
	m.Set(1, alt)
	assert.Equal(t, "alt", m.Get(1).Name())
	assert.Equal(t, "default", m.Get(2).Name())
}
