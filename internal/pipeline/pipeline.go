// Package pipeline runs one image through validation, text extraction,
// normalization and translation, and reduces whatever happens into a single
// Outcome for the chat layer.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"lens-bot/internal/imagecheck"
	"lens-bot/internal/metrics"
	"lens-bot/internal/normalize"
	"lens-bot/internal/ocr"
	"lens-bot/internal/translate"
	"lens-bot/internal/util"
)

// Status is the terminal state of a pipeline run.
type Status string

const (
	StatusCompleted          Status = "completed"
	StatusPartiallyCompleted Status = "partially_completed"
	StatusFailed             Status = "failed"
)

// Stage names the pipeline phases, in execution order.
type Stage string

const (
	StageValidate  Stage = "validate"
	StageExtract   Stage = "extract"
	StageNormalize Stage = "normalize"
	StageTranslate Stage = "translate"
)

// CacheKey identifies one cached translation. Two runs share an entry only
// when the image bytes, target language, backend and model all match.
type CacheKey struct {
	ImageHash  string
	TargetLang string
	Backend    string
	Model      string
}

// Cache is the optional translation cache. A nil Cache disables caching;
// cache errors degrade to a miss and never fail the run.
type Cache interface {
	Find(ctx context.Context, key CacheKey) (string, bool, error)
	Save(ctx context.Context, key CacheKey, sourceLang, text string) error
}

// Outcome is everything the chat layer needs to reply.
type Outcome struct {
	Status     Status
	Reply      string // translated text, or assembled partial text
	SourceText string
	SourceLang string
	TargetLang string
	Engine     string

	TotalChunks  int
	FailedChunks int
	FromCache    bool

	// Stage and Err are set when Status is StatusFailed.
	Stage Stage
	Err   error

	Timings map[Stage]time.Duration
}

// Options are the per-process pipeline knobs, fixed at startup.
type Options struct {
	Languages       []string // ranked OCR language candidates
	MaxTokens       int
	Temperature     float32
	PipelineTimeout time.Duration
	RetryDelay      time.Duration // pause before the single stage retry
	Normalize       normalize.Options
}

// Coordinator wires the stages together. One coordinator serves all chats;
// per-request state lives on the stack of Process.
type Coordinator struct {
	validator *imagecheck.Validator
	engines   *ocr.Manager
	orch      *translate.Orchestrator
	cache     Cache
	opts      Options
	log       *zap.SugaredLogger
}

func NewCoordinator(validator *imagecheck.Validator, engines *ocr.Manager, orch *translate.Orchestrator, cache Cache, opts Options, log *zap.SugaredLogger) *Coordinator {
	return &Coordinator{
		validator: validator,
		engines:   engines,
		orch:      orch,
		cache:     cache,
		opts:      opts,
		log:       log,
	}
}

// Process runs the full pipeline for one image. It always returns a usable
// Outcome; errors are folded into Outcome.Err with a classified status.
// The run is bounded by the pipeline timeout regardless of stage behavior.
func (c *Coordinator) Process(ctx context.Context, data []byte, declaredFormat string, chatID int64, targetLang string) Outcome {
	ctx, cancel := context.WithTimeout(ctx, c.opts.PipelineTimeout)
	defer cancel()

	out := Outcome{TargetLang: targetLang, Timings: map[Stage]time.Duration{}}
	start := time.Now()
	defer func() {
		metrics.PipelineOutcomes.WithLabelValues(string(out.Status)).Inc()
		c.log.Infow("pipeline finished",
			"chat", chatID, "status", out.Status, "lang", out.SourceLang,
			"chunks", out.TotalChunks, "failed", out.FailedChunks,
			"cache", out.FromCache, "took", time.Since(start))
	}()

	// Validation runs before anything that costs money or time.
	img, err := timed(c, StageValidate, &out, func() (imagecheck.Image, error) {
		return c.validator.Validate(data, declaredFormat, chatID)
	})
	if err != nil {
		return c.fail(ctx, &out, StageValidate, err)
	}

	engine := c.engines.Get(chatID)
	out.Engine = engine.Name()

	key := CacheKey{
		ImageHash:  util.SHA256Hex(img.Data),
		TargetLang: targetLang,
		Backend:    c.orch.Backend().Name(),
		Model:      c.orch.Backend().Model(),
	}
	if cached, ok := c.cacheFind(ctx, key); ok {
		out.Status = StatusCompleted
		out.Reply = cached
		out.FromCache = true
		return out
	}

	result, err := timedRetry(ctx, c, StageExtract, &out, func() (ocr.Result, error) {
		return engine.Recognize(ctx, ocr.Request{
			Image:     img.Data,
			MIME:      img.MIME,
			Languages: c.opts.Languages,
		})
	})
	if err != nil {
		return c.fail(ctx, &out, StageExtract, err)
	}

	norm, _ := timed(c, StageNormalize, &out, func() (normalize.Normalized, error) {
		return normalize.Normalize(result, c.opts.Normalize), nil
	})
	if norm.Text == "" {
		return c.fail(ctx, &out, StageNormalize, ocr.ErrNoText)
	}
	out.SourceText = norm.Text
	out.SourceLang = norm.Lang

	// Nothing to translate when the text is already in the target language.
	if norm.Lang == targetLang {
		out.Status = StatusCompleted
		out.Reply = norm.Text
		return out
	}

	tr, err := timedRetry(ctx, c, StageTranslate, &out, func() (translate.Output, error) {
		return c.orch.Translate(ctx, norm.Text, norm.Lang, targetLang, c.opts.MaxTokens, c.opts.Temperature)
	})
	if err != nil {
		return c.fail(ctx, &out, StageTranslate, err)
	}

	out.TotalChunks = len(tr.Chunks)
	out.FailedChunks = tr.FailedCount()
	out.Reply = translate.Assemble(tr, func(source string) string {
		return fmt.Sprintf("[untranslated: %s]", util.Truncate(source, 40))
	})

	if !tr.Complete {
		out.Status = StatusPartiallyCompleted
		return out
	}

	out.Status = StatusCompleted
	c.cacheSave(ctx, key, norm.Lang, out.Reply)
	return out
}

func (c *Coordinator) fail(ctx context.Context, out *Outcome, stage Stage, err error) Outcome {
	// A stage error caused by the expired pipeline deadline is a timeout,
	// whatever shape the stage wrapped it in.
	if errors.Is(ctx.Err(), context.DeadlineExceeded) && !errors.Is(err, context.DeadlineExceeded) {
		err = fmt.Errorf("%w: %v", context.DeadlineExceeded, err)
	}
	out.Status = StatusFailed
	out.Stage = stage
	out.Err = &stageError{stage: stage, err: err}
	return *out
}

// timed runs fn once and records its duration under the stage label.
func timed[T any](c *Coordinator, stage Stage, out *Outcome, fn func() (T, error)) (T, error) {
	start := time.Now()
	v, err := fn()
	d := time.Since(start)
	out.Timings[stage] += d
	metrics.StageDuration.WithLabelValues(string(stage)).Observe(d.Seconds())
	return v, err
}

// timedRetry adds the single stage-level retry: infrastructure failures get
// one more attempt after a short pause, everything else is terminal.
func timedRetry[T any](ctx context.Context, c *Coordinator, stage Stage, out *Outcome, fn func() (T, error)) (T, error) {
	v, err := timed(c, stage, out, fn)
	if err == nil || !Retryable(err) || ctx.Err() != nil {
		return v, err
	}

	metrics.StageRetries.WithLabelValues(string(stage)).Inc()
	c.log.Warnw("stage failed, retrying once", "stage", stage, "err", err)
	select {
	case <-time.After(c.opts.RetryDelay):
	case <-ctx.Done():
		return v, context.DeadlineExceeded
	}
	return timed(c, stage, out, fn)
}

func (c *Coordinator) cacheFind(ctx context.Context, key CacheKey) (string, bool) {
	if c.cache == nil {
		return "", false
	}
	text, ok, err := c.cache.Find(ctx, key)
	switch {
	case err != nil:
		metrics.CacheLookups.WithLabelValues("error").Inc()
		c.log.Warnw("cache lookup failed", "err", err)
		return "", false
	case ok:
		metrics.CacheLookups.WithLabelValues("hit").Inc()
		return text, true
	default:
		metrics.CacheLookups.WithLabelValues("miss").Inc()
		return "", false
	}
}

func (c *Coordinator) cacheSave(ctx context.Context, key CacheKey, sourceLang, text string) {
	if c.cache == nil {
		return
	}
	if err := c.cache.Save(ctx, key, sourceLang, text); err != nil {
		c.log.Warnw("cache save failed", "err", err)
	}
}
