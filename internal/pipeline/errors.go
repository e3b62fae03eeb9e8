package pipeline

import (
	"context"
	"errors"
	"fmt"

	"lens-bot/internal/imagecheck"
	"lens-bot/internal/ocr"
	"lens-bot/internal/translate"
)

// Kind classifies a pipeline error for retry policy and user messaging.
type Kind string

const (
	// KindValidation: the input itself is unacceptable. Never retried.
	KindValidation Kind = "validation"
	// KindContent: the input is fine but holds nothing to work with.
	// Retrying cannot change the result.
	KindContent Kind = "content"
	// KindInfra: an external dependency misbehaved. One stage-level retry.
	KindInfra Kind = "infrastructure"
	// KindBudget: the text cannot fit the model's token budget.
	KindBudget Kind = "budget"
	// KindTimeout: the run hit the pipeline deadline.
	KindTimeout Kind = "timeout"
	// KindInternal: a bug or an unclassified failure.
	KindInternal Kind = "internal"
)

// Classify maps an error from any stage onto its Kind. Timeout wins over
// the wrapped cause so a run cancelled mid-stage reports the deadline.
func Classify(err error) Kind {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, context.DeadlineExceeded):
		return KindTimeout
	case errors.Is(err, imagecheck.ErrTooLarge), errors.Is(err, imagecheck.ErrInvalidFormat):
		return KindValidation
	case errors.Is(err, ocr.ErrNoText):
		return KindContent
	case errors.Is(err, translate.ErrBudgetExceeded):
		return KindBudget
	case errors.Is(err, ocr.ErrUnavailable),
		errors.Is(err, translate.ErrUnavailable),
		errors.Is(err, translate.ErrRateLimited):
		return KindInfra
	default:
		return KindInternal
	}
}

// Retryable reports whether a single stage-level retry is worth attempting.
func Retryable(err error) bool {
	return Classify(err) == KindInfra
}

// UserMessage renders an error as a reply the chat user can act on. It
// never leaks request payloads or upstream response bodies.
func UserMessage(err error) string {
	switch Classify(err) {
	case KindValidation:
		if errors.Is(err, imagecheck.ErrTooLarge) {
			return "This image is too large. Please send an image under 10 MB."
		}
		return "I can't read this file format. Please send a JPG, PNG, BMP, TIFF or WebP image."
	case KindContent:
		return "I couldn't find any text in this image. Try a sharper photo with visible text."
	case KindBudget:
		return "The text in this image is too long to translate in one go. Try splitting it across images."
	case KindTimeout:
		return "Processing took too long and was stopped. Please try again."
	case KindInfra:
		return "The translation service is temporarily unavailable. Please try again in a minute."
	default:
		return "Something went wrong while processing the image. Please try again."
	}
}

// stageError tags a failure with the stage it came from.
type stageError struct {
	stage Stage
	err   error
}

func (e *stageError) Error() string { return fmt.Sprintf("%s: %v", e.stage, e.err) }
func (e *stageError) Unwrap() error { return e.err }
