// Package ocr defines the engine contract for text extraction and the
// shared plumbing (per-chat engine selection, concurrency limits, timeouts)
// around engine invocations.
package ocr

import (
	"context"
	"errors"
)

var (
	// ErrNoText is a content condition: the image holds no readable text.
	// Retrying will not change it.
	ErrNoText = errors.New("no text found")
	// ErrUnavailable is an infrastructure condition: missing engine,
	// crashed process, timeout. Eligible for a bounded retry upstream.
	ErrUnavailable = errors.New("ocr engine unavailable")
)

// Region is a rectangle in pixel coordinates, origin top-left.
type Region struct {
	X, Y, W, H float64
}

// Fragment is one recognized text unit in reading order.
type Fragment struct {
	Text       string
	Region     Region
	Confidence float64 // 0..1
	Lang       string  // engine language hint (tesseract code or ISO 639-1)
}

// Result is the extraction output for one image.
type Result struct {
	Fragments []Fragment
	PlainText string
	// JointPass is false when the engine could not run joint multi-language
	// recognition and degraded to a best-first single pass.
	JointPass bool
}

// Request carries one image and the ranked language candidates.
type Request struct {
	Image     []byte
	MIME      string
	Languages []string
}

// Engine extracts text from a single image. Implementations must honor ctx
// cancellation for remote calls; local engines are guarded by Limited.
type Engine interface {
	Name() string
	Recognize(ctx context.Context, req Request) (Result, error)
}
