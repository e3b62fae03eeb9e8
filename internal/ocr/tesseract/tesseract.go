// Package tesseract implements the local OCR engine on gosseract. The
// engine is invoked once per image with the full language candidate set
// (joint recognition), never once per language.
package tesseract

import (
	"context"
	"fmt"
	"strings"

	"github.com/otiai10/gosseract/v2"

	"lens-bot/internal/ocr"
)

type Engine struct {
	dataPrefix    string
	preprocess    bool
	clientFactory func() *gosseract.Client
}

// New constructs the engine. dataPrefix points at the tessdata directory
// (TESSERACT_CMD in the deployment config); empty means system default.
func New(dataPrefix string, preprocess bool) *Engine {
	return &Engine{
		dataPrefix:    dataPrefix,
		preprocess:    preprocess,
		clientFactory: gosseract.NewClient,
	}
}

func (e *Engine) Name() string { return "tesseract" }

func (e *Engine) Recognize(ctx context.Context, req ocr.Request) (ocr.Result, error) {
	select {
	case <-ctx.Done():
		return ocr.Result{}, fmt.Errorf("%w: %v", ocr.ErrUnavailable, ctx.Err())
	default:
	}

	img := req.Image
	if e.preprocess {
		img = Preprocess(img)
	}

	c := e.clientFactory()
	defer c.Close()

	if e.dataPrefix != "" {
		if err := c.SetTessdataPrefix(e.dataPrefix); err != nil {
			return ocr.Result{}, fmt.Errorf("%w: tessdata prefix: %v", ocr.ErrUnavailable, err)
		}
	}
	if err := c.SetImageFromBytes(img); err != nil {
		return ocr.Result{}, fmt.Errorf("%w: set image: %v", ocr.ErrUnavailable, err)
	}
	if len(req.Languages) > 0 {
		// gosseract joins the set with "+": one joint recognition pass.
		if err := c.SetLanguage(req.Languages...); err != nil {
			return ocr.Result{}, fmt.Errorf("%w: set languages: %v", ocr.ErrUnavailable, err)
		}
	}

	text, err := c.Text()
	if err != nil {
		return ocr.Result{}, fmt.Errorf("%w: %v", ocr.ErrUnavailable, err)
	}
	plain := strings.TrimSpace(text)
	if plain == "" {
		return ocr.Result{}, ocr.ErrNoText
	}

	frags := fragmentsFromBoxes(boxesOrNil(c), firstLanguage(req.Languages))
	if len(frags) == 0 {
		// Word geometry is optional; fall back to a single whole-text fragment.
		frags = []ocr.Fragment{{Text: plain, Confidence: 0.5, Lang: firstLanguage(req.Languages)}}
	}

	return ocr.Result{
		Fragments: frags,
		PlainText: plain,
		JointPass: true,
	}, nil
}

func boxesOrNil(c *gosseract.Client) []gosseract.BoundingBox {
	boxes, err := c.GetBoundingBoxes(gosseract.RIL_WORD)
	if err != nil {
		return nil
	}
	return boxes
}

func fragmentsFromBoxes(boxes []gosseract.BoundingBox, lang string) []ocr.Fragment {
	frags := make([]ocr.Fragment, 0, len(boxes))
	for _, b := range boxes {
		word := strings.TrimSpace(b.Word)
		if word == "" {
			continue
		}
		frags = append(frags, ocr.Fragment{
			Text: word,
			Region: ocr.Region{
				X: float64(b.Box.Min.X),
				Y: float64(b.Box.Min.Y),
				W: float64(b.Box.Dx()),
				H: float64(b.Box.Dy()),
			},
			Confidence: b.Confidence / 100.0,
			Lang:       lang,
		})
	}
	return frags
}

func firstLanguage(langs []string) string {
	if len(langs) == 0 {
		return ""
	}
	return langs[0]
}
