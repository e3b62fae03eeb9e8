// Package gemini implements the translation backend on the Gemini API via
// the official generative-ai-go client.
package gemini

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/google/generative-ai-go/genai"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"

	"lens-bot/internal/translate"
)

type Backend struct {
	client    *genai.Client
	modelName string
}

func New(ctx context.Context, apiKey, model string) (*Backend, error) {
	client, err := genai.NewClient(ctx, option.WithAPIKey(apiKey))
	if err != nil {
		return nil, err
	}
	return &Backend{client: client, modelName: model}, nil
}

func (b *Backend) Name() string  { return "gemini" }
func (b *Backend) Model() string { return b.modelName }

func (b *Backend) Close() error { return b.client.Close() }

func (b *Backend) Translate(ctx context.Context, req translate.Request) (string, error) {
	m := b.client.GenerativeModel(b.modelName)
	m.SetTemperature(req.Temperature)
	if req.MaxTokens > 0 {
		m.SetMaxOutputTokens(int32(req.MaxTokens))
	}

	resp, err := m.GenerateContent(ctx, genai.Text(prompt(req)))
	if err != nil {
		return "", classify(err)
	}
	if len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
		return "", fmt.Errorf("%w: empty candidates", translate.ErrUnavailable)
	}

	var sb strings.Builder
	for _, part := range resp.Candidates[0].Content.Parts {
		if txt, ok := part.(genai.Text); ok {
			sb.WriteString(string(txt))
		}
	}
	out := strings.TrimSpace(sb.String())
	if out == "" {
		return "", fmt.Errorf("%w: empty reply", translate.ErrUnavailable)
	}
	return out, nil
}

func classify(err error) error {
	var gerr *googleapi.Error
	if errors.As(err, &gerr) && gerr.Code == http.StatusTooManyRequests {
		return fmt.Errorf("%w: %v", translate.ErrRateLimited, err)
	}
	return fmt.Errorf("%w: %v", translate.ErrUnavailable, err)
}

func prompt(req translate.Request) string {
	source := req.SourceLang
	if source == "" || source == "und" {
		source = "the auto-detected language"
	}
	return fmt.Sprintf(`You are a professional translator. Translate the following text from %s to %s.
Preserve structure and formatting, keep numbers and dates exact, leave brand
names and proper nouns untranslated. Reply with the translation only.

Text:
%s`, source, req.TargetLang, req.Text)
}
