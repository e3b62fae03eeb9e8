// Package openai implements the translation backend on the OpenAI
// chat-completions API.
package openai

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"lens-bot/internal/translate"
	"lens-bot/internal/util"
)

const systemPrompt = "You are a professional translator who preserves the structure and formatting of the original text."

type Backend struct {
	APIKey    string
	ModelName string
	httpc     *http.Client
	baseURL   string
}

func New(key, model string) *Backend {
	return &Backend{
		APIKey:    key,
		ModelName: model,
		httpc:     &http.Client{Timeout: 60 * time.Second},
		baseURL:   "https://api.openai.com/v1",
	}
}

func (b *Backend) Name() string  { return "openai" }
func (b *Backend) Model() string { return b.ModelName }

func (b *Backend) Translate(ctx context.Context, req translate.Request) (string, error) {
	if b.APIKey == "" {
		return "", fmt.Errorf("%w: OPENAI_API_KEY is empty", translate.ErrUnavailable)
	}

	body := map[string]any{
		"model": b.ModelName,
		"messages": []map[string]string{
			{"role": "system", "content": systemPrompt},
			{"role": "user", "content": userPrompt(req)},
		},
		"max_tokens":  req.MaxTokens,
		"temperature": req.Temperature,
	}
	payload, _ := json.Marshal(body)

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, b.baseURL+"/chat/completions", bytes.NewReader(payload))
	if err != nil {
		return "", fmt.Errorf("%w: %v", translate.ErrUnavailable, err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Authorization", "Bearer "+b.APIKey)

	resp, err := b.httpc.Do(httpReq)
	if err != nil {
		return "", fmt.Errorf("%w: %v", translate.ErrUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		x, _ := io.ReadAll(resp.Body)
		detail := util.Truncate(string(x), 200)
		switch {
		case resp.StatusCode == http.StatusTooManyRequests:
			return "", fmt.Errorf("%w: openai 429: %s", translate.ErrRateLimited, detail)
		default:
			return "", fmt.Errorf("%w: openai %d: %s", translate.ErrUnavailable, resp.StatusCode, detail)
		}
	}

	var out struct {
		Choices []struct {
			Message struct {
				Content string `json:"content"`
			} `json:"message"`
		} `json:"choices"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return "", fmt.Errorf("%w: decode: %v", translate.ErrUnavailable, err)
	}
	if len(out.Choices) == 0 {
		return "", fmt.Errorf("%w: empty choices", translate.ErrUnavailable)
	}
	return strings.TrimSpace(out.Choices[0].Message.Content), nil
}

func userPrompt(req translate.Request) string {
	source := req.SourceLang
	if source == "" || source == "und" {
		source = "the auto-detected language"
	}
	return fmt.Sprintf(`Translate the following text from %s to %s.

Rules:
1. Preserve the original structure and formatting.
2. If this is a receipt or document, keep its tabular layout.
3. Keep numbers, dates and special symbols exactly as they are.
4. Leave brand names and proper nouns untranslated.
5. Reply with the translation only, no commentary.

Text:
%s`, source, req.TargetLang, req.Text)
}
