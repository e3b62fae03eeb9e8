// Package gemini implements the remote OCR engine on the Gemini vision API.
package gemini

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"lens-bot/internal/ocr"
	"lens-bot/internal/util"
)

const system = `You perform OCR on a photographed or scanned document.
Extract ALL readable text, preserving reading order and line breaks.
Candidate languages, most likely first: %s.
Return STRICT JSON:
{
  "full_text": string,
  "fragments": [
    {"text": string, "lang": string, "confidence": number}
  ]
}
"lang" is an ISO 639-1 code, "confidence" is 0..1 per fragment.
If the image holds no readable text, return {"full_text": "", "fragments": []}.`

type Engine struct {
	APIKey  string
	Model   string
	httpc   *http.Client
	baseURL string
}

func New(key, model string) *Engine {
	return &Engine{
		APIKey:  key,
		Model:   model,
		httpc:   &http.Client{Timeout: 60 * time.Second},
		baseURL: "https://generativelanguage.googleapis.com/v1/models",
	}
}

func (e *Engine) Name() string { return "gemini" }

func (e *Engine) Recognize(ctx context.Context, req ocr.Request) (ocr.Result, error) {
	if e.APIKey == "" {
		return ocr.Result{}, fmt.Errorf("%w: GEMINI_API_KEY is empty", ocr.ErrUnavailable)
	}

	body := map[string]any{
		"contents": []any{
			map[string]any{
				"parts": []any{
					map[string]any{"text": fmt.Sprintf(system, strings.Join(req.Languages, ", "))},
					map[string]any{"inline_data": map[string]any{
						"mime_type": req.MIME,
						"data":      base64.StdEncoding.EncodeToString(req.Image),
					}},
				},
			},
		},
		"generationConfig": map[string]any{"temperature": 0},
	}
	payload, _ := json.Marshal(body)
	url := fmt.Sprintf("%s/%s:generateContent?key=%s", e.baseURL, e.Model, e.APIKey)

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(payload))
	if err != nil {
		return ocr.Result{}, fmt.Errorf("%w: %v", ocr.ErrUnavailable, err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := e.httpc.Do(httpReq)
	if err != nil {
		return ocr.Result{}, fmt.Errorf("%w: %v", ocr.ErrUnavailable, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		x, _ := io.ReadAll(resp.Body)
		return ocr.Result{}, fmt.Errorf("%w: gemini %d: %s", ocr.ErrUnavailable, resp.StatusCode, util.Truncate(string(x), 200))
	}

	var out struct {
		Candidates []struct {
			Content struct {
				Parts []struct {
					Text string `json:"text"`
				} `json:"parts"`
			} `json:"content"`
		} `json:"candidates"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return ocr.Result{}, fmt.Errorf("%w: decode: %v", ocr.ErrUnavailable, err)
	}
	if len(out.Candidates) == 0 || len(out.Candidates[0].Content.Parts) == 0 {
		return ocr.Result{}, ocr.ErrNoText
	}

	raw := util.StripCodeFences(out.Candidates[0].Content.Parts[0].Text)

	var parsed struct {
		FullText  string `json:"full_text"`
		Fragments []struct {
			Text       string  `json:"text"`
			Lang       string  `json:"lang"`
			Confidence float64 `json:"confidence"`
		} `json:"fragments"`
	}
	if err := json.Unmarshal([]byte(raw), &parsed); err != nil {
		// Model replied with plain text instead of JSON; treat the whole
		// reply as one fragment rather than failing the request.
		if strings.TrimSpace(raw) == "" {
			return ocr.Result{}, ocr.ErrNoText
		}
		return ocr.Result{
			Fragments: []ocr.Fragment{{Text: raw, Confidence: 0.5}},
			PlainText: raw,
			JointPass: true,
		}, nil
	}

	if strings.TrimSpace(parsed.FullText) == "" && len(parsed.Fragments) == 0 {
		return ocr.Result{}, ocr.ErrNoText
	}

	res := ocr.Result{PlainText: strings.TrimSpace(parsed.FullText), JointPass: true}
	for _, f := range parsed.Fragments {
		if strings.TrimSpace(f.Text) == "" {
			continue
		}
		res.Fragments = append(res.Fragments, ocr.Fragment{
			Text:       f.Text,
			Confidence: clamp01(f.Confidence),
			Lang:       strings.ToLower(strings.TrimSpace(f.Lang)),
		})
	}
	if res.PlainText == "" {
		parts := make([]string, 0, len(res.Fragments))
		for _, f := range res.Fragments {
			parts = append(parts, f.Text)
		}
		res.PlainText = strings.Join(parts, "\n")
	}
	if len(res.Fragments) == 0 {
		res.Fragments = []ocr.Fragment{{Text: res.PlainText, Confidence: 0.5}}
	}
	return res, nil
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
