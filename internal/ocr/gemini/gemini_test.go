package gemini

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"lens-bot/internal/ocr"
)

func fakeServer(t *testing.T, status int, modelText string) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if status != http.StatusOK {
			w.WriteHeader(status)
			return
		}
		reply := map[string]any{
			"candidates": []any{
				map[string]any{"content": map[string]any{"parts": []any{
					map[string]any{"text": modelText},
				}}},
			},
		}
		_ = json.NewEncoder(w).Encode(reply)
	}))
}

func newTestEngine(url string) *Engine {
	e := New("test-key", "gemini-2.5-flash")
	e.baseURL = url
	return e
}

func TestRecognizeParsesFragments(t *testing.T) {
	srv := fakeServer(t, http.StatusOK, "```json\n"+
		`{"full_text":"Hello, world","fragments":[{"text":"Hello,","lang":"en","confidence":0.97},{"text":"world","lang":"en","confidence":0.94}]}`+
		"\n```")
	defer srv.Close()

	res, err := newTestEngine(srv.URL).Recognize(context.Background(), ocr.Request{
		Image: []byte{0xFF, 0xD8}, MIME: "image/jpeg", Languages: []string{"eng", "rus"},
	})
	require.NoError(t, err)
	assert.Equal(t, "Hello, world", res.PlainText)
	require.Len(t, res.Fragments, 2)
	assert.Equal(t, "en", res.Fragments[0].Lang)
	assert.InDelta(t, 0.97, res.Fragments[0].Confidence, 0.0001)
	assert.True(t, res.JointPass)
}

func TestRecognizeEmptyIsNoText(t *testing.T) {
	srv := fakeServer(t, http.StatusOK, `{"full_text":"","fragments":[]}`)
	defer srv.Close()

	_, err := newTestEngine(srv.URL).Recognize(context.Background(), ocr.Request{Image: []byte{1}})
	assert.ErrorIs(t, err, ocr.ErrNoText)
}

func TestRecognizeServerErrorIsUnavailable(t *testing.T) {
	srv := fakeServer(t, http.StatusInternalServerError, "")
	defer srv.Close()

	_, err := newTestEngine(srv.URL).Recognize(context.Background(), ocr.Request{Image: []byte{1}})
	assert.ErrorIs(t, err, ocr.ErrUnavailable)
}

func TestRecognizeNonJSONFallsBackToPlainText(t *testing.T) {
	srv := fakeServer(t, http.StatusOK, "Hello from a chatty model")
	defer srv.Close()

	res, err := newTestEngine(srv.URL).Recognize(context.Background(), ocr.Request{Image: []byte{1}})
	require.NoError(t, err)
	assert.Equal(t, "Hello from a chatty model", res.PlainText)
	require.Len(t, res.Fragments, 1)
}

func TestRecognizeMissingKeyIsUnavailable(t *testing.T) {
	e := New("", "gemini-2.5-flash")
	_, err := e.Recognize(context.Background(), ocr.Request{Image: []byte{1}})
	assert.ErrorIs(t, err, ocr.ErrUnavailable)
}
