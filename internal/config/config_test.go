package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setRequired(t *testing.T) {
	t.Setenv("TELEGRAM_BOT_TOKEN", "123:abc")
	t.Setenv("OPENAI_API_KEY", "sk-test")
}

func TestLoadDefaults(t *testing.T) {
	setRequired(t)

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "gpt-4o-mini", cfg.OpenAIModel)
	assert.Equal(t, 2000, cfg.MaxTokens)
	assert.InDelta(t, 0.3, cfg.Temperature, 0.0001)
	assert.Equal(t, int64(10485760), cfg.MaxImageSize)
	assert.Equal(t, "openai", cfg.TranslationService)
	assert.Equal(t, "tesseract", cfg.OCREngine)
	assert.Equal(t, "en", cfg.DefaultTargetLang)
	assert.Equal(t, 120*time.Second, cfg.PipelineTimeout)
	assert.Equal(t, "0.0.0.0:8000", cfg.BindAddr())
	assert.Equal(t,
		[]string{"eng", "rus", "deu", "fra", "spa", "ita", "por", "chi_sim", "jpn", "kor"},
		cfg.OCRLanguageList())
	assert.Equal(t,
		[]string{"jpg", "jpeg", "png", "bmp", "tiff", "webp"},
		cfg.SupportedFormatList())
}

func TestLoadMissingBotToken(t *testing.T) {
	t.Setenv("TELEGRAM_BOT_TOKEN", "")
	t.Setenv("OPENAI_API_KEY", "sk-test")

	_, err := Load()
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrMissingRequired)
}

func TestLoadMissingBackendCredential(t *testing.T) {
	t.Setenv("TELEGRAM_BOT_TOKEN", "123:abc")
	t.Setenv("OPENAI_API_KEY", "")
	t.Setenv("TRANSLATION_SERVICE", "openai")

	_, err := Load()
	assert.ErrorIs(t, err, ErrMissingRequired)
}

func TestLoadGeminiServiceNeedsKey(t *testing.T) {
	t.Setenv("TELEGRAM_BOT_TOKEN", "123:abc")
	t.Setenv("TRANSLATION_SERVICE", "gemini")
	t.Setenv("GEMINI_API_KEY", "")

	_, err := Load()
	assert.ErrorIs(t, err, ErrMissingRequired)

	t.Setenv("GEMINI_API_KEY", "g-test")
	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "gemini-2.5-flash", cfg.GeminiModel)
}

func TestLoadUnknownSelectors(t *testing.T) {
	setRequired(t)
	t.Setenv("TRANSLATION_SERVICE", "libretranslate")
	_, err := Load()
	require.Error(t, err)

	t.Setenv("TRANSLATION_SERVICE", "openai")
	t.Setenv("OCR_ENGINE", "easyocr")
	_, err = Load()
	require.Error(t, err)
}
