package config

import (
	"errors"
	"fmt"
	"net"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
)

var ErrMissingRequired = errors.New("missing required configuration")

// Config is read once at startup and treated as immutable afterwards.
// Every component receives the values it needs at construction; nothing
// reads the process environment after Load returns.
type Config struct {
	TelegramBotToken string `envconfig:"TELEGRAM_BOT_TOKEN"`
	WebhookURL       string `envconfig:"WEBHOOK_URL"`

	OpenAIAPIKey      string  `envconfig:"OPENAI_API_KEY"`
	OpenAIModel       string  `envconfig:"OPENAI_MODEL" default:"gpt-4o-mini"`
	GeminiAPIKey      string  `envconfig:"GEMINI_API_KEY"`
	GeminiModel       string  `envconfig:"GEMINI_MODEL" default:"gemini-2.5-flash"`
	MaxTokens         int     `envconfig:"OPENAI_MAX_TOKENS" default:"2000"`
	Temperature       float32 `envconfig:"OPENAI_TEMPERATURE" default:"0.3"`
	TranslationService string `envconfig:"TRANSLATION_SERVICE" default:"openai"`
	DefaultTargetLang  string `envconfig:"DEFAULT_TARGET_LANG" default:"en"`

	ServerHost string `envconfig:"SERVER_HOST" default:"0.0.0.0"`
	Port       int    `envconfig:"PORT" default:"8000"`

	TesseractDataPrefix string `envconfig:"TESSERACT_CMD"`
	OCRLanguages        string `envconfig:"OCR_LANGUAGES" default:"eng,rus,deu,fra,spa,ita,por,chi_sim,jpn,kor"`
	OCREngine           string `envconfig:"OCR_ENGINE" default:"tesseract"`
	PreprocessImages    bool   `envconfig:"IMAGE_PREPROCESSING_ENABLED" default:"true"`

	MaxImageSize     int64  `envconfig:"MAX_IMAGE_SIZE" default:"10485760"`
	SupportedFormats string `envconfig:"SUPPORTED_IMAGE_FORMATS" default:"jpg,jpeg,png,bmp,tiff,webp"`

	OCRTimeout       time.Duration `envconfig:"OCR_TIMEOUT" default:"30s"`
	TranslateTimeout time.Duration `envconfig:"TRANSLATE_TIMEOUT" default:"90s"`
	PipelineTimeout  time.Duration `envconfig:"PIPELINE_TIMEOUT" default:"120s"`

	MaxOCRConcurrency       int `envconfig:"MAX_OCR_CONCURRENCY" default:"2"`
	MaxTranslateConcurrency int `envconfig:"MAX_TRANSLATE_CONCURRENCY" default:"4"`

	RetryMaxAttempts  int           `envconfig:"RETRY_MAX_ATTEMPTS" default:"3"`
	RetryInitialDelay time.Duration `envconfig:"RETRY_INITIAL_DELAY" default:"500ms"`

	KeepAliveEnabled  bool          `envconfig:"KEEP_ALIVE_ENABLED" default:"true"`
	KeepAliveInterval time.Duration `envconfig:"KEEP_ALIVE_INTERVAL" default:"60s"`
	KeepAliveURL      string        `envconfig:"KEEP_ALIVE_URL"`

	DatabaseURL string        `envconfig:"DATABASE_URL"`
	CacheTTL    time.Duration `envconfig:"CACHE_TTL" default:"1h"`

	Debug bool `envconfig:"DEBUG" default:"false"`
}

// Load reads .env (best effort), then the process environment, then
// validates. Callers must treat a non-nil error as fatal.
func Load() (*Config, error) {
	_ = godotenv.Load(".env")

	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) Validate() error {
	if strings.TrimSpace(c.TelegramBotToken) == "" {
		return fmt.Errorf("%w: TELEGRAM_BOT_TOKEN", ErrMissingRequired)
	}
	switch c.TranslationService {
	case "openai":
		if strings.TrimSpace(c.OpenAIAPIKey) == "" {
			return fmt.Errorf("%w: OPENAI_API_KEY (TRANSLATION_SERVICE=openai)", ErrMissingRequired)
		}
	case "gemini":
		if strings.TrimSpace(c.GeminiAPIKey) == "" {
			return fmt.Errorf("%w: GEMINI_API_KEY (TRANSLATION_SERVICE=gemini)", ErrMissingRequired)
		}
	default:
		return fmt.Errorf("unknown TRANSLATION_SERVICE %q (want openai|gemini)", c.TranslationService)
	}
	switch c.OCREngine {
	case "tesseract":
	case "gemini":
		if strings.TrimSpace(c.GeminiAPIKey) == "" {
			return fmt.Errorf("%w: GEMINI_API_KEY (OCR_ENGINE=gemini)", ErrMissingRequired)
		}
	default:
		return fmt.Errorf("unknown OCR_ENGINE %q (want tesseract|gemini)", c.OCREngine)
	}
	if c.Port < 1 || c.Port > 65535 {
		return fmt.Errorf("invalid PORT %d", c.Port)
	}
	if c.MaxImageSize <= 0 {
		return fmt.Errorf("invalid MAX_IMAGE_SIZE %d", c.MaxImageSize)
	}
	if c.MaxTokens <= 0 {
		return fmt.Errorf("invalid OPENAI_MAX_TOKENS %d", c.MaxTokens)
	}
	if len(c.OCRLanguageList()) == 0 {
		return fmt.Errorf("%w: OCR_LANGUAGES", ErrMissingRequired)
	}
	return nil
}

// OCRLanguageList returns the ranked OCR language candidates.
func (c *Config) OCRLanguageList() []string {
	return splitTrimmed(c.OCRLanguages)
}

// SupportedFormatList returns the allowed image formats, lowercased.
func (c *Config) SupportedFormatList() []string {
	out := splitTrimmed(c.SupportedFormats)
	for i := range out {
		out[i] = strings.ToLower(out[i])
	}
	return out
}

// BindAddr is the host:port the HTTP server listens on.
func (c *Config) BindAddr() string {
	return net.JoinHostPort(c.ServerHost, fmt.Sprint(c.Port))
}

func splitTrimmed(s string) []string {
	var out []string
	for _, p := range strings.Split(s, ",") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
