package main

import (
	"context"
	"database/sql"
	"errors"
	"log"
	"net"
	"regexp"
	"strconv"
	"strings"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"go.uber.org/zap"

	"lens-bot/internal/config"
	"lens-bot/internal/httpserver"
	"lens-bot/internal/imagecheck"
	"lens-bot/internal/keepalive"
	"lens-bot/internal/normalize"
	"lens-bot/internal/ocr"
	ocrgemini "lens-bot/internal/ocr/gemini"
	"lens-bot/internal/ocr/tesseract"
	"lens-bot/internal/pipeline"
	"lens-bot/internal/store"
	"lens-bot/internal/telegram"
	"lens-bot/internal/translate"
	trgemini "lens-bot/internal/translate/gemini"
	"lens-bot/internal/translate/openai"
	"lens-bot/internal/util"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config: %v", err)
	}

	logger := newLogger(cfg.Debug)
	defer logger.Sync()

	ctx := context.Background()

	// --- Translation cache (optional) ---
	var db *sql.DB
	var cache pipeline.Cache
	if cfg.DatabaseURL != "" {
		dbCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
		db, err = store.Open(dbCtx, cfg.DatabaseURL)
		cancel()
		if err != nil {
			logger.Warnw("db unavailable, caching disabled", "err", err)
			db = nil
		} else {
			db.SetMaxOpenConns(10)
			db.SetMaxIdleConns(10)
			db.SetConnMaxLifetime(time.Hour)
			repo := store.NewTranslationRepo(db, cfg.CacheTTL)
			if err := repo.EnsureSchema(ctx); err != nil {
				logger.Warnw("schema setup failed, caching disabled", "err", err)
				db.Close()
				db = nil
			} else {
				cache = repo
				logger.Infow("translation cache enabled", "ttl", cfg.CacheTTL)
			}
		}
	}

	// --- Telegram bot ---
	bot, err := tgbotapi.NewBotAPI(cfg.TelegramBotToken)
	if err != nil {
		logger.Fatalw("telegram auth failed", "err", err)
	}
	bot.Debug = cfg.Debug
	logger.Infow("authorized", "bot", bot.Self.UserName)

	// --- OCR engines ---
	engines := telegram.Engines{
		Tesseract: ocr.Limit(
			tesseract.New(cfg.TesseractDataPrefix, cfg.PreprocessImages),
			int64(cfg.MaxOCRConcurrency), cfg.OCRTimeout),
	}
	if cfg.GeminiAPIKey != "" {
		engines.Gemini = ocr.Limit(
			ocrgemini.New(cfg.GeminiAPIKey, cfg.GeminiModel),
			int64(cfg.MaxOCRConcurrency), cfg.OCRTimeout)
	}
	defaultEngine := engines.Tesseract
	if cfg.OCREngine == "gemini" {
		defaultEngine = engines.Gemini
	}
	manager := ocr.NewManager(defaultEngine)

	// --- Translation backend ---
	var backend translate.Backend
	switch cfg.TranslationService {
	case "gemini":
		gb, err := trgemini.New(ctx, cfg.GeminiAPIKey, cfg.GeminiModel)
		if err != nil {
			logger.Fatalw("gemini client failed", "err", err)
		}
		defer gb.Close()
		backend = gb
	default:
		backend = openai.New(cfg.OpenAIAPIKey, cfg.OpenAIModel)
	}

	orch := translate.New(backend,
		int64(cfg.MaxTranslateConcurrency), cfg.TranslateTimeout,
		translate.RetryPolicy{MaxAttempts: cfg.RetryMaxAttempts, InitialInterval: cfg.RetryInitialDelay},
		logger)

	// --- Pipeline ---
	coordinator := pipeline.NewCoordinator(
		imagecheck.New(cfg.MaxImageSize, cfg.SupportedFormatList()),
		manager, orch, cache,
		pipeline.Options{
			Languages:       cfg.OCRLanguageList(),
			MaxTokens:       cfg.MaxTokens,
			Temperature:     cfg.Temperature,
			PipelineTimeout: cfg.PipelineTimeout,
			RetryDelay:      cfg.RetryInitialDelay,
			Normalize:       normalize.DefaultOptions(),
		},
		logger)

	router := telegram.NewRouter(bot, manager, engines, coordinator,
		telegram.NewPrefs(cfg.DefaultTargetLang), logger)

	httpserver.Register(db)
	addr := cfg.BindAddr()

	if cfg.KeepAliveEnabled && cfg.KeepAliveURL != "" {
		go keepalive.Run(ctx, cfg.KeepAliveURL, cfg.KeepAliveInterval, logger)
	}

	if strings.TrimSpace(cfg.WebhookURL) != "" {
		startWebhookMode(addr, bot, router, cfg.WebhookURL, logger)
	} else {
		startPollingMode(addr, bot, router, logger)
	}
}

func newLogger(debug bool) *zap.SugaredLogger {
	var l *zap.Logger
	var err error
	if debug {
		l, err = zap.NewDevelopment()
	} else {
		l, err = zap.NewProduction()
	}
	if err != nil {
		log.Fatalf("logger: %v", err)
	}
	return l.Sugar()
}

// ---------------- Modes -----------------

func startWebhookMode(addr string, bot *tgbotapi.BotAPI, r *telegram.Router, baseURL string, logger *zap.SugaredLogger) {
	// Secret webhook path derived from the token.
	path := "/webhook/" + util.SHA256Hex([]byte(bot.Token))[:16]
	public := strings.TrimRight(baseURL, "/") + path

	wh, err := tgbotapi.NewWebhook(public)
	if err != nil {
		logger.Fatalw("webhook config failed", "err", err)
	}
	wh.DropPendingUpdates = true
	if _, err := bot.Request(wh); err != nil {
		logger.Fatalw("webhook registration failed", "err", err)
	}

	// ListenForWebhook registers on the DefaultServeMux next to /healthz.
	updates := bot.ListenForWebhook(path)
	go func() {
		for upd := range updates {
			r.HandleUpdate(upd)
		}
		logger.Warnw("webhook updates channel closed")
	}()

	logger.Infow("webhook mode", "addr", addr, "path", path)
	if err := httpserver.Start(addr); err != nil {
		logger.Fatalw("http server failed", "err", err)
	}
}

func startPollingMode(addr string, bot *tgbotapi.BotAPI, r *telegram.Router, logger *zap.SugaredLogger) {
	go func() {
		logger.Infow("health server", "addr", addr)
		if err := httpserver.Start(addr); err != nil {
			logger.Fatalw("http server failed", "err", err)
		}
	}()

	logger.Infow("polling mode")
	runPolling(context.Background(), bot, logger, r.HandleUpdate)
}

// ---------------- Polling loop -----------------

func runPolling(ctx context.Context, bot *tgbotapi.BotAPI, logger *zap.SugaredLogger, handle func(tgbotapi.Update)) {
	offset := 0
	baseDelay := time.Second
	maxDelay := 15 * time.Second

	for {
		select {
		case <-ctx.Done():
			logger.Infow("polling stopped")
			return
		default:
		}

		u := tgbotapi.NewUpdate(offset)
		u.Timeout = 30

		updates, err := bot.GetUpdates(u)
		if err != nil {
			d := retryDelayFromError(err)
			if d < baseDelay {
				d = baseDelay
			}
			if d > maxDelay {
				d = maxDelay
			}
			logger.Warnw("polling error", "err", err, "retry_in", d)
			time.Sleep(d)
			continue
		}

		for _, upd := range updates {
			if upd.UpdateID >= offset {
				offset = upd.UpdateID + 1
			}
			handle(upd)
		}

		if len(updates) == 0 {
			time.Sleep(200 * time.Millisecond)
		}
	}
}

var reRetryAfter = regexp.MustCompile(`(?i)retry after\s+(\d+)`)

func retryDelayFromError(err error) time.Duration {
	if err == nil {
		return 0
	}
	s := strings.ToLower(err.Error())
	if strings.Contains(s, "too many requests") {
		if m := reRetryAfter.FindStringSubmatch(s); len(m) == 2 {
			if n, _ := strconv.Atoi(m[1]); n > 0 {
				return time.Duration(n) * time.Second
			}
		}
		return 3 * time.Second
	}
	var ne net.Error
	if errors.As(err, &ne) && ne.Timeout() {
		return 2 * time.Second
	}
	return time.Second
}
