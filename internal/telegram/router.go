// Package telegram turns bot updates into pipeline runs and replies.
package telegram

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"path"
	"strings"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"go.uber.org/zap"

	"lens-bot/internal/metrics"
	"lens-bot/internal/ocr"
	"lens-bot/internal/pipeline"
)

// Engines holds the constructed OCR engines a chat can switch between.
// Gemini is nil when no API key is configured.
type Engines struct {
	Tesseract ocr.Engine
	Gemini    ocr.Engine
}

type Router struct {
	Bot        *tgbotapi.BotAPI
	EngManager *ocr.Manager
	Engines    Engines
	Pipe       *pipeline.Coordinator
	Prefs      *Prefs
	Log        *zap.SugaredLogger

	httpc *http.Client
}

func NewRouter(bot *tgbotapi.BotAPI, engManager *ocr.Manager, engines Engines, pipe *pipeline.Coordinator, prefs *Prefs, log *zap.SugaredLogger) *Router {
	return &Router{
		Bot:        bot,
		EngManager: engManager,
		Engines:    engines,
		Pipe:       pipe,
		Prefs:      prefs,
		Log:        log,
		httpc:      &http.Client{Timeout: 60 * time.Second},
	}
}

func (r *Router) HandleUpdate(upd tgbotapi.Update) {
	if upd.Message == nil {
		return
	}
	msg := upd.Message
	cid := msg.Chat.ID

	switch {
	case msg.IsCommand():
		metrics.UpdatesReceived.WithLabelValues("command").Inc()
		r.handleCommand(msg)
	case len(msg.Photo) > 0:
		metrics.UpdatesReceived.WithLabelValues("photo").Inc()
		ph := msg.Photo[len(msg.Photo)-1]
		r.acceptImage(cid, ph.FileID, "")
	case msg.Document != nil && isImageDocument(msg.Document):
		metrics.UpdatesReceived.WithLabelValues("document").Inc()
		r.acceptImage(cid, msg.Document.FileID, msg.Document.MimeType)
	default:
		metrics.UpdatesReceived.WithLabelValues("other").Inc()
		r.send(cid, "Send me a photo with text and I'll translate it. See /help.")
	}
}

func (r *Router) handleCommand(msg *tgbotapi.Message) {
	cid := msg.Chat.ID
	switch msg.Command() {
	case "start":
		r.send(cid, "Hi! Send me a photo with text in it and I'll extract and translate it.\n"+
			"Target language: "+r.Prefs.TargetLang(cid)+" (change with /lang).\nCommands: /lang, /engine, /help, /health")
	case "help":
		r.send(cid, "Send a photo or an image file with visible text.\n\n"+
			"/lang — show the target language\n"+
			"/lang <code> — set it (e.g. /lang de)\n"+
			"/engine — show the OCR engine\n"+
			"/engine tesseract|gemini — switch it\n"+
			"/health — check the bot is alive")
	case "health":
		r.send(cid, "✅ OK")
	case "lang":
		r.handleLangCommand(cid, msg.CommandArguments())
	case "engine":
		r.handleEngineCommand(cid, msg.CommandArguments())
	default:
		r.send(cid, "Unknown command. See /help.")
	}
}

func (r *Router) handleLangCommand(chatID int64, args string) {
	arg := strings.ToLower(strings.TrimSpace(args))
	if arg == "" {
		r.send(chatID, "Current target language: "+r.Prefs.TargetLang(chatID)+"\nUsage: /lang <code>, e.g. /lang de")
		return
	}
	if !ValidLangCode(arg) {
		r.send(chatID, "That doesn't look like a language code. Use a short code like en, de or zh.")
		return
	}
	r.Prefs.SetTargetLang(chatID, arg)
	r.send(chatID, "✅ Target language: "+arg)
}

func (r *Router) handleEngineCommand(chatID int64, args string) {
	name := strings.ToLower(strings.TrimSpace(args))
	if name == "" {
		r.send(chatID, "Current OCR engine: "+r.EngManager.Get(chatID).Name()+"\nUsage: /engine tesseract | gemini")
		return
	}
	switch name {
	case "tesseract":
		r.EngManager.Set(chatID, r.Engines.Tesseract)
		r.send(chatID, "✅ OCR engine: tesseract")
	case "gemini":
		if r.Engines.Gemini == nil {
			r.send(chatID, "❌ Gemini OCR is not configured.")
			return
		}
		r.EngManager.Set(chatID, r.Engines.Gemini)
		r.send(chatID, "✅ OCR engine: gemini")
	default:
		r.send(chatID, "Unknown engine. Available: tesseract | gemini")
	}
}

// acceptImage downloads the file and runs the pipeline off the update
// goroutine, so a slow run never blocks other chats.
func (r *Router) acceptImage(chatID int64, fileID, declaredMIME string) {
	file, err := r.Bot.GetFile(tgbotapi.FileConfig{FileID: fileID})
	if err != nil {
		r.Log.Warnw("get file failed", "chat", chatID, "err", err)
		r.send(chatID, "Couldn't fetch the image from Telegram. Please try again.")
		return
	}
	url := fmt.Sprintf("https://api.telegram.org/file/bot%s/%s", r.Bot.Token, file.FilePath)
	data, err := r.download(url)
	if err != nil {
		r.Log.Warnw("download failed", "chat", chatID, "err", err)
		r.send(chatID, "Couldn't download the image. Please try again.")
		return
	}

	declared := declaredMIME
	if declared == "" {
		declared = strings.TrimPrefix(path.Ext(file.FilePath), ".")
	}
	r.send(chatID, "Got it, working on the translation…")

	go func() {
		out := r.Pipe.Process(context.Background(), data, declared, chatID, r.Prefs.TargetLang(chatID))
		r.send(chatID, FormatOutcome(out))
	}()
}

func (r *Router) send(chatID int64, text string) {
	if _, err := r.Bot.Send(tgbotapi.NewMessage(chatID, text)); err != nil {
		r.Log.Warnw("send failed", "chat", chatID, "err", err)
	}
}

func (r *Router) download(url string) ([]byte, error) {
	resp, err := r.httpc.Get(url)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("status %d", resp.StatusCode)
	}
	return io.ReadAll(resp.Body)
}

func isImageDocument(doc *tgbotapi.Document) bool {
	if strings.HasPrefix(doc.MimeType, "image/") {
		return true
	}
	switch strings.ToLower(strings.TrimPrefix(path.Ext(doc.FileName), ".")) {
	case "jpg", "jpeg", "png", "bmp", "tiff", "webp":
		return true
	}
	return false
}
