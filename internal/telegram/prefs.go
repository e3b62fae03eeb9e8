package telegram

import (
	"strings"
	"sync"
)

// Prefs keeps per-chat settings set by commands. Lost on restart, which is
// fine: the defaults are sensible and chats can re-issue the command.
type Prefs struct {
	defaultTarget string
	targets       sync.Map // chatID -> target lang code
}

func NewPrefs(defaultTarget string) *Prefs {
	return &Prefs{defaultTarget: defaultTarget}
}

func (p *Prefs) TargetLang(chatID int64) string {
	if v, ok := p.targets.Load(chatID); ok {
		return v.(string)
	}
	return p.defaultTarget
}

func (p *Prefs) SetTargetLang(chatID int64, lang string) {
	p.targets.Store(chatID, lang)
}

// ValidLangCode accepts bare ISO 639-1/639-2 style codes (en, de, zh, chi).
func ValidLangCode(code string) bool {
	c := strings.ToLower(strings.TrimSpace(code))
	if len(c) < 2 || len(c) > 3 {
		return false
	}
	for _, r := range c {
		if r < 'a' || r > 'z' {
			return false
		}
	}
	return true
}
