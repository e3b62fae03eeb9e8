package telegram

import (
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"

	"lens-bot/internal/imagecheck"
	"lens-bot/internal/pipeline"
)

func TestFormatCompleted(t *testing.T) {
	out := pipeline.Outcome{
		Status:     pipeline.StatusCompleted,
		Reply:      "Привет, мир",
		SourceLang: "en",
		TargetLang: "ru",
	}
	s := FormatOutcome(out)
	assert.Contains(t, s, "en → ru")
	assert.Contains(t, s, "Привет, мир")
}

func TestFormatCompletedUnknownSourceOmitsArrow(t *testing.T) {
	out := pipeline.Outcome{
		Status:     pipeline.StatusCompleted,
		Reply:      "hello",
		SourceLang: "und",
		TargetLang: "en",
	}
	s := FormatOutcome(out)
	assert.NotContains(t, s, "→")
	assert.Contains(t, s, "hello")
}

func TestFormatPartial(t *testing.T) {
	out := pipeline.Outcome{
		Status:       pipeline.StatusPartiallyCompleted,
		Reply:        "T:one\n[untranslated: two]\nT:three",
		TotalChunks:  3,
		FailedChunks: 1,
	}
	s := FormatOutcome(out)
	assert.Contains(t, s, "1 of 3")
	assert.Contains(t, s, "[untranslated: two]")
}

func TestFormatFailedUsesUserMessage(t *testing.T) {
	out := pipeline.Outcome{
		Status: pipeline.StatusFailed,
		Err:    fmt.Errorf("validate: %w", imagecheck.ErrTooLarge),
	}
	assert.Contains(t, FormatOutcome(out), "too large")
}

func TestFormatTruncatesLongReplies(t *testing.T) {
	out := pipeline.Outcome{
		Status: pipeline.StatusCompleted,
		Reply:  strings.Repeat("x", 10000),
	}
	assert.Less(t, len(FormatOutcome(out)), 4096)
}

func TestValidLangCode(t *testing.T) {
	assert.True(t, ValidLangCode("en"))
	assert.True(t, ValidLangCode("deu"))
	assert.True(t, ValidLangCode(" RU "))
	assert.False(t, ValidLangCode(""))
	assert.False(t, ValidLangCode("e"))
	assert.False(t, ValidLangCode("english"))
	assert.False(t, ValidLangCode("e1"))
}

func TestPrefsDefaultAndOverride(t *testing.T) {
	p := NewPrefs("en")
	assert.Equal(t, "en", p.TargetLang(1))
	p.SetTargetLang(1, "de")
	assert.Equal(t, "de", p.TargetLang(1))
	assert.Equal(t, "en", p.TargetLang(2))
}
