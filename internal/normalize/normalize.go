// Package normalize reconciles raw OCR output with the supported language
// set: it consolidates fragments into one text, trims engine artifacts and
// picks the dominant source language by confidence-weighted vote.
//
// When an image mixes several scripts, all text is kept but only one
// language label wins the vote; true multi-language documents are out of
// scope for the selection logic.
package normalize

import (
	"regexp"
	"strings"
	"unicode"

	"lens-bot/internal/ocr"
)

// LangUnknown is the sentinel used when no language clears the vote
// threshold (ISO 639-3 "undetermined").
const LangUnknown = "und"

// Options tune the artifact and vote thresholds.
type Options struct {
	// MinFragmentConfidence drops symbol-only fragments below this score.
	MinFragmentConfidence float64
	// MinLanguageConfidence is the vote share the winner needs; below it
	// the result carries LangUnknown.
	MinLanguageConfidence float64
}

func DefaultOptions() Options {
	return Options{MinFragmentConfidence: 0.30, MinLanguageConfidence: 0.50}
}

// Normalized is the consolidated text with its language hypothesis.
type Normalized struct {
	Text       string
	Lang       string  // ISO 639-1 code or LangUnknown
	Confidence float64 // vote share of the winning language, 0..1
}

// tesseract language codes to ISO 639-1
var langCodes = map[string]string{
	"eng": "en", "rus": "ru", "deu": "de", "fra": "fr", "spa": "es",
	"ita": "it", "por": "pt", "chi_sim": "zh", "chi_tra": "zh",
	"jpn": "ja", "kor": "ko", "ara": "ar", "tur": "tr", "pol": "pl",
	"ukr": "uk", "nld": "nl", "swe": "sv",
}

var spaceRuns = regexp.MustCompile(`[ \t]+`)

// Normalize is deterministic: identical input always yields identical output.
func Normalize(res ocr.Result, opts Options) Normalized {
	votes := map[string]float64{}
	var total float64
	var parts []string
	var lastY float64
	haveY := false

	for _, f := range res.Fragments {
		text := strings.TrimSpace(f.Text)
		if text == "" {
			continue
		}
		if f.Confidence < opts.MinFragmentConfidence && isArtifact(text) {
			continue
		}

		// New reading line when the fragment's region starts clearly below
		// the previous one; fragments carry engine reading order otherwise.
		sep := " "
		if haveY && f.Region.Y > lastY+f.Region.H/2 && f.Region.H > 0 {
			sep = "\n"
		}
		if len(parts) == 0 {
			sep = ""
		}
		parts = append(parts, sep+text)
		if f.Region.H > 0 {
			lastY = f.Region.Y
			haveY = true
		}

		if lang := LangCode(f.Lang); lang != "" {
			votes[lang] += f.Confidence
			total += f.Confidence
		}
	}

	text := strings.TrimSpace(spaceRuns.ReplaceAllString(strings.Join(parts, ""), " "))
	if text == "" {
		text = strings.TrimSpace(res.PlainText)
	}

	lang, conf := dominantLanguage(votes, total)
	if conf < opts.MinLanguageConfidence {
		lang, conf = LangUnknown, 0
	}

	return Normalized{Text: text, Lang: lang, Confidence: conf}
}

// dominantLanguage picks the highest vote; ties break alphabetically so the
// result stays deterministic.
func dominantLanguage(votes map[string]float64, total float64) (string, float64) {
	if total <= 0 {
		return LangUnknown, 0
	}
	best := ""
	var bestScore float64
	for lang, score := range votes {
		if score > bestScore || (score == bestScore && (best == "" || lang < best)) {
			best, bestScore = lang, score
		}
	}
	return best, bestScore / total
}

// LangCode maps engine language hints (tesseract codes, BCP-47 tags) to a
// bare ISO 639-1 code. Unknown hints pass through lowercased.
func LangCode(hint string) string {
	h := strings.ToLower(strings.TrimSpace(hint))
	if h == "" {
		return ""
	}
	if iso, ok := langCodes[h]; ok {
		return iso
	}
	if i := strings.IndexAny(h, "-_"); i >= 0 {
		h = h[:i]
	}
	return h
}

// isArtifact reports whether the fragment is punctuation/symbol noise with
// no letters or digits.
func isArtifact(s string) bool {
	for _, r := range s {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			return false
		}
	}
	return true
}
