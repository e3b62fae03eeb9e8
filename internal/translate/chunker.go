package translate

import (
	"strings"
	"unicode"
)

// charsPerToken is the usual rough estimate for model token counts.
const charsPerToken = 4

// inputShare leaves half the token budget for the model's output.
const inputShare = 2

// Chunk splits text into pieces whose estimated token count fits the input
// share of maxTokens. Splits happen at sentence boundaries where possible,
// then at whitespace; never mid-word unless a single word alone exceeds the
// budget. Deterministic for identical input and limit.
func Chunk(text string, maxTokens int) []string {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil
	}
	maxChars := maxTokens * charsPerToken / inputShare
	if maxChars < 1 {
		maxChars = 1
	}
	if len(text) <= maxChars {
		return []string{text}
	}

	sentences := splitSentences(text)

	var chunks []string
	var cur strings.Builder
	flush := func() {
		if s := strings.TrimSpace(cur.String()); s != "" {
			chunks = append(chunks, s)
		}
		cur.Reset()
	}

	for _, sent := range sentences {
		if len(sent) > maxChars {
			flush()
			chunks = append(chunks, splitByWords(sent, maxChars)...)
			continue
		}
		if cur.Len()+len(sent)+1 > maxChars {
			flush()
		}
		if cur.Len() > 0 {
			cur.WriteByte(' ')
		}
		cur.WriteString(sent)
	}
	flush()
	return chunks
}

// sentence terminators, latin and CJK
func isTerminator(r rune) bool {
	switch r {
	case '.', '!', '?', '。', '！', '？', '\n':
		return true
	}
	return false
}

func splitSentences(text string) []string {
	var out []string
	var cur strings.Builder
	runes := []rune(text)
	for i, r := range runes {
		cur.WriteRune(r)
		if !isTerminator(r) {
			continue
		}
		// Keep trailing closers ("."), flush on the following space or at a
		// hard newline.
		if r == '\n' || i == len(runes)-1 || unicode.IsSpace(runes[i+1]) {
			if s := strings.TrimSpace(cur.String()); s != "" {
				out = append(out, s)
			}
			cur.Reset()
		}
	}
	if s := strings.TrimSpace(cur.String()); s != "" {
		out = append(out, s)
	}
	return out
}

func splitByWords(sent string, maxChars int) []string {
	var out []string
	var cur strings.Builder
	for _, word := range strings.Fields(sent) {
		if len(word) > maxChars {
			// Pathological token longer than the whole budget: hard cut on
			// rune boundaries, the only case where a word is split.
			if cur.Len() > 0 {
				out = append(out, cur.String())
				cur.Reset()
			}
			out = append(out, hardCut(word, maxChars)...)
			continue
		}
		if cur.Len()+len(word)+1 > maxChars && cur.Len() > 0 {
			out = append(out, cur.String())
			cur.Reset()
		}
		if cur.Len() > 0 {
			cur.WriteByte(' ')
		}
		cur.WriteString(word)
	}
	if cur.Len() > 0 {
		out = append(out, cur.String())
	}
	return out
}

func hardCut(word string, maxChars int) []string {
	var out []string
	var cur strings.Builder
	for _, r := range word {
		if cur.Len()+len(string(r)) > maxChars && cur.Len() > 0 {
			out = append(out, cur.String())
			cur.Reset()
		}
		cur.WriteRune(r)
	}
	if cur.Len() > 0 {
		out = append(out, cur.String())
	}
	return out
}
