package telegram

import (
	"fmt"
	"strings"

	"lens-bot/internal/pipeline"
	"lens-bot/internal/util"
)

// Telegram rejects messages over 4096 chars; leave room for the header.
const maxReplyLen = 3900

// FormatOutcome renders a pipeline outcome as the chat reply.
func FormatOutcome(out pipeline.Outcome) string {
	switch out.Status {
	case pipeline.StatusCompleted:
		var b strings.Builder
		b.WriteString("📝 Translation")
		if out.SourceLang != "" && out.SourceLang != "und" {
			fmt.Fprintf(&b, " (%s → %s)", out.SourceLang, out.TargetLang)
		}
		b.WriteString(":\n\n")
		b.WriteString(util.Truncate(out.Reply, maxReplyLen))
		return b.String()

	case pipeline.StatusPartiallyCompleted:
		var b strings.Builder
		fmt.Fprintf(&b, "⚠️ Partial translation: %d of %d parts could not be translated and are marked in the text.\n\n",
			out.FailedChunks, out.TotalChunks)
		b.WriteString(util.Truncate(out.Reply, maxReplyLen))
		return b.String()

	default:
		return pipeline.UserMessage(out.Err)
	}
}
