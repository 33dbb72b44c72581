package bot

import (
	"fmt"
	"html"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/lueurxax/repost-bot/internal/core/links/linkextract"
	"github.com/lueurxax/repost-bot/internal/platform/settings"
	"github.com/lueurxax/repost-bot/internal/process/dedup"
)

// FormatLink links label to a message in a supergroup. Other chats have no
// public message URLs, so the label is returned as plain text.
func FormatLink(chatID int64, msgID int, label string) string {
	if chatID >= supergroupIDOffset || msgID == 0 {
		return html.EscapeString(label)
	}

	return fmt.Sprintf("<a href=\"https://t.me/c/%d/%d\">%s</a>", supergroupIDOffset-chatID, msgID, html.EscapeString(label))
}

// sightingLine renders "Already posted by <author>, 3.5 minutes ago".
func (b *Bot) sightingLine(prefix string, s dedup.Sighting) string {
	ago := b.printer.Sprintf("%.1f %s", s.MinutesAgo(b.now()), b.msgs.MinutesAgo)

	return fmt.Sprintf("%s <b>%s</b>, %s", html.EscapeString(prefix), html.EscapeString(s.Author), FormatLink(s.ChatID, s.MessageID, ago))
}

func (b *Bot) formatLinkDuplicate(s dedup.Sighting) string {
	return b.sightingLine(b.msgs.FoundLinkSentBy, s)
}

func (b *Bot) formatImageDuplicate(res dedup.ImageResult) string {
	return b.printer.Sprintf("%s.\n%s %d/%d. %s %d.",
		b.sightingLine(b.msgs.FoundImageSentBy, res.Sighting),
		html.EscapeString(b.msgs.SimilarPixels), res.Mismatch, res.TotalPixels,
		html.EscapeString(b.msgs.SimilarityThreshold), res.Limit,
	)
}

// formatRewrite rebuilds a message with its links replaced by mirror links.
func (b *Bot) formatRewrite(msg *tgbotapi.Message, rewrites []dedup.Rewrite) string {
	rest := msg.Text
	fixed := make([]string, 0, len(rewrites))

	for _, rw := range rewrites {
		rest = linkextract.RemoveURL(rest, rw.Original)
		fixed = append(fixed, html.EscapeString(rw.Fixed))
	}

	header := fmt.Sprintf("<b>%s</b> %s", html.EscapeString(authorName(msg.From)), html.EscapeString(b.msgs.LinkPosted))

	var quoted string
	if rest != "" {
		quoted = "<pre>" + html.EscapeString(rest) + "</pre>"
	}

	return joinNonEmpty(header, quoted, strings.Join(fixed, "\n"))
}

func (b *Bot) formatThresholdChange(header string, threshold float64) string {
	return b.printer.Sprintf("%s\n%s <code>%.2f</code>", html.EscapeString(header), html.EscapeString(b.msgs.SimilarityThreshold), threshold)
}

func (b *Bot) formatSettings(header string, snap settings.Snapshot) string {
	body := b.printer.Sprintf("%s <code>%.2f</code>\n%s <code>%d/%d</code>\n%s <code>%d×%d</code>",
		html.EscapeString(b.msgs.SimilarityThreshold), snap.Threshold,
		html.EscapeString(b.msgs.SimilarPixels), snap.SimilarPixelCount, snap.TotalPixels(),
		html.EscapeString(b.msgs.Resolution), snap.Resolution, snap.Resolution,
	)

	if header == "" {
		return body
	}

	return html.EscapeString(header) + "\n" + body
}
