// Package linkextract pulls link text out of chat messages.
package linkextract

import (
	"regexp"
	"strings"
	"unicode/utf16"
)

// EntityTypeURL is the Telegram entity type for auto-detected links.
const EntityTypeURL = "url"

// Entity is a formatting span as Telegram reports it. Offset and Length
// count UTF-16 code units, not bytes or runes.
type Entity struct {
	Type   string
	Offset int
	Length int
}

var (
	urlRegex  = regexp.MustCompile(`https?://[^\s<>"{}|\\^\x60\[\]]+`)
	webmRegex = regexp.MustCompile(`(?i)^https?://\S+\.webm(\?\S*)?$`)
)

// EntityURLs returns the text of every url entity, in message order.
// Entities that fall outside the text are skipped.
func EntityURLs(text string, entities []Entity) []string {
	if len(entities) == 0 {
		return nil
	}

	units := utf16.Encode([]rune(text))
	urls := make([]string, 0, len(entities))

	for _, e := range entities {
		if e.Type != EntityTypeURL {
			continue
		}

		if e.Offset < 0 || e.Length <= 0 || e.Offset+e.Length > len(units) {
			continue
		}

		urls = append(urls, string(utf16.Decode(units[e.Offset:e.Offset+e.Length])))
	}

	return urls
}

// ExtractURLs finds http(s) links in plain text. It is the fallback for
// messages that arrive without entities.
func ExtractURLs(text string) []string {
	matches := urlRegex.FindAllString(text, -1)
	urls := make([]string, 0, len(matches))

	for _, m := range matches {
		if m = strings.TrimRight(m, ".,;:!?)"); m != "" {
			urls = append(urls, m)
		}
	}

	return urls
}

// ExclusiveWebmURL returns the URL when the whole message is a single
// link to a .webm file.
func ExclusiveWebmURL(text string) (string, bool) {
	trimmed := strings.TrimSpace(text)
	if webmRegex.MatchString(trimmed) {
		return trimmed, true
	}

	return "", false
}

// RemoveURL strips the first occurrence of rawURL from text and trims
// the surrounding whitespace.
func RemoveURL(text, rawURL string) string {
	return strings.TrimSpace(strings.Replace(text, rawURL, "", 1))
}
