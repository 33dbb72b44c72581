package links

import (
	"net/url"
	"regexp"
	"strings"

	"golang.org/x/net/publicsuffix"
)

const (
	wwwPrefix     = "www."
	schemePrefix  = "://"
	defaultScheme = "https://"
	keySeparator  = "-"
)

// Platform identifies a site whose links are matched by content id.
type Platform string

const (
	PlatformNone      Platform = "NONE"
	PlatformYouTube   Platform = "YOUTUBE"
	PlatformTwitter   Platform = "TWITTER"
	PlatformTikTok    Platform = "TIKTOK"
	PlatformInstagram Platform = "INSTAGRAM"
)

// Identity is the canonical form of a link. ID is empty when the host
// belongs to a platform but the path could not be parsed.
type Identity struct {
	Platform Platform
	ID       string
	User     string
}

// Recognized reports whether an id was extracted.
func (i Identity) Recognized() bool {
	return i.Platform != PlatformNone && i.ID != ""
}

// Key returns the cache key for the link: PLATFORM-id when recognized,
// the raw URL text otherwise.
func (i Identity) Key(rawURL string) string {
	if i.Recognized() {
		return string(i.Platform) + keySeparator + i.ID
	}

	return rawURL
}

var originDomains = map[Platform][]string{
	PlatformYouTube:   {"youtube.com", "youtu.be", "youtube-nocookie.com"},
	PlatformTwitter:   {"x.com", "twitter.com"},
	PlatformTikTok:    {"tiktok.com"},
	PlatformInstagram: {"instagram.com"},
}

var (
	twitterStatusRegex = regexp.MustCompile(`^/([A-Za-z0-9_]{1,50})/status(?:es)?/(\d+)`)
	twitterWebRegex    = regexp.MustCompile(`^/i/(?:web/)?status/(\d+)`)
	tiktokVideoRegex   = regexp.MustCompile(`^/@?([\w.-]+)/video/(\d+)`)
	youtubePathRegex   = regexp.MustCompile(`^/(?:embed|shorts|v|live)/([\w-]+)`)
	youtubeShortRegex  = regexp.MustCompile(`^/([\w-]+)`)
	youtubeIDRegex     = regexp.MustCompile(`^[\w-]+$`)
)

type extractor func(u *url.URL, host string) (id, user string)

var extractors = map[Platform]extractor{
	PlatformYouTube:   extractYouTube,
	PlatformTwitter:   extractTwitter,
	PlatformTikTok:    extractTikTok,
	PlatformInstagram: extractInstagram,
}

// Canonicalizer maps raw URLs to platform identities. It is immutable
// after construction and safe for concurrent use.
type Canonicalizer struct {
	hosts map[string]Platform
}

// NewCanonicalizer builds the host dispatch table from the origin domains
// of every platform plus the given mirror domains, so links posted via a
// mirror resolve to the same identity as the original.
func NewCanonicalizer(mirrors MirrorDomains) *Canonicalizer {
	hosts := make(map[string]Platform)

	for platform, domains := range originDomains {
		for _, d := range domains {
			hosts[d] = platform
		}
	}

	for platform, domains := range mirrors {
		for _, d := range domains {
			if d = normalizeDomain(d); d != "" {
				hosts[d] = platform
			}
		}
	}

	return &Canonicalizer{hosts: hosts}
}

// Canonicalize returns the identity of rawURL. Unknown hosts and
// unparseable input yield PlatformNone.
func (c *Canonicalizer) Canonicalize(rawURL string) Identity {
	u, err := ParseURL(rawURL)
	if err != nil {
		return Identity{Platform: PlatformNone}
	}

	host := normalizeDomain(u.Hostname())

	platform := c.PlatformForHost(host)
	if platform == PlatformNone {
		return Identity{Platform: PlatformNone}
	}

	id, user := extractors[platform](u, host)

	return Identity{Platform: platform, ID: id, User: user}
}

// PlatformForHost resolves a normalized host by exact match first and by
// its registrable domain second, so subdomains like m.tiktok.com match.
func (c *Canonicalizer) PlatformForHost(host string) Platform {
	if host == "" {
		return PlatformNone
	}

	if p, ok := c.hosts[host]; ok {
		return p
	}

	registrable, err := publicsuffix.EffectiveTLDPlusOne(host)
	if err != nil {
		return PlatformNone
	}

	if p, ok := c.hosts[registrable]; ok {
		return p
	}

	return PlatformNone
}

// ParseURL parses link text as Telegram shows it, which may omit the scheme.
func ParseURL(rawURL string) (*url.URL, error) {
	rawURL = strings.TrimSpace(rawURL)
	if !strings.Contains(rawURL, schemePrefix) {
		rawURL = defaultScheme + rawURL
	}

	u, err := url.Parse(rawURL)
	if err != nil {
		return nil, err //nolint:wrapcheck // url.Error already carries the input
	}

	return u, nil
}

func extractYouTube(u *url.URL, host string) (string, string) {
	var id string

	switch {
	case host == "youtu.be":
		if m := youtubeShortRegex.FindStringSubmatch(u.Path); m != nil {
			id = m[1]
		}
	case u.Path == "/watch":
		id = u.Query().Get("v")
	default:
		if m := youtubePathRegex.FindStringSubmatch(u.Path); m != nil {
			id = m[1]
		}
	}

	if !youtubeIDRegex.MatchString(id) {
		return "", ""
	}

	return id, ""
}

func extractTwitter(u *url.URL, _ string) (string, string) {
	if m := twitterWebRegex.FindStringSubmatch(u.Path); m != nil {
		return m[1], ""
	}

	if m := twitterStatusRegex.FindStringSubmatch(u.Path); m != nil {
		return m[2], m[1]
	}

	return "", ""
}

func extractTikTok(u *url.URL, _ string) (string, string) {
	if m := tiktokVideoRegex.FindStringSubmatch(u.Path); m != nil {
		return m[2], m[1]
	}

	return "", ""
}

// extractInstagram keys on the path without trailing slashes so /p/abc and
// /p/abc/ are the same post.
func extractInstagram(u *url.URL, _ string) (string, string) {
	path := strings.TrimRight(u.Path, "/")
	if path == "" {
		return "", ""
	}

	return path, ""
}

func normalizeDomain(host string) string {
	host = strings.ToLower(strings.TrimSpace(host))
	host = strings.TrimPrefix(host, wwwPrefix)

	return host
}
