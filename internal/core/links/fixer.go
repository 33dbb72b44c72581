package links

import (
	"fmt"
	"strings"
)

// MirrorDomains lists embed-friendly hosts per platform. The first domain
// of each list is the rewrite target; the rest are only recognized.
type MirrorDomains map[Platform][]string

// DefaultMirrorDomains returns the mirrors the bot ships with.
func DefaultMirrorDomains() MirrorDomains {
	return MirrorDomains{
		PlatformTwitter:   {"vxtwitter.com", "fxtwitter.com"},
		PlatformTikTok:    {"vxtiktok.com"},
		PlatformInstagram: {"kkinstagram.com"},
	}
}

// Fixer rewrites recognized links onto their mirror domain.
type Fixer struct {
	canon   *Canonicalizer
	mirrors map[Platform][]string
}

func NewFixer(canon *Canonicalizer, mirrors MirrorDomains) *Fixer {
	normalized := make(map[Platform][]string, len(mirrors))

	for platform, domains := range mirrors {
		for _, d := range domains {
			if d = normalizeDomain(d); d != "" {
				normalized[platform] = append(normalized[platform], d)
			}
		}
	}

	return &Fixer{canon: canon, mirrors: normalized}
}

// HasMirror reports whether links of the platform can be rewritten.
func (f *Fixer) HasMirror(p Platform) bool {
	return len(f.mirrors[p]) > 0
}

// IsAlreadyFixed reports whether rawURL is already on one of the
// platform's mirror hosts (or a subdomain of one).
func (f *Fixer) IsAlreadyFixed(p Platform, rawURL string) bool {
	u, err := ParseURL(rawURL)
	if err != nil {
		return false
	}

	host := normalizeDomain(u.Hostname())

	for _, d := range f.mirrors[p] {
		if host == d || strings.HasSuffix(host, "."+d) {
			return true
		}
	}

	return false
}

// BuildFixedURL renders the mirror URL for an identity. It returns false
// when the platform has no mirror or the user segment the mirror path
// needs is missing.
func (f *Fixer) BuildFixedURL(id Identity) (string, bool) {
	if !id.Recognized() || !f.HasMirror(id.Platform) {
		return "", false
	}

	mirror := f.mirrors[id.Platform][0]

	switch id.Platform {
	case PlatformTwitter:
		if id.User == "" {
			return "", false
		}

		return fmt.Sprintf("https://%s/%s/status/%s", mirror, id.User, id.ID), true
	case PlatformTikTok:
		if id.User == "" {
			return "", false
		}

		return fmt.Sprintf("https://%s/%s/video/%s", mirror, id.User, id.ID), true
	case PlatformInstagram:
		return "https://" + mirror + id.ID + "/", true
	case PlatformYouTube, PlatformNone:
		return "", false
	}

	return "", false
}

// Fix canonicalizes rawURL and returns its mirror rewrite, if one applies.
func (f *Fixer) Fix(rawURL string) (string, bool) {
	id := f.canon.Canonicalize(rawURL)

	return f.FixIdentity(id, rawURL)
}

// FixIdentity is Fix for an already canonicalized link.
func (f *Fixer) FixIdentity(id Identity, rawURL string) (string, bool) {
	if !id.Recognized() || f.IsAlreadyFixed(id.Platform, rawURL) {
		return "", false
	}

	return f.BuildFixedURL(id)
}
