// Package matching reconciles free-text names and Twitter handles found on
// endorsement pages with the candidates, measures and organizations on file.
package matching

import (
	"net/url"
	"regexp"
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

var (
	reNonAlnum   = regexp.MustCompile(`[^a-z0-9\s]+`)
	reMultiSpace = regexp.MustCompile(`\s+`)
	reHandle     = regexp.MustCompile(`^[a-z0-9_]{1,50}$`)
)

var twitterHosts = map[string]bool{
	"twitter.com":        true,
	"www.twitter.com":    true,
	"mobile.twitter.com": true,
	"x.com":              true,
	"www.x.com":          true,
}

// stripMarks drops combining marks after NFD decomposition (é -> e).
// Transformers carry state, so each call builds its own chain.
func stripMarks(s string) string {
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	out, _, err := transform.String(t, s)
	if err != nil {
		return s
	}
	return out
}

// NormalizeName folds a person, organization or measure name into the form
// used for comparison: compatibility forms folded, diacritics removed,
// lowercased, punctuation replaced by spaces and whitespace collapsed.
func NormalizeName(s string) string {
	s = strings.TrimSpace(s)
	if s == "" {
		return ""
	}
	s = norm.NFKC.String(s)
	s = stripMarks(s)
	s = strings.ToLower(s)
	s = reNonAlnum.ReplaceAllString(s, " ")
	s = reMultiSpace.ReplaceAllString(s, " ")
	return strings.TrimSpace(s)
}

// NormalizeTwitterHandle accepts "@Handle", "handle" or a twitter.com / x.com
// profile URL and returns the lowercased bare handle, or "" when the input
// is not a plausible handle.
func NormalizeTwitterHandle(s string) string {
	s = strings.TrimSpace(s)
	if s == "" {
		return ""
	}
	lower := strings.ToLower(s)
	if strings.Contains(lower, "/") {
		if !strings.Contains(lower, "://") {
			lower = "https://" + lower
		}
		u, err := url.Parse(lower)
		if err != nil || !twitterHosts[u.Host] {
			return ""
		}
		lower = strings.Trim(u.Path, "/")
		if i := strings.IndexByte(lower, '/'); i >= 0 {
			lower = lower[:i]
		}
	}
	lower = strings.TrimPrefix(lower, "@")
	if !reHandle.MatchString(lower) {
		return ""
	}
	return lower
}
