package home

import (
	"net/url"
	"path"
	"regexp"
	"strings"
)

var zipPattern = regexp.MustCompile(`\b\d{5}\b`)

// ExtractZip returns the last five-digit token in address, or "".
func ExtractZip(address string) string {
	matches := zipPattern.FindAllString(address, -1)
	if len(matches) == 0 {
		return ""
	}
	return matches[len(matches)-1]
}

// DeriveFileName prefers an explicit name, then the title, then the last
// URL path segment.
func DeriveFileName(explicit, rawURL, title string) string {
	if name := strings.TrimSpace(explicit); name != "" {
		return name
	}
	if name := strings.TrimSpace(title); name != "" {
		return name
	}
	parsed, err := url.Parse(strings.TrimSpace(rawURL))
	if err != nil || parsed.Path == "" {
		return ""
	}
	base := path.Base(parsed.Path)
	if unescaped, err := url.PathUnescape(base); err == nil {
		base = unescaped
	}
	if base == "/" || base == "." {
		return ""
	}
	return base
}
