package domain

import (
	"net/url"
	"strings"
)

// NormalizeURL canonicalizes a URL for duplicate detection only; stored
// URLs are never rewritten. Scheme is forced to https, a leading "www."
// and default ports are dropped, trailing slashes and the fragment are
// removed, query parameters are sorted by key and the result is
// lower-cased. Input that does not parse as an absolute URL is returned
// trimmed and lower-cased.
func NormalizeURL(raw string) string {
	trimmed := strings.TrimSpace(raw)
	u, err := url.Parse(trimmed)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return strings.ToLower(trimmed)
	}

	host := strings.ToLower(u.Hostname())
	host = strings.TrimPrefix(host, "www.")
	if strings.Contains(host, ":") {
		host = "[" + host + "]"
	}
	if port := u.Port(); port != "" && port != "80" && port != "443" {
		host += ":" + port
	}

	out := url.URL{
		Scheme: "https",
		User:   u.User,
		Host:   host,
		Path:   strings.TrimRight(u.Path, "/"),
	}
	if u.RawQuery != "" {
		// Encode sorts by key and keeps the order of repeated keys.
		out.RawQuery = u.Query().Encode()
	}

	return strings.ToLower(out.String())
}
