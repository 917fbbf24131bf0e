// Package validate holds the pure input checks used before anything reaches the network.
package validate

import (
	"net/url"
	"strings"
)

// hostSchemes must carry a host to be absolute.
var hostSchemes = map[string]struct{}{
	"http": {}, "https": {}, "ws": {}, "wss": {}, "ftp": {},
}

// IsValidURL reports whether s parses as an absolute URL. Schemes without an
// authority such as mailto: or urn: are accepted; web schemes need a host.
func IsValidURL(s string) bool {
	s = strings.TrimSpace(s)
	if s == "" {
		return false
	}
	u, err := url.Parse(s)
	if err != nil || !u.IsAbs() {
		return false
	}
	if _, web := hostSchemes[strings.ToLower(u.Scheme)]; web {
		return u.Host != ""
	}
	return true
}

// NormalizeURLForDisplay lower-cases the host, drops the fragment and strips a
// single trailing slash (root path excepted). Unparseable input is returned as is.
//
// Example:
//
//	input:  "https://Example.com/Post/#comments"
//	output: "https://example.com/Post"
func NormalizeURLForDisplay(s string) string {
	u, err := url.Parse(s)
	if err != nil {
		return s
	}

	u.Host = strings.ToLower(u.Host)
	u.Fragment = ""
	u.RawFragment = ""

	// a run of trailing slashes goes as a whole
	if u.Path != "/" && strings.HasSuffix(u.Path, "/") {
		trimmed := strings.TrimRight(u.Path, "/")
		if trimmed == "" {
			trimmed = "/"
		}
		u.Path = trimmed
		u.RawPath = ""
	}

	return u.String()
}

// DedupeStrings drops repeated values, keeping the first occurrence order.
func DedupeStrings(list []string) []string {
	seen := make(map[string]struct{}, len(list))
	out := make([]string, 0, len(list))
	for _, s := range list {
		if _, ok := seen[s]; ok {
			continue
		}
		seen[s] = struct{}{}
		out = append(out, s)
	}
	return out
}

// NonEmptyTrimmed trims s and reports whether anything is left.
func NonEmptyTrimmed(s string) (string, bool) {
	s = strings.TrimSpace(s)
	return s, s != ""
}
