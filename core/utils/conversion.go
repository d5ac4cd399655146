package utils

import (
	"strconv"
	"strings"
)

// ToInt converts a numeric capture to int. Anything that is not a
// non-negative base-10 integer yields (0, false).
func ToInt(s string) (int, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, false
	}
	i, err := strconv.Atoi(s)
	if err != nil || i < 0 {
		return 0, false
	}
	return i, true
}

// ToIntDefault behaves like ToInt but returns def for an empty capture.
// Optional "N licenses" suffixes rely on this.
func ToIntDefault(s string, def int) (int, bool) {
	if strings.TrimSpace(s) == "" {
		return def, true
	}
	return ToInt(s)
}

// ShortHost strips the domain part and lowercases a hostname.
func ShortHost(host string) string {
	host = strings.ToLower(strings.TrimSpace(host))
	if i := strings.IndexByte(host, '.'); i > 0 {
		// Keep dotted IPv4 addresses whole.
		if _, err := strconv.Atoi(host[:i]); err != nil {
			return host[:i]
		}
	}
	return host
}

// SameHost reports whether two hostnames refer to the same machine,
// ignoring case and domain suffixes.
func SameHost(a, b string) bool {
	if a == "" || b == "" {
		return false
	}
	return ShortHost(a) == ShortHost(b)
}
