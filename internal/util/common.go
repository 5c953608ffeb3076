package util

import (
	"path/filepath"
	"strings"
	"time"
)

// Common timeout durations
const (
	DefaultFetchTimeout = 15 * time.Second
	ShortTimeout        = 2 * time.Second
)

// ResolvePath joins base and rel, but if rel is an absolute path it is returned
// directly (cleaned). Go's filepath.Join strips leading slashes from later
// arguments, so filepath.Join("a", "/b") returns "a/b" not "/b".
func ResolvePath(base, rel string) string {
	if filepath.IsAbs(rel) {
		return filepath.Clean(rel)
	}
	return filepath.Join(base, rel)
}

// NormalizeURL trims whitespace and trailing slashes and adds an http://
// scheme when none is given. Empty input stays empty.
func NormalizeURL(raw string) string {
	u := strings.TrimSpace(raw)
	if u == "" {
		return ""
	}
	if !strings.HasPrefix(u, "http://") && !strings.HasPrefix(u, "https://") {
		u = "http://" + u
	}
	return strings.TrimRight(u, "/")
}

// WebsocketURL rewrites an http(s) base URL to its ws(s) equivalent.
func WebsocketURL(base string) string {
	switch {
	case strings.HasPrefix(base, "https://"):
		return "wss://" + strings.TrimPrefix(base, "https://")
	case strings.HasPrefix(base, "http://"):
		return "ws://" + strings.TrimPrefix(base, "http://")
	}
	return base
}

// UnixSeconds converts t to fractional unix seconds.
func UnixSeconds(t time.Time) float64 {
	return float64(t.UnixNano()) / float64(time.Second)
}

// FromUnixSeconds is the inverse of UnixSeconds.
func FromUnixSeconds(s float64) time.Time {
	sec := int64(s)
	nsec := int64((s - float64(sec)) * float64(time.Second))
	return time.Unix(sec, nsec)
}
