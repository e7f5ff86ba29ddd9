package services

import (
	"net/url"
	"strings"
)

// NormalizeURL kanonisiert eine Roh-URL zu einem stabilen Graph-Schlüssel:
// Schema immer https (http und https sind dieselbe Identität),
// Reassemblierung als https://host/path (Query und Fragment entfallen),
// Trailing-Slashes entfernt, Prozent-Encoding für alles außer den
// reservierten Zeichen ':/?=&'. Die Funktion ist total und deterministisch;
// auch kaputter Input liefert einen stabilen Schlüssel.
func NormalizeURL(raw string) string {
	s := strings.TrimSpace(raw)
	switch {
	case strings.HasPrefix(s, "http://"):
		s = "https://" + strings.TrimPrefix(s, "http://")
	case strings.HasPrefix(s, "https://"):
	default:
		s = "https://" + s
	}

	if u, err := url.Parse(s); err == nil && u.Host != "" {
		s = "https://" + u.Host + u.Path
	}

	s = strings.TrimRight(s, "/")
	return percentEncode(s)
}

// percentEncode kodiert alle Bytes außer unreservierten Zeichen und dem
// Safe-Set ':/?=&'. '%' bleibt ebenfalls erhalten, damit bereits kodierte
// URLs bei erneuter Normalisierung unverändert bleiben (Idempotenz).
func percentEncode(s string) string {
	const hex = "0123456789ABCDEF"
	var b strings.Builder
	b.Grow(len(s))
	for i := 0; i < len(s); i++ {
		c := s[i]
		if isSafeByte(c) {
			b.WriteByte(c)
			continue
		}
		b.WriteByte('%')
		b.WriteByte(hex[c>>4])
		b.WriteByte(hex[c&0x0F])
	}
	return b.String()
}

func isSafeByte(c byte) bool {
	switch {
	case c >= 'a' && c <= 'z', c >= 'A' && c <= 'Z', c >= '0' && c <= '9':
		return true
	}
	switch c {
	case '-', '_', '.', '~', ':', '/', '?', '=', '&', '%':
		return true
	}
	return false
}
