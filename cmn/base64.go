package cmn

import (
	"encoding/base64"
	"strings"
)

// DecodeBase64Any decodes s trying, in order, raw/std encodings and their
// url-safe counterparts, and tolerates missing "=" padding -- subscription
// links in the wild use whichever flavor the generating client happened to
// produce (spec §4.3).
func DecodeBase64Any(s string) ([]byte, bool) {
	s = strings.TrimSpace(s)
	s = strings.NewReplacer("\n", "", "\r", "", " ", "").Replace(s)
	candidates := []*base64.Encoding{
		base64.StdEncoding,
		base64.URLEncoding,
		base64.RawStdEncoding,
		base64.RawURLEncoding,
	}
	for _, enc := range candidates {
		if b, err := enc.DecodeString(s); err == nil {
			return b, true
		}
	}
	return nil, false
}

// IsLikelyBase64 is a cheap heuristic for deciding whether to attempt a
// decode before treating a blob as a literal line: it reports whether s is
// non-empty and uses only base64 (standard or URL-safe) characters.
func IsLikelyBase64(s string) bool {
	s = strings.TrimSpace(s)
	if s == "" {
		return false
	}
	for _, r := range s {
		switch {
		case r >= 'A' && r <= 'Z', r >= 'a' && r <= 'z', r >= '0' && r <= '9':
		case r == '+' || r == '/' || r == '-' || r == '_' || r == '=':
		default:
			return false
		}
	}
	return true
}
