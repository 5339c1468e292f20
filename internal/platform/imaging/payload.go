package imaging

import (
	"bytes"
	"encoding/base64"
	"net/http"
	"strings"
)

// DecodePayload turns a stored or submitted photo into image bytes. Data URLs
// and base64 text are decoded; anything else is returned unchanged as raw
// image bytes. Empty input yields nil.
func DecodePayload(p []byte) []byte {
	trimmed := bytes.TrimSpace(p)
	if len(trimmed) == 0 {
		return nil
	}

	s := string(trimmed)
	if strings.HasPrefix(s, "data:") {
		if i := strings.IndexByte(s, ','); i >= 0 {
			s = s[i+1:]
		}
	}
	if b, ok := decodeBase64(s); ok {
		return b
	}
	return p
}

func decodeBase64(s string) ([]byte, bool) {
	s = strings.Map(func(r rune) rune {
		if r == '\n' || r == '\r' || r == ' ' || r == '\t' {
			return -1
		}
		return r
	}, s)
	if s == "" {
		return nil, false
	}
	for _, enc := range []*base64.Encoding{base64.StdEncoding, base64.RawStdEncoding, base64.URLEncoding, base64.RawURLEncoding} {
		if b, err := enc.DecodeString(s); err == nil && len(b) > 0 {
			return b, true
		}
	}
	return nil, false
}

// DataURL encodes image bytes as a data URL with a sniffed media type.
func DataURL(b []byte) string {
	if len(b) == 0 {
		return ""
	}
	return "data:" + http.DetectContentType(b) + ";base64," + base64.StdEncoding.EncodeToString(b)
}
