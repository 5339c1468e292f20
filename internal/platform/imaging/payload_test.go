package imaging

import (
	"bytes"
	"encoding/base64"
	"strings"
	"testing"
)

func TestDecodePayload(t *testing.T) {
	pngHeader := []byte("\x89PNG\r\n\x1a\n\x00\x00\x00\rIHDR")
	b64 := base64.StdEncoding.EncodeToString(pngHeader)

	tests := []struct {
		name string
		in   []byte
		want []byte
	}{
		{"empty", nil, nil},
		{"whitespace", []byte("  \n"), nil},
		{"data url", []byte("data:image/png;base64," + b64), pngHeader},
		{"bare base64", []byte(b64), pngHeader},
		{"raw bytes", pngHeader, pngHeader},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := DecodePayload(tt.in); !bytes.Equal(got, tt.want) {
				t.Errorf("got %q, want %q", got, tt.want)
			}
		})
	}
}

func TestDataURL(t *testing.T) {
	pngHeader := []byte("\x89PNG\r\n\x1a\n\x00\x00\x00\rIHDR")
	got := DataURL(pngHeader)
	if !strings.HasPrefix(got, "data:image/png;base64,") {
		t.Errorf("unexpected prefix: %s", got)
	}
	if DataURL(nil) != "" {
		t.Error("expected empty string for empty input")
	}
}
