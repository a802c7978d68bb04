package crypto

import (
	"encoding/base64"
	"fmt"
	"strings"
)

// b64 is the only alphabet on the wire: standard, padded, strict about
// trailing bits.
var b64 = base64.StdEncoding.Strict()

// EncodeB64 returns standard base64 encoding without newlines.
func EncodeB64(b []byte) string { return b64.EncodeToString(b) }

// DecodeB64 reverses EncodeB64. Line breaks are rejected rather than skipped.
func DecodeB64(s string) ([]byte, error) {
	if strings.ContainsAny(s, "\r\n") {
		return nil, fmt.Errorf("%w: line break in input", ErrMalformedEncoding)
	}
	out, err := b64.DecodeString(s)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedEncoding, err)
	}
	return out, nil
}
