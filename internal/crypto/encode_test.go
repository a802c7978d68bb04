package crypto_test

import (
	"bytes"
	"crypto/rand"
	"testing"

	"github.com/stretchr/testify/require"

	"boxchat/internal/crypto"
)

func TestB64_RoundTrip(t *testing.T) {
	for n := 0; n <= 70; n++ {
		b := make([]byte, n)
		_, err := rand.Read(b)
		require.NoError(t, err)

		got, err := crypto.DecodeB64(crypto.EncodeB64(b))
		require.NoErrorf(t, err, "len %d", n)
		if !bytes.Equal(got, b) {
			t.Fatalf("len %d: round trip mismatch", n)
		}
		require.Len(t, got, n)
	}
}

func TestB64_KnownVector(t *testing.T) {
	in := []byte{0x00, 0xFF, 0x10}
	enc := crypto.EncodeB64(in)
	require.Equal(t, "AP8Q", enc)

	dec, err := crypto.DecodeB64(enc)
	require.NoError(t, err)
	require.Equal(t, in, dec)
}

func TestB64_Empty(t *testing.T) {
	require.Equal(t, "", crypto.EncodeB64(nil))

	dec, err := crypto.DecodeB64("")
	require.NoError(t, err)
	require.Empty(t, dec)
}

func TestB64_Malformed(t *testing.T) {
	for _, in := range []string{
		"AP8",      // missing padding
		"AP8Q=",    // stray padding
		"AP-Q",     // URL-safe alphabet
		"AP_Q",     // URL-safe alphabet
		"A P8Q",    // space
		"AP8Q\n",   // line break
		"AP\r\n8Q", // wrapped
		"AP==",     // non-zero trailing bits
		"====",
	} {
		_, err := crypto.DecodeB64(in)
		require.ErrorIsf(t, err, crypto.ErrMalformedEncoding, "input %q", in)
	}
}
