package crypto_test

import (
	"bytes"
	"crypto/rand"
	"testing"

	"github.com/stretchr/testify/require"

	"boxchat/internal/crypto"
	"boxchat/internal/domain"
)

func randomKey(t *testing.T) *crypto.SymmetricKey {
	t.Helper()
	b := make([]byte, crypto.KeySize)
	_, err := rand.Read(b)
	require.NoError(t, err)
	k, err := crypto.NewSymmetricKey(b)
	require.NoError(t, err)
	t.Cleanup(k.Wipe)
	return k
}

func TestSealOpen_RoundTrip(t *testing.T) {
	k := randomKey(t)
	for _, n := range []int{0, 1, 15, 16, 17, 255, 4096, 1 << 16} {
		pt := make([]byte, n)
		_, err := rand.Read(pt)
		require.NoError(t, err)

		env, err := crypto.Seal(k, pt)
		require.NoError(t, err)

		ct, err := crypto.DecodeB64(env.Ciphertext)
		require.NoError(t, err)
		require.Len(t, ct, n+crypto.Overhead)

		got, err := crypto.Open(k, env)
		require.NoErrorf(t, err, "len %d", n)
		if !bytes.Equal(got, pt) {
			t.Fatalf("len %d: plaintext mismatch", n)
		}
	}
}

func TestSealOpen_AgreedKeys(t *testing.T) {
	a := newIdentity(t)
	b := newIdentity(t)
	c := newIdentity(t)

	kA, err := crypto.DeriveSessionKey(a, b.PublicKeyB64())
	require.NoError(t, err)
	kB, err := crypto.DeriveSessionKey(b, a.PublicKeyB64())
	require.NoError(t, err)
	require.True(t, kA.Equal(kB))

	env, err := crypto.Seal(kA, []byte("hello"))
	require.NoError(t, err)

	got, err := crypto.Open(kB, env)
	require.NoError(t, err)
	require.Equal(t, "hello", string(got))

	// A third party talking to B ends up with an unrelated key.
	kC, err := crypto.DeriveSessionKey(c, b.PublicKeyB64())
	require.NoError(t, err)
	require.False(t, kC.Equal(kA))

	got, err = crypto.Open(kC, env)
	require.ErrorIs(t, err, crypto.ErrAuthentication)
	require.Nil(t, got)
}

func TestSeal_EmptyPlaintext(t *testing.T) {
	k := randomKey(t)
	env, err := crypto.Seal(k, []byte(""))
	require.NoError(t, err)

	ct, err := crypto.DecodeB64(env.Ciphertext)
	require.NoError(t, err)
	require.Len(t, ct, crypto.Overhead)

	got, err := crypto.Open(k, env)
	require.NoError(t, err)
	require.Equal(t, "", string(got))
}

func TestSeal_FreshNonce(t *testing.T) {
	k := randomKey(t)
	seen := make(map[string]bool)
	for i := 0; i < 256; i++ {
		env, err := crypto.Seal(k, []byte("same message"))
		require.NoError(t, err)
		if seen[env.Nonce] {
			t.Fatalf("nonce reused after %d encryptions", i)
		}
		seen[env.Nonce] = true
	}
}

func TestOpen_EveryBitFlipFails(t *testing.T) {
	k := randomKey(t)
	env, err := crypto.Seal(k, []byte("attack at dawn"))
	require.NoError(t, err)

	nonce, err := crypto.DecodeB64(env.Nonce)
	require.NoError(t, err)
	ct, err := crypto.DecodeB64(env.Ciphertext)
	require.NoError(t, err)

	flip := func(b []byte, bit int) []byte {
		out := append([]byte(nil), b...)
		out[bit/8] ^= 1 << (bit % 8)
		return out
	}

	for bit := 0; bit < len(ct)*8; bit++ {
		bad := domain.CipherEnvelope{Nonce: env.Nonce, Ciphertext: crypto.EncodeB64(flip(ct, bit))}
		got, err := crypto.Open(k, bad)
		require.ErrorIsf(t, err, crypto.ErrAuthentication, "ciphertext bit %d", bit)
		require.Nil(t, got)
	}
	for bit := 0; bit < len(nonce)*8; bit++ {
		bad := domain.CipherEnvelope{Nonce: crypto.EncodeB64(flip(nonce, bit)), Ciphertext: env.Ciphertext}
		got, err := crypto.Open(k, bad)
		require.ErrorIsf(t, err, crypto.ErrAuthentication, "nonce bit %d", bit)
		require.Nil(t, got)
	}
}

func TestOpen_InvalidNonceSize(t *testing.T) {
	k := randomKey(t)
	env, err := crypto.Seal(k, []byte("hi"))
	require.NoError(t, err)

	for _, n := range []int{0, 12, 23, 25} {
		bad := env
		bad.Nonce = crypto.EncodeB64(make([]byte, n))
		_, err := crypto.Open(k, bad)
		require.ErrorIsf(t, err, crypto.ErrInvalidNonceSize, "nonce len %d", n)
	}
}

func TestOpen_MalformedFields(t *testing.T) {
	k := randomKey(t)
	env, err := crypto.Seal(k, []byte("hi"))
	require.NoError(t, err)

	bad := env
	bad.Nonce = "%%%"
	_, err = crypto.Open(k, bad)
	require.ErrorIs(t, err, crypto.ErrMalformedEncoding)

	bad = env
	bad.Ciphertext = env.Ciphertext + "\n"
	_, err = crypto.Open(k, bad)
	require.ErrorIs(t, err, crypto.ErrMalformedEncoding)
}

func TestOpen_TruncatedCiphertext(t *testing.T) {
	k := randomKey(t)
	env, err := crypto.Seal(k, []byte("hi"))
	require.NoError(t, err)

	for _, n := range []int{0, 1, crypto.Overhead - 1} {
		bad := env
		bad.Ciphertext = crypto.EncodeB64(make([]byte, n))
		_, err := crypto.Open(k, bad)
		require.ErrorIsf(t, err, crypto.ErrAuthentication, "ciphertext len %d", n)
	}
}
