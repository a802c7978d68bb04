package crypto

import (
	"crypto/rand"
	"fmt"
	"io"

	"golang.org/x/crypto/nacl/secretbox"

	"boxchat/internal/domain"
)

const (
	// NonceSize is the XSalsa20-Poly1305 nonce length.
	NonceSize = 24
	// Overhead is the Poly1305 tag length added to every ciphertext.
	Overhead = secretbox.Overhead
)

// Seal encrypts plaintext under key with a fresh random nonce and returns
// both in wire form. The ciphertext is len(plaintext)+Overhead bytes.
func Seal(key *SymmetricKey, plaintext []byte) (domain.CipherEnvelope, error) {
	k, ok := key.array()
	if !ok {
		return domain.CipherEnvelope{}, fmt.Errorf("%w: key is unset or wiped", ErrInvalidKeySize)
	}

	var nonce [NonceSize]byte
	if _, err := io.ReadFull(rand.Reader, nonce[:]); err != nil {
		return domain.CipherEnvelope{}, fmt.Errorf("read nonce: %w", err)
	}
	ct := secretbox.Seal(nil, plaintext, &nonce, k)

	return domain.CipherEnvelope{
		Nonce:      EncodeB64(nonce[:]),
		Ciphertext: EncodeB64(ct),
	}, nil
}

// Open verifies and decrypts env under key.
//
// Any integrity failure, including a ciphertext too short to hold a tag,
// yields ErrAuthentication and a nil plaintext.
func Open(key *SymmetricKey, env domain.CipherEnvelope) ([]byte, error) {
	k, ok := key.array()
	if !ok {
		return nil, fmt.Errorf("%w: key is unset or wiped", ErrInvalidKeySize)
	}

	rawNonce, err := DecodeB64(env.Nonce)
	if err != nil {
		return nil, fmt.Errorf("nonce: %w", err)
	}
	if len(rawNonce) != NonceSize {
		return nil, fmt.Errorf("%w: got %d bytes, want %d", ErrInvalidNonceSize, len(rawNonce), NonceSize)
	}
	ct, err := DecodeB64(env.Ciphertext)
	if err != nil {
		return nil, fmt.Errorf("ciphertext: %w", err)
	}
	if len(ct) < Overhead {
		return nil, ErrAuthentication
	}

	var nonce [NonceSize]byte
	copy(nonce[:], rawNonce)
	pt, ok := secretbox.Open(nil, ct, &nonce, k)
	if !ok {
		return nil, ErrAuthentication
	}
	return pt, nil
}
