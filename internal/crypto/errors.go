package crypto

import "errors"

var (
	// ErrMalformedEncoding is returned when a wire field is not valid
	// standard base64.
	ErrMalformedEncoding = errors.New("malformed base64 encoding")

	// ErrInvalidKeySize is returned when a decoded key has the wrong length.
	ErrInvalidKeySize = errors.New("invalid key size")

	// ErrInvalidNonceSize is returned when a decoded nonce has the wrong length.
	ErrInvalidNonceSize = errors.New("invalid nonce size")

	// ErrKeyAgreement is returned when X25519 rejects the peer public key.
	ErrKeyAgreement = errors.New("cannot establish session with this peer")

	// ErrAuthentication is returned when a ciphertext fails verification.
	// It carries no detail about why.
	ErrAuthentication = errors.New("message forged, corrupted, or wrong session key")
)
