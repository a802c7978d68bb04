package crypto

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"sync"

	"golang.org/x/crypto/curve25519"

	"boxchat/internal/util/memzero"
)

const (
	// PublicKeySize is the length of an X25519 public key.
	PublicKeySize = curve25519.PointSize
	// SecretKeySize is the length of an X25519 secret scalar.
	SecretKeySize = curve25519.ScalarSize
)

// Identity is the long-term X25519 key pair of one client process.
//
// The secret scalar never leaves this type; agreement goes through
// DeriveSessionKey. An Identity is safe for concurrent use.
type Identity struct {
	mu        sync.RWMutex
	secret    [SecretKeySize]byte
	public    [PublicKeySize]byte
	destroyed bool
}

// GenerateIdentity returns a fresh identity drawn from crypto/rand.
func GenerateIdentity() (*Identity, error) {
	return generateIdentity(rand.Reader)
}

func generateIdentity(r io.Reader) (*Identity, error) {
	id := new(Identity)
	if _, err := io.ReadFull(r, id.secret[:]); err != nil {
		return nil, fmt.Errorf("read identity entropy: %w", err)
	}
	// Clamp per RFC 7748.
	id.secret[0] &= 248
	id.secret[31] &= 127
	id.secret[31] |= 64

	pub, err := curve25519.X25519(id.secret[:], curve25519.Basepoint)
	if err != nil {
		memzero.Zero(id.secret[:])
		return nil, err
	}
	copy(id.public[:], pub)
	return id, nil
}

// PublicKey returns a copy of the public key.
func (id *Identity) PublicKey() [PublicKeySize]byte {
	id.mu.RLock()
	defer id.mu.RUnlock()
	return id.public
}

// PublicKeyB64 returns the public key in wire form.
func (id *Identity) PublicKeyB64() string {
	pub := id.PublicKey()
	return EncodeB64(pub[:])
}

// Fingerprint returns a short fingerprint of the public key.
func (id *Identity) Fingerprint() string {
	pub := id.PublicKey()
	return Fingerprint(pub[:])
}

// Destroy overwrites the secret scalar. Further agreement fails.
func (id *Identity) Destroy() {
	id.mu.Lock()
	defer id.mu.Unlock()
	memzero.Zero(id.secret[:])
	id.destroyed = true
}

// String never includes secret material.
func (id *Identity) String() string {
	return "identity(" + id.Fingerprint() + ")"
}

// GoString keeps %#v from dumping the struct fields.
func (id *Identity) GoString() string { return id.String() }

// Fingerprint returns a short hex fingerprint of a public key.
//
// It hashes with SHA-256 and truncates to 10 bytes (20 hex chars).
func Fingerprint(pub []byte) string {
	sum := sha256.Sum256(pub)
	return hex.EncodeToString(sum[:10])
}
