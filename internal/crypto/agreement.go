package crypto

import (
	"crypto/subtle"
	"errors"
	"fmt"

	"golang.org/x/crypto/curve25519"

	"boxchat/internal/util/memzero"
)

// KeySize is the symmetric key length required by Seal and Open.
const KeySize = 32

var errIdentityDestroyed = errors.New("identity destroyed")

// SymmetricKey is a per-peer session key. The zero value is not usable;
// obtain one from DeriveSessionKey or NewSymmetricKey.
type SymmetricKey struct {
	k     [KeySize]byte
	valid bool
}

// NewSymmetricKey copies b into a new key. b must be exactly KeySize bytes.
func NewSymmetricKey(b []byte) (*SymmetricKey, error) {
	if len(b) != KeySize {
		return nil, fmt.Errorf("%w: want %d bytes, got %d", ErrInvalidKeySize, KeySize, len(b))
	}
	k := &SymmetricKey{valid: true}
	copy(k.k[:], b)
	return k, nil
}

// Equal reports whether both keys hold the same bytes, in constant time.
func (k *SymmetricKey) Equal(o *SymmetricKey) bool {
	if k == nil || o == nil || !k.valid || !o.valid {
		return false
	}
	return subtle.ConstantTimeCompare(k.k[:], o.k[:]) == 1
}

// Wipe overwrites the key. A wiped key no longer seals or opens.
func (k *SymmetricKey) Wipe() {
	if k == nil {
		return
	}
	memzero.Zero(k.k[:])
	k.valid = false
}

func (k *SymmetricKey) array() (*[KeySize]byte, bool) {
	if k == nil || !k.valid {
		return nil, false
	}
	return &k.k, true
}

// String never includes key material.
func (k *SymmetricKey) String() string { return "symmetric-key(redacted)" }

// GoString keeps %#v from dumping the key.
func (k *SymmetricKey) GoString() string { return k.String() }

// DeriveSessionKey runs X25519 between local's secret and the peer's base64
// public key and returns the leading KeySize bytes of the shared secret.
//
// DeriveSessionKey(a, b.PublicKeyB64()) equals DeriveSessionKey(b, a.PublicKeyB64()).
func DeriveSessionKey(local *Identity, peerPublicB64 string) (*SymmetricKey, error) {
	peer, err := DecodeB64(peerPublicB64)
	if err != nil {
		return nil, err
	}
	if len(peer) != PublicKeySize {
		return nil, fmt.Errorf("%w: peer public key is %d bytes, want %d",
			ErrInvalidKeySize, len(peer), PublicKeySize)
	}

	local.mu.RLock()
	if local.destroyed {
		local.mu.RUnlock()
		return nil, fmt.Errorf("%w: %v", ErrKeyAgreement, errIdentityDestroyed)
	}
	shared, err := curve25519.X25519(local.secret[:], peer)
	local.mu.RUnlock()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrKeyAgreement, err)
	}
	defer memzero.Zero(shared)

	key := &SymmetricKey{valid: true}
	copy(key.k[:], shared[:KeySize])
	return key, nil
}

