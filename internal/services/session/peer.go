package session

import (
	"errors"
	"sync"

	"boxchat/internal/crypto"
	"boxchat/internal/domain"
)

// ErrSessionNotEstablished is returned by Encrypt and Decrypt before a key
// has been agreed, and after Close.
var ErrSessionNotEstablished = errors.New("session not established")

// PeerSession holds the symmetric key for one peer.
//
// The zero key state is "not established". Establish sets or replaces the
// key; Close wipes it.
type PeerSession struct {
	mu   sync.Mutex
	peer domain.Username
	key  *crypto.SymmetricKey
}

// NewPeerSession returns an unestablished session for peer.
func NewPeerSession(peer domain.Username) *PeerSession {
	return &PeerSession{peer: peer}
}

// Peer returns the peer this session talks to.
func (s *PeerSession) Peer() domain.Username { return s.peer }

// Established reports whether a key is in place.
func (s *PeerSession) Established() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.key != nil
}

// Establish agrees a key between id and the peer's base64 public key. On
// success any previous key is wiped and replaced; on failure the session is
// left as it was.
func (s *PeerSession) Establish(id *crypto.Identity, peerPublicB64 string) error {
	key, err := crypto.DeriveSessionKey(id, peerPublicB64)
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.key != nil {
		s.key.Wipe()
	}
	s.key = key
	return nil
}

// Encrypt seals plaintext for the peer.
func (s *PeerSession) Encrypt(plaintext []byte) (domain.CipherEnvelope, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.key == nil {
		return domain.CipherEnvelope{}, ErrSessionNotEstablished
	}
	return crypto.Seal(s.key, plaintext)
}

// Decrypt opens an envelope from the peer.
func (s *PeerSession) Decrypt(env domain.CipherEnvelope) ([]byte, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.key == nil {
		return nil, ErrSessionNotEstablished
	}
	return crypto.Open(s.key, env)
}

// Close wipes the key. The session reverts to not established.
func (s *PeerSession) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.key != nil {
		s.key.Wipe()
		s.key = nil
	}
}

var _ domain.PeerSession = (*PeerSession)(nil)
