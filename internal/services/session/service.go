package session

import (
	"context"
	"fmt"
	"sync"

	"gopkg.in/op/go-logging.v1"

	"boxchat/internal/crypto"
	"boxchat/internal/domain"
)

// Service keeps one PeerSession per peer for a single local identity.
//
// The registry lock only guards the map; agreement and cipher work happen
// under each session's own lock, so different peers never contend.
type Service struct {
	identity  *crypto.Identity
	directory domain.KeyDirectory
	log       *logging.Logger

	mu       sync.Mutex
	sessions map[domain.Username]*PeerSession
}

// New constructs a Session Service for identity, resolving peer keys
// through directory.
func New(identity *crypto.Identity, directory domain.KeyDirectory, log *logging.Logger) *Service {
	return &Service{
		identity:  identity,
		directory: directory,
		log:       log,
		sessions:  make(map[domain.Username]*PeerSession),
	}
}

// EstablishSession fetches peer's current public key and (re)agrees the
// session key. Directory failures are returned unchanged so callers can
// tell transport errors from crypto errors.
func (s *Service) EstablishSession(ctx context.Context, peer domain.Username) (domain.PeerSession, error) {
	sess, err := s.establish(ctx, peer)
	if err != nil {
		return nil, err
	}
	return sess, nil
}

func (s *Service) establish(ctx context.Context, peer domain.Username) (*PeerSession, error) {
	pub, err := s.directory.FetchPublicKey(ctx, peer)
	if err != nil {
		return nil, err
	}

	sess := s.lookup(peer, true)
	if err := sess.Establish(s.identity, pub); err != nil {
		return nil, fmt.Errorf("session with %q: %w", peer, err)
	}
	s.log.Debugf("Session established with %s (peer key %s)", peer, fingerprintB64(pub))
	return sess, nil
}

// Session returns the established session for peer, establishing it first
// if needed.
func (s *Service) Session(ctx context.Context, peer domain.Username) (domain.PeerSession, error) {
	if sess := s.lookup(peer, false); sess != nil && sess.Established() {
		return sess, nil
	}
	return s.EstablishSession(ctx, peer)
}

// Get returns the session for peer without touching the directory.
func (s *Service) Get(peer domain.Username) (*PeerSession, bool) {
	sess := s.lookup(peer, false)
	return sess, sess != nil
}

// Close wipes every session key.
func (s *Service) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	for peer, sess := range s.sessions {
		sess.Close()
		delete(s.sessions, peer)
	}
}

func (s *Service) lookup(peer domain.Username, create bool) *PeerSession {
	s.mu.Lock()
	defer s.mu.Unlock()
	sess, ok := s.sessions[peer]
	if !ok && create {
		sess = NewPeerSession(peer)
		s.sessions[peer] = sess
	}
	return sess
}

func fingerprintB64(pub string) string {
	raw, err := crypto.DecodeB64(pub)
	if err != nil {
		return "?"
	}
	return crypto.Fingerprint(raw)
}

// Compile-time assertion that Service implements domain.SessionService.
var _ domain.SessionService = (*Service)(nil)
