package identity

import (
	"context"
	"errors"
	"fmt"

	"gopkg.in/op/go-logging.v1"

	"boxchat/internal/crypto"
	"boxchat/internal/domain"
	"boxchat/internal/relay"
)

var (
	// ErrEmptyUsername is returned for a blank username.
	ErrEmptyUsername = errors.New("username must not be empty")

	// ErrEmptyPassword is returned for a blank password.
	ErrEmptyPassword = errors.New("password must not be empty")
)

// Service binds one in-memory Identity to a relay account.
type Service struct {
	identity *crypto.Identity
	relay    domain.RelayClient
	log      *logging.Logger
}

// New returns an identity service for id on relayClient.
func New(id *crypto.Identity, relayClient domain.RelayClient, log *logging.Logger) *Service {
	return &Service{identity: id, relay: relayClient, log: log}
}

// Fingerprint is the short form of the identity public key.
func (s *Service) Fingerprint() domain.Fingerprint {
	return domain.Fingerprint(s.identity.Fingerprint())
}

// Register creates the account with the current public key.
func (s *Service) Register(ctx context.Context, username domain.Username, password string) error {
	if err := checkCredentials(username, password); err != nil {
		return err
	}
	if err := s.relay.Register(ctx, username, password, s.identity.PublicKeyB64()); err != nil {
		return fmt.Errorf("register %q: %w", username, err)
	}
	s.log.Noticef("Registered %s with identity %s", username, s.Fingerprint())
	return nil
}

// Login obtains a bearer token for username.
func (s *Service) Login(ctx context.Context, username domain.Username, password string) error {
	if err := checkCredentials(username, password); err != nil {
		return err
	}
	if err := s.relay.Login(ctx, username, password); err != nil {
		return fmt.Errorf("login %q: %w", username, err)
	}
	s.log.Infof("Logged in as %s", username)
	return nil
}

// SignIn registers (ignoring an existing account), logs in and publishes
// the current public key.
func (s *Service) SignIn(ctx context.Context, username domain.Username, password string) error {
	err := s.Register(ctx, username, password)
	switch {
	case errors.Is(err, relay.ErrUserExists):
		s.log.Debugf("%s already registered", username)
	case err != nil:
		return err
	}
	if err := s.Login(ctx, username, password); err != nil {
		return err
	}
	if err := s.relay.PublishPublicKey(ctx, s.identity.PublicKeyB64()); err != nil {
		return fmt.Errorf("publish key for %q: %w", username, err)
	}
	s.log.Infof("Published identity %s for %s", s.Fingerprint(), username)
	return nil
}

func checkCredentials(username domain.Username, password string) error {
	if username == "" {
		return ErrEmptyUsername
	}
	if password == "" {
		return ErrEmptyPassword
	}
	return nil
}
