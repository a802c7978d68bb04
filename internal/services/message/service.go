package message

import (
	"context"
	"errors"
	"fmt"

	"gopkg.in/op/go-logging.v1"

	"boxchat/internal/crypto"
	"boxchat/internal/domain"
	"boxchat/internal/instrument"
	"boxchat/internal/protocol/cursor"
	"boxchat/internal/relay"
	"boxchat/internal/services/session"
)

// Service sends and receives messages over the relay.
//
// High-level flow:
//   - Send: reuse or establish the session with the recipient, seal the
//     plaintext, post the envelope.
//   - Receive: fetch envelopes above the cursor, re-agree a session with
//     every distinct sender in the batch, open each envelope in id order.
//     Envelopes that fail for a crypto reason are logged and skipped; the
//     returned cursor still moves past them.
type Service struct {
	relay    domain.RelayClient
	sessions domain.SessionService
	log      *logging.Logger
}

// New constructs a Message Service.
func New(relayClient domain.RelayClient, sessions domain.SessionService, log *logging.Logger) *Service {
	return &Service{relay: relayClient, sessions: sessions, log: log}
}

// SendMessage seals plaintext for to and returns the relay's message id.
func (s *Service) SendMessage(
	ctx context.Context,
	to domain.Username,
	plaintext []byte,
) (domain.MessageID, error) {
	sess, err := s.sessions.Session(ctx, to)
	if err != nil {
		return 0, err
	}
	env, err := sess.Encrypt(plaintext)
	if err != nil {
		return 0, fmt.Errorf("seal for %q: %w", to, err)
	}
	id, err := s.relay.SendMessage(ctx, to, env)
	if err != nil {
		return 0, err
	}
	instrument.MessagesSent.Inc()
	s.log.Debugf("Sent message %d to %s (%d bytes)", id, to, len(plaintext))
	return id, nil
}

// ReceiveMessages fetches everything above since and returns the messages
// that opened, along with the advanced cursor.
//
// A transport error aborts the round and is returned with since unchanged.
func (s *Service) ReceiveMessages(
	ctx context.Context,
	since domain.MessageID,
) ([]domain.DecryptedMessage, domain.MessageID, error) {
	inbound, err := s.relay.FetchMessages(ctx, since)
	if err != nil {
		return nil, since, err
	}
	if len(inbound) == 0 {
		return nil, since, nil
	}

	sessions, rejected, err := s.refreshSenders(ctx, inbound)
	if err != nil {
		return nil, since, err
	}

	out := make([]domain.DecryptedMessage, 0, len(inbound))
	for _, m := range inbound {
		if cause, ok := rejected[m.From]; ok {
			s.reject(m, cause)
			continue
		}
		plaintext, err := sessions[m.From].Decrypt(m.Envelope)
		if err != nil {
			s.reject(m, err)
			continue
		}
		instrument.MessagesReceived.Inc()
		out = append(out, domain.DecryptedMessage{
			ID:        m.ID,
			From:      m.From,
			Plaintext: plaintext,
			Timestamp: m.Timestamp,
		})
	}

	next := cursor.Cursor(since).AdvanceMessages(inbound)
	return out, next.SinceID(), nil
}

// refreshSenders establishes a fresh session with each distinct sender.
// Senders whose key cannot be agreed are returned in rejected; transport
// failures abort.
func (s *Service) refreshSenders(
	ctx context.Context,
	inbound []domain.InboundMessage,
) (map[domain.Username]domain.PeerSession, map[domain.Username]error, error) {
	sessions := make(map[domain.Username]domain.PeerSession)
	rejected := make(map[domain.Username]error)
	for _, m := range inbound {
		if _, done := sessions[m.From]; done {
			continue
		}
		if _, done := rejected[m.From]; done {
			continue
		}
		sess, err := s.sessions.EstablishSession(ctx, m.From)
		switch {
		case err == nil:
			sessions[m.From] = sess
		case rejectReason(err) != "":
			rejected[m.From] = err
		default:
			return nil, nil, err
		}
	}
	return sessions, rejected, nil
}

func (s *Service) reject(m domain.InboundMessage, err error) {
	reason := rejectReason(err)
	instrument.MessagesRejected.WithLabelValues(reason).Inc()
	s.log.Warningf("Skipping message %d from %s: %s", m.ID, m.From, reason)
	s.log.Debugf("Message %d: %v", m.ID, err)
}

// rejectReason names the failure for a skipped message, or "" when err is
// not something a single message can be skipped over.
func rejectReason(err error) string {
	switch {
	case errors.Is(err, crypto.ErrAuthentication):
		return "authentication"
	case errors.Is(err, crypto.ErrMalformedEncoding):
		return "malformed_encoding"
	case errors.Is(err, crypto.ErrInvalidNonceSize):
		return "invalid_nonce_size"
	case errors.Is(err, crypto.ErrInvalidKeySize):
		return "invalid_key_size"
	case errors.Is(err, crypto.ErrKeyAgreement):
		return "key_agreement"
	case errors.Is(err, session.ErrSessionNotEstablished):
		return "no_session"
	case errors.Is(err, relay.ErrNotFound):
		return "unknown_sender"
	}
	return ""
}

// Compile-time assertion that Service implements domain.MessageService.
var _ domain.MessageService = (*Service)(nil)
