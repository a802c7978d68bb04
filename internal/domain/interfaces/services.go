package interfaces

import (
	"context"

	domaintypes "boxchat/internal/domain/types"
)

// PeerSession seals and opens messages for a single peer.
type PeerSession interface {
	Peer() domaintypes.Username
	Established() bool
	Encrypt(plaintext []byte) (domaintypes.CipherEnvelope, error)
	Decrypt(envelope domaintypes.CipherEnvelope) ([]byte, error)
	Close()
}

// SessionService establishes and looks up per-peer sessions.
type SessionService interface {
	EstablishSession(ctx context.Context, peer domaintypes.Username) (PeerSession, error)
	Session(ctx context.Context, peer domaintypes.Username) (PeerSession, error)
	Close()
}

// MessageService encrypts, sends, fetches and decrypts messages.
type MessageService interface {
	SendMessage(
		ctx context.Context,
		to domaintypes.Username,
		plaintext []byte,
	) (domaintypes.MessageID, error)
	ReceiveMessages(
		ctx context.Context,
		since domaintypes.MessageID,
	) ([]domaintypes.DecryptedMessage, domaintypes.MessageID, error)
}
