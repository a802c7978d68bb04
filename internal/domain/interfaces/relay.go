package interfaces

import (
	"context"

	domaintypes "boxchat/internal/domain/types"
)

// KeyDirectory resolves a peer's published identity public key (base64).
type KeyDirectory interface {
	FetchPublicKey(ctx context.Context, username domaintypes.Username) (string, error)
}

// RelayClient is how we talk to the central relay server, all with context.
type RelayClient interface {
	KeyDirectory

	Register(
		ctx context.Context,
		username domaintypes.Username,
		password string,
		identityPublicKey string,
	) error
	Login(ctx context.Context, username domaintypes.Username, password string) error
	PublishPublicKey(ctx context.Context, identityPublicKey string) error

	SendMessage(
		ctx context.Context,
		to domaintypes.Username,
		envelope domaintypes.CipherEnvelope,
	) (domaintypes.MessageID, error)
	FetchMessages(
		ctx context.Context,
		sinceID domaintypes.MessageID,
	) ([]domaintypes.InboundMessage, error)
}
