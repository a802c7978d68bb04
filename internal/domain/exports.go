package domain

import (
	interfaces "boxchat/internal/domain/interfaces"
	types "boxchat/internal/domain/types"
)

// Type aliases expose domain types from the types subpackage for compact imports.
type (
	Username         = types.Username
	Fingerprint      = types.Fingerprint
	MessageID        = types.MessageID
	CipherEnvelope   = types.CipherEnvelope
	InboundMessage   = types.InboundMessage
	DecryptedMessage = types.DecryptedMessage
	AccountProfile   = types.AccountProfile
)

// Interface aliases expose domain interfaces from the interfaces subpackage.
type (
	KeyDirectory   = interfaces.KeyDirectory
	RelayClient    = interfaces.RelayClient
	PeerSession    = interfaces.PeerSession
	SessionService = interfaces.SessionService
	MessageService = interfaces.MessageService
	AccountStore   = interfaces.AccountStore
)
