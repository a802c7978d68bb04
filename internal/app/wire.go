package app

import (
	"fmt"
	"net/http"
	"os"

	"boxchat/internal/crypto"
	"boxchat/internal/log"
	"boxchat/internal/relay"
	identitysvc "boxchat/internal/services/identity"
	messagesvc "boxchat/internal/services/message"
	sessionsvc "boxchat/internal/services/session"
	"boxchat/internal/store"
)

// Wire bundles all stores, services, and clients for the CLI.
type Wire struct {
	Config   Config
	Log      *log.Backend
	HTTP     *http.Client
	Relay    *relay.HTTP
	Identity *crypto.Identity
	Accounts *store.AccountFileStore
	IDs      *identitysvc.Service
	Sessions *sessionsvc.Service
	Messages *messagesvc.Service
}

// NewWire constructs the dependency graph from cfg. The caller owns the
// result and must Close it to wipe key material.
func NewWire(cfg Config) (*Wire, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if cfg.Home == "" {
		home, err := DefaultHome()
		if err != nil {
			return nil, err
		}
		cfg.Home = home
	}
	if err := os.MkdirAll(cfg.Home, 0o700); err != nil {
		return nil, err
	}

	backend, err := log.New(cfg.Logging.File, cfg.Logging.Level, cfg.Logging.Disable)
	if err != nil {
		return nil, err
	}

	id, err := crypto.GenerateIdentity()
	if err != nil {
		backend.Close()
		return nil, fmt.Errorf("generate identity: %w", err)
	}

	httpClient := &http.Client{Timeout: cfg.Relay.Timeout}
	rc := relay.NewHTTP(cfg.Relay.URL, httpClient)

	sessions := sessionsvc.New(id, rc, backend.GetLogger("session"))
	w := &Wire{
		Config:   cfg,
		Log:      backend,
		HTTP:     httpClient,
		Relay:    rc,
		Identity: id,
		Accounts: store.NewAccountFileStore(cfg.Home),
		IDs:      identitysvc.New(id, rc, backend.GetLogger("identity")),
		Sessions: sessions,
		Messages: messagesvc.New(rc, sessions, backend.GetLogger("message")),
	}
	backend.GetLogger("app").Debugf("Relay %s, state in %s, identity %s", cfg.Relay.URL, cfg.Home, id.Fingerprint())
	return w, nil
}

// Close wipes every session key and the identity, then closes the log.
func (w *Wire) Close() error {
	w.Sessions.Close()
	w.Identity.Destroy()
	w.HTTP.CloseIdleConnections()
	return w.Log.Close()
}
