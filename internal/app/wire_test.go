package app_test

import (
	"context"
	"net/http/httptest"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"boxchat/internal/app"
	"boxchat/internal/crypto"
	"boxchat/internal/domain"
	"boxchat/internal/log"
	"boxchat/internal/relayserver"
)

func newWire(t *testing.T, relayURL string) *app.Wire {
	t.Helper()
	cfg := app.DefaultConfig()
	cfg.Home = filepath.Join(t.TempDir(), "home")
	cfg.Relay.URL = relayURL
	cfg.Logging.Disable = true
	w, err := app.NewWire(cfg)
	require.NoError(t, err)
	t.Cleanup(func() { _ = w.Close() })
	return w
}

func TestNewWire_EndToEnd(t *testing.T) {
	ctx := context.Background()
	srv, err := relayserver.New(relayserver.Config{
		Store:      relayserver.NewMemoryStore(),
		Log:        log.Discard().GetLogger("relay"),
		BcryptCost: bcrypt.MinCost,
	})
	require.NoError(t, err)
	ts := httptest.NewServer(srv.Handler())
	defer ts.Close()

	alice, bob := newWire(t, ts.URL), newWire(t, ts.URL)
	require.NoError(t, alice.IDs.SignIn(ctx, "alice", "pw"))
	require.NoError(t, bob.IDs.SignIn(ctx, "bob", "pw"))

	id, err := alice.Messages.SendMessage(ctx, "bob", []byte("hello"))
	require.NoError(t, err)

	msgs, next, err := bob.Messages.ReceiveMessages(ctx, 0)
	require.NoError(t, err)
	require.Equal(t, id, next)
	require.Len(t, msgs, 1)
	require.Equal(t, domain.Username("alice"), msgs[0].From)
	require.Equal(t, "hello", string(msgs[0].Plaintext))
}

func TestWire_CloseWipesIdentity(t *testing.T) {
	cfg := app.DefaultConfig()
	cfg.Home = t.TempDir()
	cfg.Logging.Disable = true
	w, err := app.NewWire(cfg)
	require.NoError(t, err)

	pub := w.Identity.PublicKeyB64()
	require.NoError(t, w.Close())

	_, err = crypto.DeriveSessionKey(w.Identity, pub)
	require.ErrorIs(t, err, crypto.ErrKeyAgreement)
}

func TestNewWire_InvalidConfig(t *testing.T) {
	cfg := app.DefaultConfig()
	cfg.Relay.URL = ""
	_, err := app.NewWire(cfg)
	require.Error(t, err)
}
