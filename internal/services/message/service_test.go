package message_test

import (
	"context"
	"errors"
	"net/http"
	"sync"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/require"

	"boxchat/internal/crypto"
	"boxchat/internal/domain"
	"boxchat/internal/instrument"
	"boxchat/internal/log"
	"boxchat/internal/relay"
	"boxchat/internal/services/message"
	"boxchat/internal/services/session"
)

// fakeNet is an in-process relay shared by several fakeClients.
type fakeNet struct {
	mu       sync.Mutex
	keys     map[domain.Username]string
	msgs     []domain.InboundMessage
	fetchErr error
}

func newFakeNet() *fakeNet {
	return &fakeNet{keys: make(map[domain.Username]string)}
}

func (n *fakeNet) inject(m domain.InboundMessage) domain.MessageID {
	n.mu.Lock()
	defer n.mu.Unlock()
	m.ID = domain.MessageID(len(n.msgs) + 1)
	n.msgs = append(n.msgs, m)
	return m.ID
}

func (n *fakeNet) last() domain.InboundMessage {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.msgs[len(n.msgs)-1]
}

type fakeClient struct {
	net *fakeNet
	me  domain.Username
}

func (c *fakeClient) Register(_ context.Context, u domain.Username, _ string, key string) error {
	c.net.mu.Lock()
	defer c.net.mu.Unlock()
	c.net.keys[u] = key
	return nil
}

func (c *fakeClient) Login(context.Context, domain.Username, string) error { return nil }

func (c *fakeClient) PublishPublicKey(_ context.Context, key string) error {
	c.net.mu.Lock()
	defer c.net.mu.Unlock()
	c.net.keys[c.me] = key
	return nil
}

func (c *fakeClient) FetchPublicKey(_ context.Context, u domain.Username) (string, error) {
	c.net.mu.Lock()
	defer c.net.mu.Unlock()
	k, ok := c.net.keys[u]
	if !ok {
		return "", &relay.Error{Method: http.MethodGet, Path: "/users/" + u.String() + "/public-key", StatusCode: http.StatusNotFound}
	}
	return k, nil
}

func (c *fakeClient) SendMessage(_ context.Context, to domain.Username, env domain.CipherEnvelope) (domain.MessageID, error) {
	return c.net.inject(domain.InboundMessage{From: c.me, To: to, Envelope: env}), nil
}

func (c *fakeClient) FetchMessages(_ context.Context, since domain.MessageID) ([]domain.InboundMessage, error) {
	c.net.mu.Lock()
	defer c.net.mu.Unlock()
	if c.net.fetchErr != nil {
		return nil, c.net.fetchErr
	}
	var out []domain.InboundMessage
	for _, m := range c.net.msgs {
		if m.To == c.me && m.ID > since {
			out = append(out, m)
		}
	}
	return out, nil
}

type account struct {
	identity *crypto.Identity
	sessions *session.Service
	messages *message.Service
}

func newAccount(t *testing.T, n *fakeNet, name domain.Username) *account {
	t.Helper()
	id, err := crypto.GenerateIdentity()
	require.NoError(t, err)
	t.Cleanup(id.Destroy)

	c := &fakeClient{net: n, me: name}
	require.NoError(t, c.PublishPublicKey(context.Background(), id.PublicKeyB64()))

	logger := log.Discard().GetLogger("message")
	sessions := session.New(id, c, logger)
	t.Cleanup(sessions.Close)
	return &account{
		identity: id,
		sessions: sessions,
		messages: message.New(c, sessions, logger),
	}
}

func rejected(reason string) float64 {
	return testutil.ToFloat64(instrument.MessagesRejected.WithLabelValues(reason))
}

func TestService_SendReceive(t *testing.T) {
	ctx := context.Background()
	n := newFakeNet()
	alice, bob := newAccount(t, n, "alice"), newAccount(t, n, "bob")

	sent := testutil.ToFloat64(instrument.MessagesSent)
	received := testutil.ToFloat64(instrument.MessagesReceived)

	id1, err := alice.messages.SendMessage(ctx, "bob", []byte("hello"))
	require.NoError(t, err)
	id2, err := alice.messages.SendMessage(ctx, "bob", []byte("again"))
	require.NoError(t, err)
	require.Greater(t, id2, id1)

	msgs, next, err := bob.messages.ReceiveMessages(ctx, 0)
	require.NoError(t, err)
	require.Equal(t, id2, next)
	require.Len(t, msgs, 2)
	require.Equal(t, domain.Username("alice"), msgs[0].From)
	require.Equal(t, "hello", string(msgs[0].Plaintext))
	require.Equal(t, "again", string(msgs[1].Plaintext))

	require.Equal(t, sent+2, testutil.ToFloat64(instrument.MessagesSent))
	require.Equal(t, received+2, testutil.ToFloat64(instrument.MessagesReceived))

	// Nothing new above the cursor.
	msgs, again, err := bob.messages.ReceiveMessages(ctx, next)
	require.NoError(t, err)
	require.Empty(t, msgs)
	require.Equal(t, next, again)
}

func TestService_SendUnknownRecipient(t *testing.T) {
	n := newFakeNet()
	alice := newAccount(t, n, "alice")

	_, err := alice.messages.SendMessage(context.Background(), "nobody", []byte("x"))
	require.ErrorIs(t, err, relay.ErrNotFound)
	require.ErrorIs(t, err, relay.ErrTransport)
}

func TestService_TamperedMessageSkipped(t *testing.T) {
	ctx := context.Background()
	n := newFakeNet()
	alice, bob := newAccount(t, n, "alice"), newAccount(t, n, "bob")

	_, err := alice.messages.SendMessage(ctx, "bob", []byte("first"))
	require.NoError(t, err)
	_, err = alice.messages.SendMessage(ctx, "bob", []byte("second"))
	require.NoError(t, err)

	// Replay the second envelope with one ciphertext bit flipped.
	bad := n.last()
	ct, err := crypto.DecodeB64(bad.Envelope.Ciphertext)
	require.NoError(t, err)
	ct[len(ct)-1] ^= 0x01
	bad.Envelope.Ciphertext = crypto.EncodeB64(ct)
	badID := n.inject(bad)

	lastID, err := alice.messages.SendMessage(ctx, "bob", []byte("third"))
	require.NoError(t, err)

	before := rejected("authentication")
	msgs, next, err := bob.messages.ReceiveMessages(ctx, 0)
	require.NoError(t, err)
	require.Equal(t, lastID, next)
	require.Greater(t, next, badID)

	var got []string
	for _, m := range msgs {
		got = append(got, string(m.Plaintext))
	}
	require.Equal(t, []string{"first", "second", "third"}, got)
	require.Equal(t, before+1, rejected("authentication"))
}

func TestService_MalformedEnvelopeSkipped(t *testing.T) {
	ctx := context.Background()
	n := newFakeNet()
	_, bob := newAccount(t, n, "alice"), newAccount(t, n, "bob")

	n.inject(domain.InboundMessage{
		From:     "alice",
		To:       "bob",
		Envelope: domain.CipherEnvelope{Nonce: crypto.EncodeB64(make([]byte, 12)), Ciphertext: crypto.EncodeB64(make([]byte, 32))},
	})
	n.inject(domain.InboundMessage{
		From:     "alice",
		To:       "bob",
		Envelope: domain.CipherEnvelope{Nonce: "not base64!", Ciphertext: "AAAA"},
	})

	nonce, malformed := rejected("invalid_nonce_size"), rejected("malformed_encoding")
	msgs, next, err := bob.messages.ReceiveMessages(ctx, 0)
	require.NoError(t, err)
	require.Empty(t, msgs)
	require.Equal(t, domain.MessageID(2), next)
	require.Equal(t, nonce+1, rejected("invalid_nonce_size"))
	require.Equal(t, malformed+1, rejected("malformed_encoding"))
}

func TestService_UnknownSenderSkipped(t *testing.T) {
	ctx := context.Background()
	n := newFakeNet()
	bob := newAccount(t, n, "bob")

	n.inject(domain.InboundMessage{From: "ghost", To: "bob", Envelope: domain.CipherEnvelope{Nonce: "AAAA", Ciphertext: "AAAA"}})

	before := rejected("unknown_sender")
	msgs, next, err := bob.messages.ReceiveMessages(ctx, 0)
	require.NoError(t, err)
	require.Empty(t, msgs)
	require.Equal(t, domain.MessageID(1), next)
	require.Equal(t, before+1, rejected("unknown_sender"))
}

func TestService_BadPublishedKeySkipped(t *testing.T) {
	ctx := context.Background()
	n := newFakeNet()
	bob := newAccount(t, n, "bob")

	mallory := &fakeClient{net: n, me: "mallory"}
	require.NoError(t, mallory.PublishPublicKey(ctx, crypto.EncodeB64(make([]byte, 32))))
	n.inject(domain.InboundMessage{From: "mallory", To: "bob", Envelope: domain.CipherEnvelope{Nonce: "AAAA", Ciphertext: "AAAA"}})

	before := rejected("key_agreement")
	msgs, next, err := bob.messages.ReceiveMessages(ctx, 0)
	require.NoError(t, err)
	require.Empty(t, msgs)
	require.Equal(t, domain.MessageID(1), next)
	require.Equal(t, before+1, rejected("key_agreement"))
}

func TestService_SenderRotatesIdentity(t *testing.T) {
	ctx := context.Background()
	n := newFakeNet()
	alice, bob := newAccount(t, n, "alice"), newAccount(t, n, "bob")

	_, err := alice.messages.SendMessage(ctx, "bob", []byte("old key"))
	require.NoError(t, err)
	msgs, cur, err := bob.messages.ReceiveMessages(ctx, 0)
	require.NoError(t, err)
	require.Len(t, msgs, 1)

	// Alice restarts with a fresh identity and republishes it. Bob's
	// cached session is stale until the next batch refreshes it.
	restarted := newAccount(t, n, "alice")
	_, err = restarted.messages.SendMessage(ctx, "bob", []byte("new key"))
	require.NoError(t, err)

	msgs, _, err = bob.messages.ReceiveMessages(ctx, cur)
	require.NoError(t, err)
	require.Len(t, msgs, 1)
	require.Equal(t, "new key", string(msgs[0].Plaintext))

	// Bob's replies now reach the new identity.
	_, err = bob.messages.SendMessage(ctx, "alice", []byte("welcome back"))
	require.NoError(t, err)
	msgs, _, err = restarted.messages.ReceiveMessages(ctx, 0)
	require.NoError(t, err)
	require.Len(t, msgs, 1)
	require.Equal(t, "welcome back", string(msgs[0].Plaintext))
}

func TestService_TransportErrorKeepsCursor(t *testing.T) {
	n := newFakeNet()
	bob := newAccount(t, n, "bob")
	n.fetchErr = &relay.Error{Method: http.MethodGet, Path: "/messages", Err: errors.New("connection refused")}

	msgs, next, err := bob.messages.ReceiveMessages(context.Background(), 7)
	require.ErrorIs(t, err, relay.ErrTransport)
	require.Nil(t, msgs)
	require.Equal(t, domain.MessageID(7), next)
}
