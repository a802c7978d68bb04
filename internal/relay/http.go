package relay

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"sync"

	"boxchat/internal/domain"
)

// maxDetail caps how much of an error body is kept.
const maxDetail = 4 << 10

// HTTP is a RelayClient over JSON/HTTP. It remembers the bearer token from
// Login and attaches it to authenticated calls.
type HTTP struct {
	base string
	http *http.Client

	mu    sync.RWMutex
	token string
}

// NewHTTP returns a client for the relay at base. A nil client means
// http.DefaultClient.
func NewHTTP(base string, client *http.Client) *HTTP {
	if client == nil {
		client = http.DefaultClient
	}
	return &HTTP{base: strings.TrimRight(base, "/"), http: client}
}

// Base returns the relay base URL.
func (c *HTTP) Base() string { return c.base }

// Token returns the bearer token from the last successful Login.
func (c *HTTP) Token() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.token
}

type registerRequest struct {
	Username          domain.Username `json:"username"`
	Password          string          `json:"password"`
	IdentityPublicKey string          `json:"identity_public_key"`
}

type loginRequest struct {
	Username domain.Username `json:"username"`
	Password string          `json:"password"`
}

type loginResponse struct {
	Status string `json:"status"`
	Token  string `json:"token"`
}

type publicKeyBody struct {
	Username          domain.Username `json:"username,omitempty"`
	IdentityPublicKey string          `json:"identity_public_key"`
}

type sendRequest struct {
	To         domain.Username `json:"to"`
	Ciphertext string          `json:"ciphertext"`
	Nonce      string          `json:"nonce"`
}

type sendResponse struct {
	Status    string           `json:"status"`
	MessageID domain.MessageID `json:"message_id"`
}

type messagesResponse struct {
	Messages []domain.InboundMessage `json:"messages"`
}

// Register creates an account that publishes identityPublicKey.
func (c *HTTP) Register(
	ctx context.Context,
	username domain.Username,
	password string,
	identityPublicKey string,
) error {
	req := registerRequest{Username: username, Password: password, IdentityPublicKey: identityPublicKey}
	return c.do(ctx, http.MethodPost, "/register", req, nil, false)
}

// Login exchanges credentials for a bearer token and keeps it.
func (c *HTTP) Login(ctx context.Context, username domain.Username, password string) error {
	var out loginResponse
	if err := c.do(ctx, http.MethodPost, "/login", loginRequest{Username: username, Password: password}, &out, false); err != nil {
		return err
	}
	if out.Token == "" {
		return &Error{Method: http.MethodPost, Path: "/login", Detail: "empty token", Err: errNotLoggedIn}
	}
	c.mu.Lock()
	c.token = out.Token
	c.mu.Unlock()
	return nil
}

// PublishPublicKey replaces the identity key stored for the logged-in user.
func (c *HTTP) PublishPublicKey(ctx context.Context, identityPublicKey string) error {
	return c.do(ctx, http.MethodPut, "/users/me/public-key", publicKeyBody{IdentityPublicKey: identityPublicKey}, nil, true)
}

// FetchPublicKey returns username's published identity key in base64.
func (c *HTTP) FetchPublicKey(ctx context.Context, username domain.Username) (string, error) {
	var out publicKeyBody
	path := "/users/" + url.PathEscape(username.String()) + "/public-key"
	if err := c.do(ctx, http.MethodGet, path, nil, &out, false); err != nil {
		return "", err
	}
	return out.IdentityPublicKey, nil
}

// SendMessage posts a sealed envelope for to and returns its relay id.
func (c *HTTP) SendMessage(
	ctx context.Context,
	to domain.Username,
	env domain.CipherEnvelope,
) (domain.MessageID, error) {
	var out sendResponse
	req := sendRequest{To: to, Ciphertext: env.Ciphertext, Nonce: env.Nonce}
	if err := c.do(ctx, http.MethodPost, "/messages", req, &out, true); err != nil {
		return 0, err
	}
	return out.MessageID, nil
}

// FetchMessages returns messages addressed to us with id > sinceID.
func (c *HTTP) FetchMessages(ctx context.Context, sinceID domain.MessageID) ([]domain.InboundMessage, error) {
	var out messagesResponse
	path := "/messages?since_id=" + strconv.FormatInt(int64(sinceID), 10)
	if err := c.do(ctx, http.MethodGet, path, nil, &out, true); err != nil {
		return nil, err
	}
	return out.Messages, nil
}

func (c *HTTP) do(ctx context.Context, method, path string, in, out any, auth bool) error {
	fail := func(err error) error { return &Error{Method: method, Path: path, Err: err} }

	var body io.Reader
	if in != nil {
		buf := new(bytes.Buffer)
		if err := json.NewEncoder(buf).Encode(in); err != nil {
			return fail(err)
		}
		body = buf
	}
	req, err := http.NewRequestWithContext(ctx, method, c.base+path, body)
	if err != nil {
		return fail(err)
	}
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("Accept", "application/json")
	if auth {
		tok := c.Token()
		if tok == "" {
			return &Error{Method: method, Path: path, StatusCode: http.StatusUnauthorized, Err: errNotLoggedIn}
		}
		req.Header.Set("Authorization", "Bearer "+tok)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fail(err)
	}
	defer resp.Body.Close()

	if resp.StatusCode/100 != 2 {
		return &Error{
			Method:     method,
			Path:       path,
			StatusCode: resp.StatusCode,
			Detail:     readDetail(resp.Body),
		}
	}
	if out == nil {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return &Error{Method: method, Path: path, StatusCode: resp.StatusCode, Err: err}
	}
	return nil
}

// readDetail pulls "detail" out of a JSON error body, falling back to the
// raw text.
func readDetail(r io.Reader) string {
	raw, _ := io.ReadAll(io.LimitReader(r, maxDetail))
	var e struct {
		Detail string `json:"detail"`
	}
	if json.Unmarshal(raw, &e) == nil && e.Detail != "" {
		return e.Detail
	}
	return strings.TrimSpace(string(raw))
}

var _ domain.RelayClient = (*HTTP)(nil)
