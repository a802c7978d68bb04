package relayserver

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"
	"strings"
	"sync"

	"github.com/benbjohnson/clock"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
	"gopkg.in/op/go-logging.v1"

	"boxchat/internal/domain"
	"boxchat/internal/instrument"
)

// maxBody caps request bodies.
const maxBody = 1 << 20

// Config configures a Server. Store is required.
type Config struct {
	Store Store
	Log   *logging.Logger
	Clock clock.Clock

	// BcryptCost defaults to bcrypt.DefaultCost.
	BcryptCost int
}

// Server serves the relay HTTP API.
type Server struct {
	store Store
	log   *logging.Logger
	clock clock.Clock
	cost  int

	mu     sync.RWMutex
	tokens map[string]domain.Username
}

// New returns a Server for cfg.
func New(cfg Config) (*Server, error) {
	if cfg.Store == nil {
		return nil, errors.New("relayserver: store is required")
	}
	if cfg.Log == nil {
		cfg.Log = logging.MustGetLogger("relay")
	}
	if cfg.Clock == nil {
		cfg.Clock = clock.New()
	}
	if cfg.BcryptCost == 0 {
		cfg.BcryptCost = bcrypt.DefaultCost
	}
	return &Server{
		store:  cfg.Store,
		log:    cfg.Log,
		clock:  cfg.Clock,
		cost:   cfg.BcryptCost,
		tokens: make(map[string]domain.Username),
	}, nil
}

// Handler returns the routed HTTP handler.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	s.route(mux, "POST /register", s.handleRegister)
	s.route(mux, "POST /login", s.handleLogin)
	s.route(mux, "GET /users/{username}/public-key", s.handleGetPublicKey)
	s.route(mux, "PUT /users/me/public-key", s.authed(s.handlePublishPublicKey))
	s.route(mux, "POST /messages", s.authed(s.handleSendMessage))
	s.route(mux, "GET /messages", s.authed(s.handleGetMessages))
	return mux
}

type statusWriter struct {
	http.ResponseWriter
	code int
}

func (w *statusWriter) WriteHeader(code int) {
	w.code = code
	w.ResponseWriter.WriteHeader(code)
}

// route registers h and wraps it with the access log and request counter.
func (s *Server) route(mux *http.ServeMux, pattern string, h http.HandlerFunc) {
	mux.HandleFunc(pattern, func(w http.ResponseWriter, r *http.Request) {
		sw := &statusWriter{ResponseWriter: w, code: http.StatusOK}
		start := s.clock.Now()
		h(sw, r)
		instrument.ObserveRequest(pattern, sw.code)
		s.log.Infof("%s %s %d %s", r.Method, r.URL.Path, sw.code, s.clock.Since(start))
	})
}

type userHandler func(w http.ResponseWriter, r *http.Request, user domain.Username)

// authed resolves the bearer token before calling h.
func (s *Server) authed(h userHandler) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		hdr := r.Header.Get("Authorization")
		if hdr == "" {
			writeError(w, http.StatusUnauthorized, "Missing Authorization header")
			return
		}
		scheme, token, ok := strings.Cut(hdr, " ")
		if !ok || !strings.EqualFold(scheme, "bearer") || token == "" || strings.ContainsRune(token, ' ') {
			writeError(w, http.StatusUnauthorized, "Invalid Authorization header")
			return
		}
		s.mu.RLock()
		user, ok := s.tokens[token]
		s.mu.RUnlock()
		if !ok {
			writeError(w, http.StatusUnauthorized, "Invalid or expired token")
			return
		}
		h(w, r, user)
	}
}

type registerRequest struct {
	Username          domain.Username `json:"username"`
	Password          string          `json:"password"`
	IdentityPublicKey string          `json:"identity_public_key"`
}

type credentials struct {
	Username domain.Username `json:"username"`
	Password string          `json:"password"`
}

type publicKeyBody struct {
	Username          domain.Username `json:"username,omitempty"`
	IdentityPublicKey string          `json:"identity_public_key"`
}

type sendRequest struct {
	To         domain.Username `json:"to"`
	Ciphertext string          `json:"ciphertext"`
	Nonce      string          `json:"nonce"`
	Timestamp  int64           `json:"timestamp,omitempty"`
}

func (s *Server) handleRegister(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
	if !readJSON(w, r, &req) {
		return
	}
	switch {
	case req.Username == "":
		writeError(w, http.StatusBadRequest, "username required")
		return
	case req.IdentityPublicKey == "":
		writeError(w, http.StatusBadRequest, "identity_public_key required")
		return
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), s.cost)
	if err != nil {
		writeError(w, http.StatusBadRequest, "unusable password")
		return
	}
	err = s.store.AddUser(User{
		Username:          req.Username,
		PasswordHash:      hash,
		IdentityPublicKey: req.IdentityPublicKey,
		CreatedAt:         s.clock.Now().Unix(),
	})
	switch {
	case errors.Is(err, ErrUserExists):
		writeError(w, http.StatusConflict, "Username already exists")
		return
	case err != nil:
		s.internalError(w, err)
		return
	}
	s.log.Noticef("Registered %s", req.Username)
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok", "message": "User created"})
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req credentials
	if !readJSON(w, r, &req) {
		return
	}
	u, err := s.store.User(req.Username)
	switch {
	case errors.Is(err, ErrNoSuchUser):
		writeError(w, http.StatusUnauthorized, "Invalid username or password")
		return
	case err != nil:
		s.internalError(w, err)
		return
	}
	if bcrypt.CompareHashAndPassword(u.PasswordHash, []byte(req.Password)) != nil {
		writeError(w, http.StatusUnauthorized, "Invalid username or password")
		return
	}

	token := strings.ReplaceAll(uuid.NewString(), "-", "")
	s.mu.Lock()
	s.tokens[token] = u.Username
	s.mu.Unlock()
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok", "token": token})
}

func (s *Server) handleGetPublicKey(w http.ResponseWriter, r *http.Request) {
	u, err := s.store.User(domain.Username(r.PathValue("username")))
	switch {
	case errors.Is(err, ErrNoSuchUser):
		writeError(w, http.StatusNotFound, "User not found")
		return
	case err != nil:
		s.internalError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, publicKeyBody{Username: u.Username, IdentityPublicKey: u.IdentityPublicKey})
}

func (s *Server) handlePublishPublicKey(w http.ResponseWriter, r *http.Request, user domain.Username) {
	var req publicKeyBody
	if !readJSON(w, r, &req) {
		return
	}
	if req.IdentityPublicKey == "" {
		writeError(w, http.StatusBadRequest, "identity_public_key required")
		return
	}
	if err := s.store.SetPublicKey(user, req.IdentityPublicKey); err != nil {
		s.internalError(w, err)
		return
	}
	s.log.Infof("%s published a new identity key", user)
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleSendMessage(w http.ResponseWriter, r *http.Request, user domain.Username) {
	var req sendRequest
	if !readJSON(w, r, &req) {
		return
	}
	_, err := s.store.User(req.To)
	switch {
	case errors.Is(err, ErrNoSuchUser):
		writeError(w, http.StatusNotFound, "Target user not found")
		return
	case err != nil:
		s.internalError(w, err)
		return
	}

	ts := req.Timestamp
	if ts == 0 {
		ts = s.clock.Now().Unix()
	}
	id, err := s.store.AppendMessage(domain.InboundMessage{
		From:      user,
		To:        req.To,
		Envelope:  domain.CipherEnvelope{Nonce: req.Nonce, Ciphertext: req.Ciphertext},
		Timestamp: ts,
	})
	if err != nil {
		s.internalError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"status": "ok", "message_id": id})
}

func (s *Server) handleGetMessages(w http.ResponseWriter, r *http.Request, user domain.Username) {
	var since domain.MessageID
	if v := r.URL.Query().Get("since_id"); v != "" {
		n, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			writeError(w, http.StatusBadRequest, "since_id must be an integer")
			return
		}
		since = domain.MessageID(n)
	}
	msgs, err := s.store.MessagesFor(user, since)
	if err != nil {
		s.internalError(w, err)
		return
	}
	if msgs == nil {
		msgs = []domain.InboundMessage{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"messages": msgs})
}

func (s *Server) internalError(w http.ResponseWriter, err error) {
	s.log.Errorf("Store failure: %v", err)
	writeError(w, http.StatusInternalServerError, "internal error")
}

func readJSON(w http.ResponseWriter, r *http.Request, v any) bool {
	dec := json.NewDecoder(io.LimitReader(r.Body, maxBody))
	if err := dec.Decode(v); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return false
	}
	return true
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, code int, detail string) {
	writeJSON(w, code, map[string]string{"detail": detail})
}
