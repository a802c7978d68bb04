package relayserver

import (
	"errors"
	"sort"
	"sync"

	"boxchat/internal/domain"
)

var (
	// ErrUserExists is returned by AddUser for a taken username.
	ErrUserExists = errors.New("relayserver: user already exists")

	// ErrNoSuchUser is returned for an unknown username.
	ErrNoSuchUser = errors.New("relayserver: no such user")
)

// User is a registered account.
type User struct {
	Username          domain.Username `cbor:"username"`
	PasswordHash      []byte          `cbor:"password_hash"`
	IdentityPublicKey string          `cbor:"identity_public_key"`
	CreatedAt         int64           `cbor:"created_at"`
}

// Store persists users and queued messages.
type Store interface {
	// AddUser stores a new user, failing with ErrUserExists.
	AddUser(u User) error

	// User looks up a user, failing with ErrNoSuchUser.
	User(name domain.Username) (User, error)

	// SetPublicKey replaces a user's identity public key.
	SetPublicKey(name domain.Username, key string) error

	// AppendMessage assigns the next id to m and stores it. Ids start at 1
	// and strictly increase.
	AppendMessage(m domain.InboundMessage) (domain.MessageID, error)

	// MessagesFor returns messages to recipient with id > since, in id
	// order.
	MessagesFor(recipient domain.Username, since domain.MessageID) ([]domain.InboundMessage, error)

	Close() error
}

type memoryStore struct {
	sync.RWMutex

	users  map[domain.Username]User
	inbox  map[domain.Username][]domain.InboundMessage
	lastID domain.MessageID
}

// NewMemoryStore returns a Store that forgets everything on exit.
func NewMemoryStore() Store {
	return &memoryStore{
		users: make(map[domain.Username]User),
		inbox: make(map[domain.Username][]domain.InboundMessage),
	}
}

func (s *memoryStore) AddUser(u User) error {
	s.Lock()
	defer s.Unlock()
	if _, ok := s.users[u.Username]; ok {
		return ErrUserExists
	}
	s.users[u.Username] = u
	return nil
}

func (s *memoryStore) User(name domain.Username) (User, error) {
	s.RLock()
	defer s.RUnlock()
	u, ok := s.users[name]
	if !ok {
		return User{}, ErrNoSuchUser
	}
	return u, nil
}

func (s *memoryStore) SetPublicKey(name domain.Username, key string) error {
	s.Lock()
	defer s.Unlock()
	u, ok := s.users[name]
	if !ok {
		return ErrNoSuchUser
	}
	u.IdentityPublicKey = key
	s.users[name] = u
	return nil
}

func (s *memoryStore) AppendMessage(m domain.InboundMessage) (domain.MessageID, error) {
	s.Lock()
	defer s.Unlock()
	s.lastID++
	m.ID = s.lastID
	s.inbox[m.To] = append(s.inbox[m.To], m)
	return m.ID, nil
}

func (s *memoryStore) MessagesFor(recipient domain.Username, since domain.MessageID) ([]domain.InboundMessage, error) {
	s.RLock()
	defer s.RUnlock()
	q := s.inbox[recipient]
	i := sort.Search(len(q), func(i int) bool { return q[i].ID > since })
	out := make([]domain.InboundMessage, len(q)-i)
	copy(out, q[i:])
	return out, nil
}

func (s *memoryStore) Close() error { return nil }
