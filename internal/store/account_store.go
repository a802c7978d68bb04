package store

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"boxchat/internal/domain"
)

const (
	accountsFile    = "accounts.json"
	accountsVersion = 1
)

type accountsDoc struct {
	Version  int                     `json:"version"`
	Accounts []domain.AccountProfile `json:"accounts"`
}

// AccountFileStore keeps account profiles in dir/accounts.json.
type AccountFileStore struct {
	dir string
	mu  sync.Mutex
}

// NewAccountFileStore returns an AccountFileStore rooted at dir. The
// directory is created on first save.
func NewAccountFileStore(dir string) *AccountFileStore {
	return &AccountFileStore{dir: dir}
}

// Path is the accounts file location.
func (s *AccountFileStore) Path() string {
	return filepath.Join(s.dir, accountsFile)
}

// SaveAccountProfile stores or replaces the profile for its
// (ServerURL, Username).
func (s *AccountFileStore) SaveAccountProfile(profile domain.AccountProfile) error {
	if profile.Username == "" {
		return fmt.Errorf("store: account profile without username")
	}
	profile.ServerURL = normalizeServer(profile.ServerURL)

	s.mu.Lock()
	defer s.mu.Unlock()

	doc, err := s.load()
	if err != nil {
		return err
	}
	replaced := false
	for i, p := range doc.Accounts {
		if p.ServerURL == profile.ServerURL && p.Username == profile.Username {
			doc.Accounts[i] = profile
			replaced = true
			break
		}
	}
	if !replaced {
		doc.Accounts = append(doc.Accounts, profile)
	}
	sort.Slice(doc.Accounts, func(i, j int) bool {
		a, b := doc.Accounts[i], doc.Accounts[j]
		if a.ServerURL != b.ServerURL {
			return a.ServerURL < b.ServerURL
		}
		return a.Username < b.Username
	})

	if err := os.MkdirAll(s.dir, 0o700); err != nil {
		return err
	}
	return writeJSON(s.Path(), doc, 0o600)
}

// LoadAccountProfile returns the profile for (serverURL, username), if any.
func (s *AccountFileStore) LoadAccountProfile(
	serverURL string,
	username domain.Username,
) (domain.AccountProfile, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	doc, err := s.load()
	if err != nil {
		return domain.AccountProfile{}, false, err
	}
	serverURL = normalizeServer(serverURL)
	for _, p := range doc.Accounts {
		if p.ServerURL == serverURL && p.Username == username {
			return p, true, nil
		}
	}
	return domain.AccountProfile{}, false, nil
}

func (s *AccountFileStore) load() (accountsDoc, error) {
	doc := accountsDoc{Version: accountsVersion}
	if err := readJSON(s.Path(), &doc); err != nil {
		return accountsDoc{}, fmt.Errorf("store: read %s: %w", s.Path(), err)
	}
	if doc.Version != accountsVersion {
		return accountsDoc{}, fmt.Errorf("store: %s has unsupported version %d", s.Path(), doc.Version)
	}
	return doc, nil
}

// normalizeServer makes "http://relay/" and "http://relay" the same key.
func normalizeServer(u string) string {
	return strings.TrimRight(u, "/")
}

// Compile-time assertion that AccountFileStore implements domain.AccountStore.
var _ domain.AccountStore = (*AccountFileStore)(nil)
