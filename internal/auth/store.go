package auth

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/Lllllllleong/documentocr/internal/models"
)

type cacheEntry struct {
	Method     models.AuthMethod `json:"method"`
	Credential Credential        `json:"credential"`
}

// TokenStore persists a credential as JSON. Last writer wins, no locking.
type TokenStore struct {
	path   string
	method models.AuthMethod
}

func NewTokenStore(path string, method models.AuthMethod) *TokenStore {
	return &TokenStore{path: path, method: method}
}

func (s *TokenStore) Path() string { return s.path }

// Load returns the cached credential. ok is false when there is no cache or it
// was written by a different auth method.
func (s *TokenStore) Load() (cred Credential, ok bool, err error) {
	data, err := os.ReadFile(s.path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return Credential{}, false, nil
		}
		return Credential{}, false, fmt.Errorf("failed to read token cache: %w", err)
	}
	var entry cacheEntry
	if err := json.Unmarshal(data, &entry); err != nil {
		return Credential{}, false, fmt.Errorf("failed to decode token cache %s: %w", s.path, err)
	}
	if entry.Method != s.method {
		return Credential{}, false, nil
	}
	return entry.Credential, true, nil
}

// Save overwrites the cache atomically.
func (s *TokenStore) Save(cred Credential) error {
	data, err := json.MarshalIndent(cacheEntry{Method: s.method, Credential: cred}, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode token: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(s.path), 0o755); err != nil {
		return fmt.Errorf("failed to create token cache dir: %w", err)
	}
	tmp, err := os.CreateTemp(filepath.Dir(s.path), ".token-*.json")
	if err != nil {
		return fmt.Errorf("failed to create temp token file: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to write token: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("failed to close temp token file: %w", err)
	}
	if err := os.Rename(tmp.Name(), s.path); err != nil {
		return fmt.Errorf("failed to replace token cache: %w", err)
	}
	return nil
}
