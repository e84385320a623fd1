package credentials

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/gofrs/flock"

	"github.com/mikey-austin/signage/pkg/signage"
)

// Store keeps tokens in one of two files: a persistent one under
// XDG_STATE_HOME for remembered logins and a session one under
// XDG_RUNTIME_DIR that does not survive a reboot.
type Store struct {
	mu         sync.Mutex
	persistent *tokenFile
	session    *tokenFile
}

// NewStore creates a store at the XDG locations.
func NewStore() (*Store, error) {
	persistent, err := persistentPath()
	if err != nil {
		return nil, err
	}
	return NewStoreAt(persistent, sessionPath()), nil
}

// NewStoreAt creates a store with explicit file paths.
func NewStoreAt(persistentPath, sessionPath string) *Store {
	return &Store{
		persistent: newTokenFile(persistentPath),
		session:    newTokenFile(sessionPath),
	}
}

// Get returns the remembered tokens, falling back to the session ones.
func (s *Store) Get() (signage.Tokens, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, f := range []*tokenFile{s.persistent, s.session} {
		tokens, ok, err := f.read()
		if err != nil {
			return signage.Tokens{}, false, err
		}
		if ok {
			return tokens, true, nil
		}
	}
	return signage.Tokens{}, false, nil
}

// Set stores tokens in the backend chosen by remember and removes any
// copy from the other one.
func (s *Store) Set(tokens signage.Tokens, remember bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	target, other := s.session, s.persistent
	if remember {
		target, other = s.persistent, s.session
	}
	if err := other.remove(); err != nil {
		return err
	}
	return target.write(tokens)
}

// SetAccessToken replaces the access token wherever tokens are stored.
func (s *Store) SetAccessToken(token string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, f := range []*tokenFile{s.persistent, s.session} {
		tokens, ok, err := f.read()
		if err != nil {
			return err
		}
		if ok {
			tokens.AccessToken = token
			return f.write(tokens)
		}
	}
	return errors.New("no stored session")
}

// Clear removes both backends.
func (s *Store) Clear() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	return errors.Join(s.persistent.remove(), s.session.remove())
}

type tokenFile struct {
	path string
	lock *flock.Flock
}

func newTokenFile(path string) *tokenFile {
	return &tokenFile{path: path, lock: flock.New(path + ".lock")}
}

func (f *tokenFile) read() (signage.Tokens, bool, error) {
	data, err := os.ReadFile(f.path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return signage.Tokens{}, false, nil
		}
		return signage.Tokens{}, false, err
	}
	if len(data) == 0 {
		return signage.Tokens{}, false, nil
	}
	var tokens signage.Tokens
	if err := json.Unmarshal(data, &tokens); err != nil {
		return signage.Tokens{}, false, fmt.Errorf("parse %s: %w", f.path, err)
	}
	if tokens.AccessToken == "" && tokens.RefreshToken == "" {
		return signage.Tokens{}, false, nil
	}
	return tokens, true, nil
}

func (f *tokenFile) write(tokens signage.Tokens) error {
	if err := os.MkdirAll(filepath.Dir(f.path), 0o700); err != nil {
		return err
	}
	if err := f.lock.Lock(); err != nil {
		return fmt.Errorf("lock %s: %w", f.path, err)
	}
	defer func() { _ = f.lock.Unlock() }()

	payload, err := json.MarshalIndent(tokens, "", "  ")
	if err != nil {
		return err
	}
	tmp := f.path + ".tmp"
	if err := os.WriteFile(tmp, payload, 0o600); err != nil {
		return err
	}
	return os.Rename(tmp, f.path)
}

func (f *tokenFile) remove() error {
	if _, err := os.Stat(filepath.Dir(f.path)); errors.Is(err, os.ErrNotExist) {
		return nil
	}
	if err := f.lock.Lock(); err != nil {
		return fmt.Errorf("lock %s: %w", f.path, err)
	}
	defer func() { _ = f.lock.Unlock() }()

	if err := os.Remove(f.path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return err
	}
	return nil
}

func persistentPath() (string, error) {
	if dir := os.Getenv("XDG_STATE_HOME"); dir != "" {
		return filepath.Join(dir, "sg", "credentials.json"), nil
	}

	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".local", "state", "sg", "credentials.json"), nil
}

func sessionPath() string {
	if dir := os.Getenv("XDG_RUNTIME_DIR"); dir != "" {
		return filepath.Join(dir, "sg", "session.json")
	}
	return filepath.Join(os.TempDir(), fmt.Sprintf("sg-%d", os.Getuid()), "session.json")
}
