package apiclient

import (
	"encoding/json"
	"os"
	"path/filepath"
	"sync"

	"github.com/pkg/errors"

	"github.com/trezcool/projex/core/user"
)

// SessionData is what a SessionStore persists.
type SessionData struct {
	Token string        `json:"token"`
	User  user.Identity `json:"user"`
}

// Session holds the token and identity of the logged in user. It is safe for concurrent use.
type Session struct {
	mu   sync.RWMutex
	data SessionData
}

func NewSession() *Session {
	return &Session{}
}

func (s *Session) Set(data SessionData) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.data = data
}

func (s *Session) Get() SessionData {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.data
}

func (s *Session) Token() string {
	return s.Get().Token
}

func (s *Session) IsAuthenticated() bool {
	return s.Token() != ""
}

func (s *Session) Clear() {
	s.Set(SessionData{})
}

// SessionStore persists a Session between runs.
type SessionStore interface {
	Load() (SessionData, error)
	Save(data SessionData) error
	Clear() error
}

// FileStore keeps the session as a JSON file, readable by the owner only.
type FileStore struct {
	path string
}

var _ SessionStore = (*FileStore)(nil)

func NewFileStore(path string) *FileStore {
	return &FileStore{path: path}
}

// Load returns an empty session when the file does not exist.
func (fs *FileStore) Load() (SessionData, error) {
	var data SessionData
	b, err := os.ReadFile(fs.path)
	switch {
	case os.IsNotExist(err):
		return data, nil
	case err != nil:
		return data, errors.Wrap(err, "reading session file")
	}
	if err := json.Unmarshal(b, &data); err != nil {
		return SessionData{}, errors.Wrap(err, "decoding session file")
	}
	return data, nil
}

func (fs *FileStore) Save(data SessionData) error {
	b, err := json.Marshal(data)
	if err != nil {
		return errors.Wrap(err, "encoding session")
	}
	if err := os.MkdirAll(filepath.Dir(fs.path), 0o700); err != nil {
		return errors.Wrap(err, "creating session dir")
	}
	return errors.Wrap(os.WriteFile(fs.path, b, 0o600), "writing session file")
}

func (fs *FileStore) Clear() error {
	if err := os.Remove(fs.path); err != nil && !os.IsNotExist(err) {
		return errors.Wrap(err, "removing session file")
	}
	return nil
}
