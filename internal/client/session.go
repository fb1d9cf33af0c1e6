package client

import (
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
)

// Session is the login state kept between client runs.
type Session struct {
	Token    string `json:"token"`
	UserID   string `json:"userId"`
	Username string `json:"username"`
}

// LoggedIn reports whether the session carries a token.
func (s *Session) LoggedIn() bool {
	return s.Token != ""
}

// LoadSession reads the session at path. A missing file yields an empty session.
func LoadSession(path string) (*Session, error) {
	f, err := os.Open(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return &Session{}, nil
		}
		return nil, err
	}
	defer f.Close()

	s := &Session{}
	if err := json.NewDecoder(f).Decode(s); err != nil {
		return nil, err
	}
	return s, nil
}

// Save writes the session to path, readable by the owner only.
func (s *Session) Save(path string) error {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o700); err != nil {
			return err
		}
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o600)
	if err != nil {
		return err
	}
	defer f.Close()
	return json.NewEncoder(f).Encode(s)
}

// Clear forgets the login.
func (s *Session) Clear() {
	*s = Session{}
}
