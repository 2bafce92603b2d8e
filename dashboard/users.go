// Package dashboard serves the admin page listing the latest alerts.
//
// The login gate is a demo-only convenience: accounts live in process memory,
// disappear on restart and are not meant as real access control.
package dashboard

import (
	"errors"
	"fmt"
	"strings"
	"sync"

	"golang.org/x/crypto/bcrypt"
)

var (
	ErrUserExists         = errors.New("username already exists")
	ErrInvalidCredentials = errors.New("incorrect username or password")
	ErrMissingCredentials = errors.New("username and password are required")
	ErrPasswordTooLong    = fmt.Errorf("password must be at most %d bytes", maxPasswordBytes)
)

// bcrypt only hashes the first 72 bytes and rejects anything longer
const maxPasswordBytes = 72

// UserStore is the in-memory account list behind the demo login.
type UserStore struct {
	mu     sync.RWMutex
	hashes map[string][]byte
	cost   int
}

func NewUserStore() *UserStore {
	return &UserStore{hashes: make(map[string][]byte), cost: bcrypt.DefaultCost}
}

// SignUp registers a new account.
func (s *UserStore) SignUp(username, password string) error {
	username = strings.TrimSpace(username)
	if username == "" || password == "" {
		return ErrMissingCredentials
	}
	if len(password) > maxPasswordBytes {
		return ErrPasswordTooLong
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), s.cost)
	if err != nil {
		return fmt.Errorf("failed to hash password: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.hashes[username]; ok {
		return ErrUserExists
	}
	s.hashes[username] = hash
	return nil
}

// Authenticate checks a username/password pair.
func (s *UserStore) Authenticate(username, password string) error {
	username = strings.TrimSpace(username)
	if username == "" || password == "" {
		return ErrMissingCredentials
	}

	s.mu.RLock()
	hash, ok := s.hashes[username]
	s.mu.RUnlock()
	if !ok {
		return ErrInvalidCredentials
	}
	if err := bcrypt.CompareHashAndPassword(hash, []byte(password)); err != nil {
		return ErrInvalidCredentials
	}
	return nil
}
