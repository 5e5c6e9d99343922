package mockserver

import (
	"errors"
	"strings"
	"sync"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
)

var (
	errUserExists         = errors.New("user already exists")
	errInvalidCredentials = errors.New("invalid credentials")
)

type user struct {
	FullName     string
	WorkEmail    string
	JobTitle     string
	CompanyName  string
	passwordHash []byte
}

// userStore keeps accounts and issued tokens in memory.
type userStore struct {
	mu     sync.RWMutex
	cost   int
	users  map[string]*user
	tokens map[string]string
}

func newUserStore(cost int) *userStore {
	return &userStore{
		cost:   cost,
		users:  make(map[string]*user),
		tokens: make(map[string]string),
	}
}

func (s *userStore) register(u user, password string) error {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), s.cost)
	if err != nil {
		return err
	}
	key := strings.ToLower(u.WorkEmail)

	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.users[key]; ok {
		return errUserExists
	}
	u.passwordHash = hash
	s.users[key] = &u
	return nil
}

// login returns a fresh access token.
func (s *userStore) login(email, password string) (string, error) {
	s.mu.RLock()
	u, ok := s.users[strings.ToLower(email)]
	s.mu.RUnlock()
	if !ok {
		return "", errInvalidCredentials
	}
	if err := bcrypt.CompareHashAndPassword(u.passwordHash, []byte(password)); err != nil {
		return "", errInvalidCredentials
	}

	token := uuid.NewString()
	s.mu.Lock()
	s.tokens[token] = u.WorkEmail
	s.mu.Unlock()
	return token, nil
}

func (s *userStore) identity(token string) (string, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	email, ok := s.tokens[token]
	return email, ok
}
