// Package session persists the dashboard login token between runs.
package session

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/tensorplex-labs/cfo/internal/config"
)

// ErrNoSession is returned by Load when nobody is logged in.
var ErrNoSession = errors.New("no active session")

type User struct {
	WorkEmail string `json:"work_email"`
	FullName  string `json:"full_name,omitempty"`
	JobTitle  string `json:"job_title,omitempty"`
	Demo      bool   `json:"demo,omitempty"`
}

type Session struct {
	Token     string    `json:"token"`
	User      User      `json:"user"`
	CreatedAt time.Time `json:"created_at"`
}

// Store keeps at most one session.
type Store interface {
	Load(ctx context.Context) (*Session, error)
	Save(ctx context.Context, s Session) error
	Clear(ctx context.Context) error
}

// MemoryStore is a process-local Store.
type MemoryStore struct {
	mu      sync.RWMutex
	current *Session
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{}
}

func (m *MemoryStore) Load(_ context.Context) (*Session, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.current == nil {
		return nil, ErrNoSession
	}
	s := *m.current
	return &s, nil
}

func (m *MemoryStore) Save(_ context.Context, s Session) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.current = &s
	return nil
}

func (m *MemoryStore) Clear(_ context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.current = nil
	return nil
}

// New picks the store named by SESSION_BACKEND.
func New(cfg *config.AppConfig) (Store, error) {
	switch strings.ToLower(cfg.SessionBackend) {
	case "memory":
		return NewMemoryStore(), nil
	case "file", "":
		return NewFileStore(cfg.SessionFile)
	case "redis":
		return NewRedisStore(&cfg.RedisEnvConfig, cfg.SessionTTL)
	}
	return nil, fmt.Errorf("unknown session backend %q", cfg.SessionBackend)
}
