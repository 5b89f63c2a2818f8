// Package auth holds the locally persisted login state: who is signed in and
// the bearer token the remote service issued. Token issuance itself is owned
// by the server; this is only the client-side record of it.
package auth

import (
	"context"
	"sync"

	"campusmarket/internal/infrastructure/storage"
	"campusmarket/pkg/errors"
	"campusmarket/pkg/logger"
)

const (
	sessionNamespace = "session"
	currentKey       = "current"
)

type Credentials struct {
	UserID   string `json:"user_id"`
	Username string `json:"username"`
	Token    string `json:"token"`
}

// Manager caches the persisted credentials in memory and writes through to
// the local store so a restart resumes the same login.
type Manager struct {
	store *storage.Store

	mu      sync.RWMutex
	current *Credentials
	loaded  bool
}

func NewManager(store *storage.Store) *Manager {
	return &Manager{store: store}
}

// Current implements the identity contract used by the realtime session and
// the REST client. Storage failures degrade to "not logged in".
func (m *Manager) Current() (userID, token string, ok bool) {
	m.mu.RLock()
	if m.loaded {
		defer m.mu.RUnlock()
		if m.current == nil {
			return "", "", false
		}
		return m.current.UserID, m.current.Token, true
	}
	m.mu.RUnlock()

	m.mu.Lock()
	defer m.mu.Unlock()
	if !m.loaded {
		var creds Credentials
		found, err := m.store.Get(context.Background(), sessionNamespace, currentKey, &creds)
		if err != nil {
			logger.Warn("Failed to load persisted session: %v", err)
			return "", "", false
		}
		if found && creds.UserID != "" {
			m.current = &creds
		}
		m.loaded = true
	}

	if m.current == nil {
		return "", "", false
	}
	return m.current.UserID, m.current.Token, true
}

// Token returns just the bearer token, for the REST client.
func (m *Manager) Token() (string, bool) {
	_, token, ok := m.Current()
	return token, ok && token != ""
}

func (m *Manager) SetCurrent(ctx context.Context, creds Credentials) error {
	if creds.UserID == "" || creds.Token == "" {
		return errors.BadRequest("User id and token are required", nil)
	}

	if err := m.store.Set(ctx, sessionNamespace, currentKey, creds); err != nil {
		return errors.Internal("Failed to persist session", err)
	}

	m.mu.Lock()
	m.current = &creds
	m.loaded = true
	m.mu.Unlock()
	return nil
}

// Clear wipes the login state; used on logout and on a 401 from the API.
func (m *Manager) Clear(ctx context.Context) error {
	if err := m.store.Delete(ctx, sessionNamespace, currentKey); err != nil {
		return errors.Internal("Failed to clear session", err)
	}

	m.mu.Lock()
	m.current = nil
	m.loaded = true
	m.mu.Unlock()
	return nil
}
