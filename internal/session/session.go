// Package session holds the host session context: per-user state that lives
// outside any single editor, such as the image the user is currently working on.
package session

import (
	"context"
	"errors"
	"sync"
)

var ErrNoUser = errors.New("session has no user")

// Context is the host session of one user.
type Context struct {
	UserID string `json:"userId"`
	// UploadedImagePath names the stored image the editor should resume on.
	// Empty means the user is back at the upload step.
	UploadedImagePath string `json:"uploadedImagePath,omitempty"`
}

// HasImage reports whether an editor can be resumed.
func (c Context) HasImage() bool {
	return c.UploadedImagePath != ""
}

// Store loads, saves and clears host sessions. Loading a user without a
// saved session yields an empty Context for that user.
type Store interface {
	Load(ctx context.Context, userID string) (Context, error)
	Save(ctx context.Context, sc Context) error
	Clear(ctx context.Context, userID string) error
}

type MemoryStore struct {
	mu       sync.RWMutex
	sessions map[string]Context
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{sessions: make(map[string]Context)}
}

func (m *MemoryStore) Load(_ context.Context, userID string) (Context, error) {
	if userID == "" {
		return Context{}, ErrNoUser
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	sc, ok := m.sessions[userID]
	if !ok {
		return Context{UserID: userID}, nil
	}
	return sc, nil
}

func (m *MemoryStore) Save(_ context.Context, sc Context) error {
	if sc.UserID == "" {
		return ErrNoUser
	}
	m.mu.Lock()
	m.sessions[sc.UserID] = sc
	m.mu.Unlock()
	return nil
}

func (m *MemoryStore) Clear(_ context.Context, userID string) error {
	m.mu.Lock()
	delete(m.sessions, userID)
	m.mu.Unlock()
	return nil
}
