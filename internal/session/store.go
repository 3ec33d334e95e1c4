// Package session is the in-memory registry of live sessions. Nothing is
// ever persisted: a session exists for the lifetime of the browser visit
// and is discarded on reset, expiry, or process exit.
//
// Dependency rule: session imports flow only. It never imports api or ai.
package session

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/nyashahama/decision-compass-backend/internal/flow"
)

// ErrNotFound is returned when no live session matches the id or token.
// Expired and explicitly deleted sessions are indistinguishable from ones
// that never existed.
var ErrNotFound = errors.New("session: not found")

// Store holds all live sessions, indexed by id and by anon token.
type Store struct {
	mu      sync.RWMutex
	byID    map[uuid.UUID]*flow.Session
	byToken map[string]uuid.UUID

	ttl    time.Duration
	logger *slog.Logger
}

// NewStore creates an empty registry. Sessions idle longer than ttl are
// removed by the janitor (see StartJanitor).
func NewStore(ttl time.Duration, logger *slog.Logger) *Store {
	if ttl <= 0 {
		ttl = 30 * time.Minute
	}
	return &Store{
		byID:    make(map[uuid.UUID]*flow.Session),
		byToken: make(map[string]uuid.UUID),
		ttl:     ttl,
		logger:  logger,
	}
}

// Create mints a new session with a fresh id and a cryptographically
// random anon token. The token is the only credential for the session —
// it is returned to the browser once and sent back on every request.
func (st *Store) Create() (*flow.Session, error) {
	tokenBytes := make([]byte, 32)
	if _, err := rand.Read(tokenBytes); err != nil {
		return nil, fmt.Errorf("session: generate anon token: %w", err)
	}
	token := hex.EncodeToString(tokenBytes)

	s := flow.NewSession(uuid.New(), token)

	st.mu.Lock()
	defer st.mu.Unlock()
	st.byID[s.ID] = s
	st.byToken[token] = s.ID
	return s, nil
}

// GetByToken resolves the anon token to its live session.
func (st *Store) GetByToken(token string) (*flow.Session, error) {
	st.mu.RLock()
	defer st.mu.RUnlock()
	id, ok := st.byToken[token]
	if !ok {
		return nil, ErrNotFound
	}
	return st.byID[id], nil
}

// GetByID looks a session up by its id.
func (st *Store) GetByID(id uuid.UUID) (*flow.Session, error) {
	st.mu.RLock()
	defer st.mu.RUnlock()
	s, ok := st.byID[id]
	if !ok {
		return nil, ErrNotFound
	}
	return s, nil
}

// Delete removes a session. Deleting an unknown id is a no-op.
func (st *Store) Delete(id uuid.UUID) {
	st.mu.Lock()
	defer st.mu.Unlock()
	s, ok := st.byID[id]
	if !ok {
		return
	}
	delete(st.byID, id)
	delete(st.byToken, s.Token)
}

// Len reports the number of live sessions.
func (st *Store) Len() int {
	st.mu.RLock()
	defer st.mu.RUnlock()
	return len(st.byID)
}

// ─── JANITOR ─────────────────────────────────────────────────────────────────

// StartJanitor sweeps idle sessions every interval until ctx is done.
// Call it in a goroutine from main:
//
//	go store.StartJanitor(ctx, time.Minute)
func (st *Store) StartJanitor(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		interval = time.Minute
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	st.logger.Info("session: janitor started", "ttl", st.ttl, "interval", interval)
	for {
		select {
		case <-ctx.Done():
			st.logger.Info("session: janitor stopped")
			return
		case <-ticker.C:
			if n := st.sweep(time.Now()); n > 0 {
				st.logger.Info("session: swept idle sessions", "count", n)
			}
		}
	}
}

// sweep removes sessions whose last activity is older than ttl and
// returns how many were removed.
func (st *Store) sweep(now time.Time) int {
	// Collect candidates under RLock; LastActive takes the session lock
	// so the store lock must not be held exclusively while calling it.
	st.mu.RLock()
	var expired []uuid.UUID
	for id, s := range st.byID {
		if now.Sub(s.LastActive()) > st.ttl {
			expired = append(expired, id)
		}
	}
	st.mu.RUnlock()

	for _, id := range expired {
		st.Delete(id)
	}
	return len(expired)
}
