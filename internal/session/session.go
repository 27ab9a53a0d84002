// Package session owns the single current authenticated user.
//
// LIFECYCLE:
// Hydrate once at startup (reads the persisted record), Login on successful
// authentication, Logout to destroy. At most one session exists per running
// instance — this is a locally-hosted console, not a multi-tenant service.
//
// The store is the only writer of the persisted session record. Other
// components observe changes through Subscribe rather than polling storage;
// this replaces the implicit re-render triggers of the original frontend
// with an explicit notification mechanism.
package session

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"

	"github.com/ltoupin/nexus-console/internal/model"
	"github.com/ltoupin/nexus-console/internal/repository"
)

// Store holds the current session and persists it in the key-value area
// under repository.KeySessionUser.
type Store struct {
	kv     repository.KVRepository
	logger *slog.Logger

	mu          sync.RWMutex
	current     *model.User
	subscribers []func(*model.User)
}

// NewStore creates a session store. Call Hydrate before serving requests.
func NewStore(kv repository.KVRepository, logger *slog.Logger) *Store {
	return &Store{
		kv:     kv,
		logger: logger,
	}
}

// Hydrate reads the persisted session record once at startup. A well-formed
// record becomes the current session; anything else — absent key, corrupt
// JSON — leaves the store empty. Malformed persisted state must never crash
// the process, so parse failures are logged and swallowed.
func (s *Store) Hydrate(ctx context.Context) error {
	raw, ok, err := s.kv.Get(ctx, repository.KeySessionUser)
	if err != nil {
		return fmt.Errorf("session: reading persisted record: %w", err)
	}
	if !ok {
		return nil
	}

	var user model.User
	if err := json.Unmarshal([]byte(raw), &user); err != nil || user.ID == "" {
		// Fails soft: treat as absent. The stale record is cleared so the
		// next start doesn't re-parse garbage.
		s.logger.Warn("discarding malformed session record")
		if err := s.kv.Delete(ctx, repository.KeySessionUser); err != nil {
			s.logger.Warn("failed to clear malformed session record",
				slog.String("error", err.Error()),
			)
		}
		return nil
	}

	s.mu.Lock()
	s.current = &user
	s.mu.Unlock()

	s.logger.Info("session hydrated",
		slog.String("userID", user.ID),
		slog.String("username", user.Username),
	)
	return nil
}

// Login establishes the session and persists it.
func (s *Store) Login(ctx context.Context, user *model.User) error {
	if user == nil || user.ID == "" {
		return fmt.Errorf("session: login requires a user with an ID")
	}

	if err := s.persist(ctx, user); err != nil {
		return err
	}

	s.mu.Lock()
	copied := *user
	s.current = &copied
	subs := append([]func(*model.User){}, s.subscribers...)
	s.mu.Unlock()

	s.logger.Info("session established", slog.String("userID", user.ID))
	notify(subs, &copied)
	return nil
}

// Logout clears the session and its persisted record, then notifies
// subscribers with nil. Preferences are owned elsewhere and survive this.
func (s *Store) Logout(ctx context.Context) error {
	if err := s.kv.Delete(ctx, repository.KeySessionUser); err != nil {
		return fmt.Errorf("session: clearing persisted record: %w", err)
	}

	s.mu.Lock()
	had := s.current != nil
	s.current = nil
	subs := append([]func(*model.User){}, s.subscribers...)
	s.mu.Unlock()

	if had {
		s.logger.Info("session destroyed")
	}
	notify(subs, nil)
	return nil
}

// Current returns a copy of the active user, or (nil, false) when no
// session exists. The copy keeps callers from mutating shared state — the
// ledger is the only component allowed to change credits.
func (s *Store) Current() (*model.User, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.current == nil {
		return nil, false
	}
	copied := *s.current
	return &copied, true
}

// Update replaces the in-memory user and re-persists the record. Used by
// the ledger after a deduction — the session record must always reflect the
// authoritative balance.
func (s *Store) Update(ctx context.Context, user *model.User) error {
	if user == nil || user.ID == "" {
		return fmt.Errorf("session: update requires a user with an ID")
	}

	if err := s.persist(ctx, user); err != nil {
		return err
	}

	s.mu.Lock()
	copied := *user
	s.current = &copied
	subs := append([]func(*model.User){}, s.subscribers...)
	s.mu.Unlock()

	notify(subs, &copied)
	return nil
}

// Subscribe registers a callback invoked after every session change. The
// callback receives the new user, or nil on logout. Callbacks run outside
// the store's lock, on the mutating goroutine.
func (s *Store) Subscribe(fn func(*model.User)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.subscribers = append(s.subscribers, fn)
}

func (s *Store) persist(ctx context.Context, user *model.User) error {
	raw, err := json.Marshal(user)
	if err != nil {
		return fmt.Errorf("session: serializing user %s: %w", user.ID, err)
	}
	if err := s.kv.Set(ctx, repository.KeySessionUser, string(raw)); err != nil {
		return fmt.Errorf("session: persisting record: %w", err)
	}
	return nil
}

func notify(subs []func(*model.User), user *model.User) {
	for _, fn := range subs {
		fn(user)
	}
}
