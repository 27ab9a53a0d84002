// Package repository defines the storage interfaces the rest of the app
// programs against. Concrete implementations live in subpackages (sqlite).
//
// The persisted state has exactly two shapes:
//
//   - the Directory: every known account, keyed by id. It exists so that a
//     credit deduction made during one session is visible when the same
//     account authenticates again later.
//   - a flat key-value area: the current session record and the preference
//     keys. Values are opaque strings; the owning store decides the format.
package repository

import (
	"context"

	"github.com/ltoupin/nexus-console/internal/model"
)

// Well-known keys in the key-value area.
const (
	KeySessionUser = "session-user"
	KeyTheme       = "theme-preference"
	KeyLanguage    = "language-preference"
)

type ListOptions struct {
	Limit  int
	Offset int
}

// UserRepository is the account Directory.
type UserRepository interface {
	Create(ctx context.Context, user *model.User) error
	GetByID(ctx context.Context, id string) (*model.User, error)
	GetByEmail(ctx context.Context, email string) (*model.User, error)
	List(ctx context.Context, opts ListOptions) ([]model.User, error)
	Update(ctx context.Context, user *model.User) error

	// UpdateCredits overwrites the stored balance for the given account.
	// Returns apperror.ErrNotFound if no such account exists — callers that
	// only mirror state (the ledger) treat that as a no-op.
	UpdateCredits(ctx context.Context, id string, credits int) error

	// SetTier changes the account class and its stored balance together,
	// so an elite grant and its display sentinel land atomically.
	SetTier(ctx context.Context, id string, tier model.Tier, credits int) error
}

// KVRepository is the flat key-value area. Get reports presence explicitly:
// an absent key is not an error, it is a normal state every reader must
// handle (fresh install, cleared session).
type KVRepository interface {
	Get(ctx context.Context, key string) (value string, ok bool, err error)
	Set(ctx context.Context, key, value string) error
	Delete(ctx context.Context, key string) error
}
