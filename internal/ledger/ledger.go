// Package ledger decides whether a billable action is permitted and records
// the cost. It is the ONLY component allowed to change a basic account's
// credit balance — no other code path may touch it.
//
// THE CONTRACT (per billable action):
//   - elite tier     → always granted, no mutation. The stored number on an
//     elite account is display convention, never consulted.
//   - balance short  → denied, no mutation. Denial is a normal boolean
//     outcome, not an error, and it is idempotent.
//   - otherwise      → decrement, persist the updated user as the current
//     session, and mirror the new balance into the Directory entry with the
//     same id (if present) so a later re-authentication sees it.
//
// The original frontend ran this check-then-act on a single-threaded event
// loop. HTTP handlers are concurrent, so here the whole sequence holds a
// mutex — the "never negative" invariant must survive simultaneous requests.
package ledger

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/ltoupin/nexus-console/internal/apperror"
	"github.com/ltoupin/nexus-console/internal/model"
	"github.com/ltoupin/nexus-console/internal/repository"
	"github.com/ltoupin/nexus-console/internal/session"
)

// Action names the billable operations, used as keys of the cost table.
type Action string

const (
	ActionChat   Action = "chat"
	ActionLens   Action = "lens"
	ActionVoice  Action = "voice"
	ActionCanvas Action = "canvas"
)

// Costs maps each billable action to its credit price. Prices are product
// configuration, not code — the zero map is invalid, use DefaultCosts or
// build one from config.
type Costs map[Action]int

// DefaultCosts returns the standard pricing table.
func DefaultCosts() Costs {
	return Costs{
		ActionChat:   1,
		ActionLens:   1,
		ActionVoice:  2,
		ActionCanvas: 4,
	}
}

// Ledger performs entitlement checks and balance mutations.
type Ledger struct {
	sessions *session.Store
	users    repository.UserRepository
	costs    Costs
	logger   *slog.Logger

	// Guards the whole check-then-decrement sequence. Without it two
	// concurrent requests could both pass the balance check and drive a
	// basic account negative.
	mu sync.Mutex
}

// New creates a Ledger. The users repository is the Directory used for
// credit mirroring; sessions is where the authoritative current user lives.
func New(sessions *session.Store, users repository.UserRepository, costs Costs, logger *slog.Logger) *Ledger {
	if costs == nil {
		costs = DefaultCosts()
	}
	return &Ledger{
		sessions: sessions,
		users:    users,
		costs:    costs,
		logger:   logger,
	}
}

// Cost returns the price of an action. Unknown actions are a programming
// error and fail fast.
func (l *Ledger) Cost(action Action) (int, error) {
	cost, ok := l.costs[action]
	if !ok {
		return 0, apperror.ValidationFailed("action", fmt.Sprintf("unknown billable action %q", action))
	}
	return cost, nil
}

// TryDeduct checks and, if permitted, deducts amount from the user's balance.
//
// The user argument is mutated in place on a grant so callers see the new
// balance. amount must be positive — zero and negative amounts have no
// defined product behaviour, so they are rejected rather than silently
// accepted.
func (l *Ledger) TryDeduct(ctx context.Context, user *model.User, amount int) (bool, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.deductLocked(ctx, user, amount)
}

// deductLocked is the check-then-decrement sequence. Callers hold l.mu.
func (l *Ledger) deductLocked(ctx context.Context, user *model.User, amount int) (bool, error) {
	if user == nil {
		return false, apperror.Unauthorized("no authenticated user")
	}
	if amount <= 0 {
		return false, apperror.ValidationFailed("amount",
			fmt.Sprintf("deduction amount must be positive, got %d", amount))
	}

	// Elite bypasses the balance entirely; the stored number is never
	// decremented and never authoritative.
	if user.Elite() {
		return true, nil
	}

	if user.Credits < amount {
		l.logger.Info("deduction denied",
			slog.String("userID", user.ID),
			slog.Int("amount", amount),
			slog.Int("balance", user.Credits),
		)
		return false, nil
	}

	user.Credits -= amount

	// Persist the updated user as the current session record.
	if err := l.sessions.Update(ctx, user); err != nil {
		// Roll the in-memory decrement back: the deduction is a single
		// logical step, there is no partial state.
		user.Credits += amount
		return false, fmt.Errorf("ledger: persisting session after deduction: %w", err)
	}

	// Mirror into the Directory entry matching user.ID, if present. An
	// account missing from the Directory is tolerated — mirroring exists
	// only so a later re-authentication observes the spend.
	if err := l.users.UpdateCredits(ctx, user.ID, user.Credits); err != nil {
		if !errors.Is(err, apperror.ErrNotFound) {
			l.logger.Error("failed to mirror credits into directory",
				slog.String("userID", user.ID),
				slog.String("error", err.Error()),
			)
		}
	}

	l.logger.Info("credits deducted",
		slog.String("userID", user.ID),
		slog.Int("amount", amount),
		slog.Int("balance", user.Credits),
	)
	return true, nil
}

// Deduct charges the current session user for the named action. Returns the
// (possibly updated) user alongside the grant decision so panel handlers
// can report the remaining balance.
func (l *Ledger) Deduct(ctx context.Context, action Action) (*model.User, bool, error) {
	cost, err := l.Cost(action)
	if err != nil {
		return nil, false, err
	}

	// The balance read has to happen under the same lock as the decrement,
	// or two simultaneous requests would both see the pre-spend balance.
	l.mu.Lock()
	defer l.mu.Unlock()

	user, ok := l.sessions.Current()
	if !ok {
		return nil, false, apperror.Unauthorized("no active session")
	}

	granted, err := l.deductLocked(ctx, user, cost)
	if err != nil {
		return nil, false, err
	}
	return user, granted, nil
}

// SetTier is the explicit administrative tier change. There is no payment
// confirmation flow wired to it — the external checkout page has no
// callback channel, so an operator (creator account) performs the upgrade.
//
// Granting elite pins the stored balance to the display sentinel; demoting
// to basic restores the standard starting balance.
func (l *Ledger) SetTier(ctx context.Context, userID string, tier model.Tier) (*model.User, error) {
	if !tier.Valid() {
		return nil, apperror.ValidationFailed("tier", fmt.Sprintf("unknown tier %q", tier))
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	credits := model.DefaultCredits
	if tier == model.TierElite {
		credits = model.UnlimitedCredits
	}

	if err := l.users.SetTier(ctx, userID, tier, credits); err != nil {
		return nil, fmt.Errorf("ledger: setting tier for user %s: %w", userID, err)
	}

	updated, err := l.users.GetByID(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("ledger: reloading user %s: %w", userID, err)
	}

	// If the changed account is the one currently signed in, the session
	// record must reflect the new tier immediately.
	if current, ok := l.sessions.Current(); ok && current.ID == userID {
		if err := l.sessions.Update(ctx, updated); err != nil {
			return nil, fmt.Errorf("ledger: refreshing session after tier change: %w", err)
		}
	}

	l.logger.Info("tier changed",
		slog.String("userID", userID),
		slog.String("tier", string(tier)),
	)
	return updated, nil
}
