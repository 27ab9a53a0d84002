package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/rs/xid"

	"github.com/ltoupin/nexus-console/internal/apperror"
	"github.com/ltoupin/nexus-console/internal/model"
	"github.com/ltoupin/nexus-console/internal/repository"
)

// compile-time check that *DB implements repository.UserRepository
var _ repository.UserRepository = (*DB)(nil)

const userColumns = "id, username, email, tier, credits, avatar_url, password_hash, created_at, updated_at"

// Create inserts a new account. The repository generates the ID and
// timestamps: callers hand in a partially-filled model and the repo
// completes it in place.
func (db *DB) Create(ctx context.Context, user *model.User) error {
	now := time.Now()
	user.ID = xid.New().String()
	user.CreatedAt = now
	user.UpdatedAt = now

	_, err := db.conn.ExecContext(ctx,
		`INSERT INTO users (`+userColumns+`)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		user.ID,
		user.Username,
		user.Email,
		string(user.Tier),
		user.Credits,
		user.Avatar,
		user.PasswordHash,
		user.CreatedAt,
		user.UpdatedAt,
	)
	if err != nil {
		// The UNIQUE(email) constraint is the only one a caller can trip.
		if strings.Contains(err.Error(), "UNIQUE") {
			return apperror.Conflict("user", user.Email)
		}
		return fmt.Errorf("sqlite: inserting user (email=%s): %w", user.Email, err)
	}

	return nil
}

// GetByID retrieves an account by its internal ID.
// Returns apperror.ErrNotFound if no account exists with that ID.
func (db *DB) GetByID(ctx context.Context, id string) (*model.User, error) {
	return db.getUser(ctx, "id = ?", id)
}

// GetByEmail retrieves an account by email. The column is COLLATE NOCASE,
// so the lookup itself is case-insensitive.
func (db *DB) GetByEmail(ctx context.Context, email string) (*model.User, error) {
	return db.getUser(ctx, "email = ?", email)
}

func (db *DB) getUser(ctx context.Context, where string, arg any) (*model.User, error) {
	var (
		u    model.User
		tier string
	)

	err := db.conn.QueryRowContext(ctx,
		`SELECT `+userColumns+` FROM users WHERE `+where, arg,
	).Scan(
		&u.ID,
		&u.Username,
		&u.Email,
		&tier,
		&u.Credits,
		&u.Avatar,
		&u.PasswordHash,
		&u.CreatedAt,
		&u.UpdatedAt,
	)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, apperror.NotFound("user", fmt.Sprint(arg))
		}
		return nil, fmt.Errorf("sqlite: getting user (%s %v): %w", where, arg, err)
	}

	u.Tier = model.Tier(tier)
	return &u, nil
}

// List returns accounts ordered by creation time, newest first.
func (db *DB) List(ctx context.Context, opts repository.ListOptions) ([]model.User, error) {
	limit := opts.Limit
	if limit <= 0 {
		limit = 50
	}

	rows, err := db.conn.QueryContext(ctx,
		`SELECT `+userColumns+` FROM users
		 ORDER BY created_at DESC LIMIT ? OFFSET ?`,
		limit, opts.Offset,
	)
	if err != nil {
		return nil, fmt.Errorf("sqlite: listing users: %w", err)
	}
	defer rows.Close()

	users := []model.User{}
	for rows.Next() {
		var (
			u    model.User
			tier string
		)
		if err := rows.Scan(
			&u.ID, &u.Username, &u.Email, &tier, &u.Credits,
			&u.Avatar, &u.PasswordHash, &u.CreatedAt, &u.UpdatedAt,
		); err != nil {
			return nil, fmt.Errorf("sqlite: scanning user row: %w", err)
		}
		u.Tier = model.Tier(tier)
		users = append(users, u)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("sqlite: iterating users: %w", err)
	}

	return users, nil
}

// Update overwrites the mutable profile fields of an existing account.
func (db *DB) Update(ctx context.Context, user *model.User) error {
	user.UpdatedAt = time.Now()

	res, err := db.conn.ExecContext(ctx,
		`UPDATE users SET username = ?, email = ?, avatar_url = ?, password_hash = ?, updated_at = ?
		 WHERE id = ?`,
		user.Username,
		user.Email,
		user.Avatar,
		user.PasswordHash,
		user.UpdatedAt,
		user.ID,
	)
	if err != nil {
		return fmt.Errorf("sqlite: updating user %s: %w", user.ID, err)
	}

	return requireRow(res, user.ID)
}

// UpdateCredits overwrites the stored balance for the given account.
// This is the Directory mirror written by the entitlement ledger after a
// successful deduction — lookup is by exact id equality.
func (db *DB) UpdateCredits(ctx context.Context, id string, credits int) error {
	res, err := db.conn.ExecContext(ctx,
		`UPDATE users SET credits = ?, updated_at = ? WHERE id = ?`,
		credits, time.Now(), id,
	)
	if err != nil {
		return fmt.Errorf("sqlite: updating credits for user %s: %w", id, err)
	}

	return requireRow(res, id)
}

// SetTier changes the account class and balance in one statement.
func (db *DB) SetTier(ctx context.Context, id string, tier model.Tier, credits int) error {
	res, err := db.conn.ExecContext(ctx,
		`UPDATE users SET tier = ?, credits = ?, updated_at = ? WHERE id = ?`,
		string(tier), credits, time.Now(), id,
	)
	if err != nil {
		return fmt.Errorf("sqlite: setting tier for user %s: %w", id, err)
	}

	return requireRow(res, id)
}

// requireRow converts a zero-row UPDATE into a NotFound error.
func requireRow(res sql.Result, id string) error {
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("sqlite: rows affected for user %s: %w", id, err)
	}
	if n == 0 {
		return apperror.NotFound("user", id)
	}
	return nil
}
