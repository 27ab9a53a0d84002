// Package model defines the data structures used throughout the application.
// In Go, we use structs to represent our data — plain values with json tags,
// no behaviour beyond a few small helpers. All business rules live in the
// service and ledger layers.
package model

import (
	"strings"
	"time"
)

// Tier is the account class. It determines how the entitlement ledger treats
// a user: basic accounts spend credits per billable action, elite accounts
// bypass the balance check entirely.
type Tier string

const (
	TierBasic Tier = "basic"
	TierElite Tier = "elite"
)

// Valid reports whether t is one of the known tiers.
func (t Tier) Valid() bool {
	return t == TierBasic || t == TierElite
}

const (
	// DefaultCredits is the starting balance for a new basic account.
	DefaultCredits = 50

	// UnlimitedCredits is the display sentinel stored on elite accounts.
	// It is presentation convention only — access control never reads it.
	// The frontend renders it as "∞".
	UnlimitedCredits = 999999
)

// User represents a registered account.
//
// WHY Credits int AND Tier?
// The stored balance is only authoritative for basic accounts. Elite accounts
// keep whatever number is stored (conventionally UnlimitedCredits) and the
// ledger never decrements it. The invariant the ledger maintains is:
// Credits >= 0 for basic users after every operation.
type User struct {
	ID           string    `json:"id"`
	Username     string    `json:"username"`
	Email        string    `json:"email"`
	Tier         Tier      `json:"tier"`
	Credits      int       `json:"credits"`
	Avatar       string    `json:"avatar"` // profile picture URL, opaque to the core
	PasswordHash string    `json:"-"`      // never serialized to clients or the session record
	CreatedAt    time.Time `json:"createdAt"`
	UpdatedAt    time.Time `json:"updatedAt"`
}

// Elite reports whether the user bypasses credit checks.
func (u *User) Elite() bool {
	return u.Tier == TierElite
}

// EmailMatches compares the user's email against another address
// case-insensitively. Email is the privileged-account match key, so the
// comparison must not be byte-exact.
func (u *User) EmailMatches(email string) bool {
	return strings.EqualFold(u.Email, email)
}
