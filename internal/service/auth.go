// Package service — authentication business logic.
//
// AuthService sits between the HTTP handlers and the repository/auth
// utilities:
//
//	AuthHandler (HTTP) → AuthService (business rules) → UserRepository (DB)
//	                   ↘ TokenService (JWT), session.Store
//
// It owns the account rules: new accounts start on the basic tier with the
// starting credit balance, emails are unique, and a successful login both
// issues a JWT and activates the in-process session.
package service

import (
	"context"
	"fmt"
	"log/slog"
	"net/mail"
	"net/url"
	"strings"

	"github.com/ltoupin/nexus-console/internal/apperror"
	"github.com/ltoupin/nexus-console/internal/auth"
	"github.com/ltoupin/nexus-console/internal/model"
	"github.com/ltoupin/nexus-console/internal/repository"
	"github.com/ltoupin/nexus-console/internal/session"
)

const (
	MaxUsernameLength = 50
	MinPasswordLength = 6
)

// AuthService handles the authentication business logic.
type AuthService struct {
	users     repository.UserRepository
	tokens    *auth.TokenService
	passwords *auth.PasswordService
	sessions  *session.Store
	logger    *slog.Logger
}

// NewAuthService creates an AuthService with all required dependencies.
// Call this in server.go when wiring the dependency graph.
func NewAuthService(
	users repository.UserRepository,
	tokens *auth.TokenService,
	passwords *auth.PasswordService,
	sessions *session.Store,
	logger *slog.Logger,
) *AuthService {
	return &AuthService{
		users:     users,
		tokens:    tokens,
		passwords: passwords,
		sessions:  sessions,
		logger:    logger,
	}
}

// AuthResult bundles the user record and the issued JWT so the handler can
// set the cookie and respond in one step.
type AuthResult struct {
	User  *model.User
	Token string
}

// Register creates a new account.
//
// New users always start on the basic tier with the default credit
// balance. The avatar is derived from the username so every account gets
// a stable generated picture without an upload flow.
func (s *AuthService) Register(ctx context.Context, username, email, password string) (*AuthResult, error) {
	username = strings.TrimSpace(username)
	email = strings.TrimSpace(email)

	if username == "" {
		return nil, apperror.ValidationFailed("username", "username is required")
	}
	if len(username) > MaxUsernameLength {
		return nil, apperror.ValidationFailed("username",
			fmt.Sprintf("username must be %d characters or less", MaxUsernameLength))
	}
	if _, err := mail.ParseAddress(email); err != nil {
		return nil, apperror.ValidationFailed("email", "a valid email address is required")
	}
	if len(password) < MinPasswordLength {
		return nil, apperror.ValidationFailed("password",
			fmt.Sprintf("password must be at least %d characters", MinPasswordLength))
	}

	hash, err := s.passwords.Hash(password)
	if err != nil {
		return nil, apperror.ValidationFailed("password", "password cannot be hashed")
	}

	user := &model.User{
		Username:     username,
		Email:        email,
		Tier:         model.TierBasic,
		Credits:      model.DefaultCredits,
		Avatar:       avatarFor(username),
		PasswordHash: hash,
	}

	if err := s.users.Create(ctx, user); err != nil {
		return nil, err
	}

	s.logger.Info("user registered",
		slog.String("userID", user.ID),
		slog.String("username", user.Username),
	)

	return s.openSession(ctx, user)
}

// Login authenticates an email/password pair.
//
// The "user not found" and "wrong password" cases return the same error
// so the response doesn't reveal which emails have accounts.
func (s *AuthService) Login(ctx context.Context, email, password string) (*AuthResult, error) {
	email = strings.TrimSpace(email)
	if email == "" || password == "" {
		return nil, apperror.Unauthorized("invalid email or password")
	}

	user, err := s.users.GetByEmail(ctx, email)
	if err != nil {
		return nil, apperror.Unauthorized("invalid email or password")
	}

	if user.PasswordHash == "" {
		// OAuth-only account — no password to check
		return nil, apperror.Unauthorized("invalid email or password")
	}

	if err := s.passwords.Verify(user.PasswordHash, password); err != nil {
		return nil, apperror.Unauthorized("invalid email or password")
	}

	s.logger.Info("user logged in", slog.String("userID", user.ID))

	return s.openSession(ctx, user)
}

// LoginOrRegisterGitHub handles the GitHub OAuth callback.
//
// After the handler exchanges the GitHub code for a profile, this method
// finds the directory account with the profile's email or creates one
// (basic tier, default credits). OAuth accounts carry no password hash.
func (s *AuthService) LoginOrRegisterGitHub(ctx context.Context, ghUser *auth.GitHubUser) (*AuthResult, error) {
	if ghUser == nil {
		return nil, fmt.Errorf("service/auth: GitHub user must not be nil")
	}

	email := strings.TrimSpace(ghUser.Email)
	if email == "" {
		// GitHub hides the email when the user opts out of sharing it.
		// Fall back to the noreply address GitHub documents.
		email = fmt.Sprintf("%d+%s@users.noreply.github.com", ghUser.ID, ghUser.Login)
	}

	user, err := s.users.GetByEmail(ctx, email)
	if err != nil {
		user = &model.User{
			Username: ghUser.Login,
			Email:    email,
			Tier:     model.TierBasic,
			Credits:  model.DefaultCredits,
			Avatar:   ghUser.AvatarURL,
		}
		if user.Avatar == "" {
			user.Avatar = avatarFor(ghUser.Login)
		}
		if err := s.users.Create(ctx, user); err != nil {
			return nil, fmt.Errorf("service/auth: creating GitHub user %q: %w", ghUser.Login, err)
		}
		s.logger.Info("user registered via GitHub",
			slog.String("userID", user.ID),
			slog.String("login", ghUser.Login),
		)
	}

	return s.openSession(ctx, user)
}

// Logout closes the active session. The JWT cookie is cleared by the
// handler; logging out does not touch saved preferences.
func (s *AuthService) Logout(ctx context.Context) error {
	return s.sessions.Logout(ctx)
}

// GetUserByID returns the user for the given internal ID. Used by the
// /api/me handler after the middleware extracts the userID from the JWT.
func (s *AuthService) GetUserByID(ctx context.Context, id string) (*model.User, error) {
	if id == "" {
		return nil, fmt.Errorf("service/auth: user ID must not be empty")
	}

	user, err := s.users.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	return user, nil
}

// ValidateToken validates a JWT string and returns the userID it encodes.
// Thin delegation so callers only import the service package.
func (s *AuthService) ValidateToken(tokenStr string) (string, error) {
	userID, err := s.tokens.Validate(tokenStr)
	if err != nil {
		return "", fmt.Errorf("service/auth: %w", err)
	}
	return userID, nil
}

// openSession activates the session for an authenticated user and issues
// the JWT.
func (s *AuthService) openSession(ctx context.Context, user *model.User) (*AuthResult, error) {
	if err := s.sessions.Login(ctx, user); err != nil {
		return nil, fmt.Errorf("service/auth: opening session for user %s: %w", user.ID, err)
	}

	token, err := s.tokens.Generate(user.ID)
	if err != nil {
		return nil, fmt.Errorf("service/auth: generating token for user %s: %w", user.ID, err)
	}

	return &AuthResult{
		User:  user,
		Token: token,
	}, nil
}

// avatarFor builds a deterministic generated-avatar URL from the username.
func avatarFor(username string) string {
	return "https://api.dicebear.com/7.x/bottts/svg?seed=" + url.QueryEscape(username)
}
