package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"spendtrack/internal/auth"
	"spendtrack/internal/core"
	"spendtrack/internal/storage"
)

// AccountService handles registration, login and session lifecycle.
type AccountService struct {
	storage    *storage.SQLiteRepository
	bcryptCost int
	sessionTTL time.Duration
}

func NewAccountService(storage *storage.SQLiteRepository, bcryptCost int, sessionTTL time.Duration) *AccountService {
	return &AccountService{
		storage:    storage,
		bcryptCost: bcryptCost,
		sessionTTL: sessionTTL,
	}
}

// Register creates a new account. Returns core.ErrUsernameTaken on a
// duplicate username and policy errors for bad input.
func (s *AccountService) Register(ctx context.Context, username, password string) (core.Account, error) {
	username, err := auth.NormalizeUsername(username)
	if err != nil {
		return core.Account{}, err
	}
	if err := auth.ValidatePassword(password); err != nil {
		return core.Account{}, err
	}

	hash, err := auth.HashPassword(password, s.bcryptCost)
	if err != nil {
		return core.Account{}, fmt.Errorf("register: %w", err)
	}

	account, err := s.storage.CreateAccount(ctx, username, hash)
	if err != nil {
		return core.Account{}, err
	}
	return account, nil
}

// Login verifies credentials and opens a session, returning the session
// token. Any failure surfaces as core.ErrInvalidCredentials without telling
// whether the username or the password was wrong.
func (s *AccountService) Login(ctx context.Context, username, password string) (core.Account, string, error) {
	username, err := auth.NormalizeUsername(username)
	if err != nil {
		return core.Account{}, "", core.ErrInvalidCredentials
	}

	account, err := s.storage.GetAccountByUsername(ctx, username)
	if errors.Is(err, core.ErrNotFound) {
		auth.BurnVerification(password)
		return core.Account{}, "", core.ErrInvalidCredentials
	}
	if err != nil {
		return core.Account{}, "", fmt.Errorf("login: %w", err)
	}

	if !auth.CheckPassword(password, account.PasswordHash) {
		return core.Account{}, "", core.ErrInvalidCredentials
	}

	token, err := auth.GenerateSessionToken()
	if err != nil {
		return core.Account{}, "", fmt.Errorf("login: %w", err)
	}
	if err := s.storage.CreateSession(ctx, token, account.ID, time.Now().Add(s.sessionTTL)); err != nil {
		return core.Account{}, "", fmt.Errorf("login: %w", err)
	}

	slog.InfoContext(ctx, "Session opened", "account_id", account.ID)
	return account, token, nil
}

// Authenticate resolves a session token to its account.
func (s *AccountService) Authenticate(ctx context.Context, token string) (core.Account, error) {
	if token == "" {
		return core.Account{}, core.ErrNotFound
	}
	return s.storage.GetSessionAccount(ctx, token)
}

// Logout invalidates the session token server-side.
func (s *AccountService) Logout(ctx context.Context, token string) error {
	if token == "" {
		return nil
	}
	return s.storage.DeleteSession(ctx, token)
}

// SessionTTL exposes the configured session lifetime for cookie expiry.
func (s *AccountService) SessionTTL() time.Duration {
	return s.sessionTTL
}

// RunSessionSweeper periodically removes expired sessions until ctx is done.
func (s *AccountService) RunSessionSweeper(ctx context.Context, interval time.Duration) error {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			n, err := s.storage.DeleteExpiredSessions(ctx)
			if err != nil {
				slog.ErrorContext(ctx, "Session sweep failed", "error", err)
				continue
			}
			if n > 0 {
				slog.InfoContext(ctx, "Expired sessions removed", "count", n)
			}
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}
