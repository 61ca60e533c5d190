// Package session keeps the signed-in user and their token.
package session

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"byronhub/internal/model"
	"byronhub/internal/storage"

	"github.com/golang-jwt/jwt/v5"
	"github.com/rs/zerolog"
)

// Roles with manager rights.
const (
	RoleManager        = "Manager"
	RoleManagerTeacher = "Manager & Teacher"
)

var (
	// ErrNotLoggedIn is returned by operations that need a user.
	ErrNotLoggedIn = errors.New("not logged in")
	// ErrTokenExpired is returned for a token past its exp claim.
	ErrTokenExpired = errors.New("token expired")
)

// User is the identity carried in the token payload.
type User struct {
	ID    model.ID `json:"id"`
	Name  string   `json:"name"`
	Email string   `json:"email"`
	Role  string   `json:"role"`
}

// IsManager reports whether the user may manage spaces, people and bookings.
func (u User) IsManager() bool {
	return u.Role == RoleManager || u.Role == RoleManagerTeacher
}

type tokenClaims struct {
	UserID model.ID `json:"id"`
	Name   string   `json:"name"`
	Email  string   `json:"email"`
	Role   string   `json:"role"`
	jwt.RegisteredClaims
}

// DecodeToken reads the user out of a JWT without checking its signature.
// The backend verifies every request, so the client only needs the claims.
func DecodeToken(token string, now time.Time) (User, error) {
	var claims tokenClaims
	if _, _, err := jwt.NewParser().ParseUnverified(token, &claims); err != nil {
		return User{}, fmt.Errorf("decode token: %w", err)
	}
	if claims.ExpiresAt != nil && !now.Before(claims.ExpiresAt.Time) {
		return User{}, ErrTokenExpired
	}
	return User{ID: claims.UserID, Name: claims.Name, Email: claims.Email, Role: claims.Role}, nil
}

// Session is the per-process login state, persisted under the token and
// user keys.
type Session struct {
	store  storage.Store
	logger *zerolog.Logger
	now    func() time.Time

	mu    sync.RWMutex
	token string
	user  *User
}

// New creates a signed-out session.
func New(store storage.Store, logger *zerolog.Logger) *Session {
	if logger == nil {
		nop := zerolog.Nop()
		logger = &nop
	}
	l := logger.With().Str("component", "session").Logger()
	return &Session{store: store, logger: &l, now: time.Now}
}

// Load restores a stored token. A stored token that no longer decodes is
// dropped and the session stays signed out.
func (s *Session) Load(ctx context.Context) error {
	var token string
	found, err := s.store.Get(ctx, storage.KeyToken, &token)
	if err != nil {
		return fmt.Errorf("load token: %w", err)
	}
	if !found || token == "" {
		return nil
	}

	user, err := DecodeToken(token, s.now())
	if err != nil {
		s.logger.Warn().Err(err).Msg("discarding stored token")
		return s.Logout(ctx)
	}

	s.mu.Lock()
	s.token = token
	s.user = &user
	s.mu.Unlock()
	return nil
}

// Login decodes token and stores it with the user it carries.
func (s *Session) Login(ctx context.Context, token string) (User, error) {
	user, err := DecodeToken(token, s.now())
	if err != nil {
		return User{}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.store.Set(ctx, storage.KeyToken, token); err != nil {
		return User{}, fmt.Errorf("store token: %w", err)
	}
	if err := s.store.Set(ctx, storage.KeyUser, user); err != nil {
		return User{}, fmt.Errorf("store user: %w", err)
	}
	s.token = token
	s.user = &user
	s.logger.Info().Str("user_id", user.ID.String()).Str("role", user.Role).Msg("logged in")
	return user, nil
}

// Logout forgets the user and removes everything tied to them from the store.
func (s *Session) Logout(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.token = ""
	s.user = nil

	var errs []error
	for _, key := range []string{
		storage.KeyToken,
		storage.KeyUser,
		storage.KeySelectedRooms,
		storage.KeyInitialTime,
		storage.KeyAvailableRooms,
	} {
		if err := s.store.Remove(ctx, key); err != nil {
			errs = append(errs, fmt.Errorf("remove %s: %w", key, err))
		}
	}
	return errors.Join(errs...)
}

// User returns the signed-in user.
func (s *Session) User() (User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.user == nil {
		return User{}, ErrNotLoggedIn
	}
	return *s.user, nil
}

// Token returns the bearer token, empty when signed out.
func (s *Session) Token() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.token
}

// IsManager reports whether the signed-in user has manager rights.
func (s *Session) IsManager() bool {
	u, err := s.User()
	return err == nil && u.IsManager()
}
