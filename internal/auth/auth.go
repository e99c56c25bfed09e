// Package auth logs the user in and out of the shop.
package auth

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	carterrors "github.com/abgdnv/storefront/internal/errors"
	"github.com/abgdnv/storefront/internal/session"
	"github.com/go-playground/validator/v10"
)

// Client exchanges credentials with the backend.
type Client interface {
	Login(ctx context.Context, email, password string) (string, error)
	Register(ctx context.Context, email, password string) error
}

// SessionStore is where a successful login ends up.
type SessionStore interface {
	Get() (session.Session, bool)
	Set(s session.Session) error
	Clear() error
}

// Credentials is the login and registration form.
type Credentials struct {
	Email    string `validate:"required,email"`
	Password string `validate:"required,min=6"`
}

type Service struct {
	client   Client
	sessions SessionStore
	validate *validator.Validate
	logger   *slog.Logger
}

func NewService(client Client, sessions SessionStore, logger *slog.Logger) *Service {
	return &Service{
		client:   client,
		sessions: sessions,
		validate: validator.New(),
		logger:   logger.With("component", "auth"),
	}
}

// Login exchanges credentials for a token and stores the new session.
// The role is only a display hint read from the token.
func (s *Service) Login(ctx context.Context, email, password string) (session.Session, error) {
	email = strings.TrimSpace(email)
	if email == "" || password == "" {
		return session.Session{}, fmt.Errorf("%w: email and password are required", carterrors.ErrInvalidArgument)
	}
	token, err := s.client.Login(ctx, email, password)
	if err != nil {
		s.logger.WarnContext(ctx, "Login failed", "email", email, "error", err)
		return session.Session{}, fmt.Errorf("login: %w", err)
	}
	sess := session.Session{Token: token, Identity: email, Role: session.RoleFromToken(token)}
	if err := s.sessions.Set(sess); err != nil {
		return session.Session{}, err
	}
	s.logger.InfoContext(ctx, "Logged in", "email", email, "role", sess.Role)
	return sess, nil
}

// Register creates an account. It does not log in.
func (s *Service) Register(ctx context.Context, email, password string) error {
	in := Credentials{Email: strings.TrimSpace(email), Password: password}
	if err := s.validate.Struct(in); err != nil {
		return fmt.Errorf("%w: %v", carterrors.ErrInvalidArgument, err)
	}
	if err := s.client.Register(ctx, in.Email, in.Password); err != nil {
		s.logger.WarnContext(ctx, "Registration failed", "email", in.Email, "error", err)
		return fmt.Errorf("register: %w", err)
	}
	s.logger.InfoContext(ctx, "Registered", "email", in.Email)
	return nil
}

// Logout drops the local session. Logging out twice is fine.
func (s *Service) Logout() error {
	return s.sessions.Clear()
}

// Current returns the logged-in session, if any.
func (s *Service) Current() (session.Session, bool) {
	return s.sessions.Get()
}
