// Package auth authenticates users and manages their client sessions.
package auth

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"github.com/frogworks/storefront/internal/app/domain/session"
	"github.com/frogworks/storefront/internal/app/domain/user"
	"github.com/frogworks/storefront/internal/app/storage"
	"github.com/frogworks/storefront/internal/email"
	"github.com/frogworks/storefront/pkg/logger"
)

var (
	// ErrInvalidCredentials reports a failed username or password check.
	// Callers must not reveal which of the two was wrong.
	ErrInvalidCredentials = errors.New("invalid credentials")
	// ErrUnauthenticated reports a missing, expired or unknown session token.
	ErrUnauthenticated = errors.New("session is not valid")
)

// Store is the persistence surface the auth service needs.
type Store interface {
	storage.UserStore
	storage.SessionStore
}

// Service authenticates users and tracks sessions.
type Service struct {
	store Store
	mail  email.Sender
	log   *logger.Logger
}

// New constructs an auth service. A nil mail sender disables login alerts.
func New(store Store, mail email.Sender, log *logger.Logger) *Service {
	if log == nil {
		log = logger.NewDefault("auth")
	}
	return &Service{store: store, mail: mail, log: log}
}

// Login verifies the password and opens a session for the client.
func (s *Service) Login(ctx context.Context, username, password, hostname, macAddress, platform string) (session.Session, user.User, error) {
	username = strings.TrimSpace(username)
	if username == "" || password == "" {
		return session.Session{}, user.User{}, ErrInvalidCredentials
	}

	u, err := s.store.GetUserByUsername(ctx, username)
	if err != nil {
		return session.Session{}, user.User{}, ErrInvalidCredentials
	}
	if err := bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(password)); err != nil {
		return session.Session{}, user.User{}, ErrInvalidCredentials
	}

	now := time.Now().UTC()
	sess, err := s.store.CreateSession(ctx, session.Session{
		Token:        newToken(),
		UserID:       u.ID,
		Hostname:     strings.TrimSpace(hostname),
		MACAddress:   strings.TrimSpace(macAddress),
		Platform:     strings.TrimSpace(platform),
		StartDate:    now,
		LastActivity: now,
	})
	if err != nil {
		return session.Session{}, user.User{}, err
	}

	s.log.WithField("user_id", u.ID).
		WithField("session_id", sess.ID).
		WithField("platform", sess.Platform).
		Info("session opened")

	if s.mail != nil {
		body := email.LoginAlertBody(u.Username, sess.Hostname, sess.Platform, now)
		if err := s.mail.Send(u.Email, "New login to your account", body); err != nil {
			s.log.WithError(err).WithField("user_id", u.ID).Warn("login alert not sent")
		}
	}
	return sess, u, nil
}

func newToken() string {
	return strings.ReplaceAll(uuid.NewString(), "-", "")
}

// Resolve maps a session token to its user and bumps the session's activity
// timestamp.
func (s *Service) Resolve(ctx context.Context, token string) (session.Session, user.User, error) {
	token = strings.TrimSpace(token)
	if token == "" {
		return session.Session{}, user.User{}, ErrUnauthenticated
	}

	sess, err := s.store.GetSessionByToken(ctx, token)
	if err != nil {
		return session.Session{}, user.User{}, ErrUnauthenticated
	}
	u, err := s.store.GetUser(ctx, sess.UserID)
	if err != nil {
		return session.Session{}, user.User{}, fmt.Errorf("session user: %w", err)
	}
	sess, err = s.store.UpdateSessionActivity(ctx, sess.ID, time.Now().UTC())
	if err != nil {
		return session.Session{}, user.User{}, err
	}
	return sess, u, nil
}

// Logout closes the session behind the token. Unknown tokens are not an
// error; logout is idempotent.
func (s *Service) Logout(ctx context.Context, token string) error {
	sess, err := s.store.GetSessionByToken(ctx, strings.TrimSpace(token))
	if err != nil {
		return nil
	}
	if err := s.store.DeleteSession(ctx, sess.ID); err != nil {
		return err
	}
	s.log.WithField("user_id", sess.UserID).
		WithField("session_id", sess.ID).
		Info("session closed")
	return nil
}

// Sessions lists a user's open sessions.
func (s *Service) Sessions(ctx context.Context, userID string) ([]session.Session, error) {
	return s.store.ListUserSessions(ctx, userID)
}

// Session returns a single session by id.
func (s *Service) Session(ctx context.Context, sessionID string) (session.Session, error) {
	return s.store.GetSession(ctx, sessionID)
}

// CloseSession deletes a session by id, signing that client out.
func (s *Service) CloseSession(ctx context.Context, sessionID string) error {
	if err := s.store.DeleteSession(ctx, sessionID); err != nil {
		return err
	}
	s.log.WithField("session_id", sessionID).Info("session closed")
	return nil
}
