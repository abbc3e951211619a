// Package accounts manages user registration, email verification, profile
// state and balance deposits.
package accounts

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"github.com/frogworks/storefront/internal/app/domain/commerce"
	"github.com/frogworks/storefront/internal/app/domain/money"
	"github.com/frogworks/storefront/internal/app/domain/user"
	"github.com/frogworks/storefront/internal/app/storage"
	"github.com/frogworks/storefront/internal/email"
	"github.com/frogworks/storefront/pkg/logger"
)

var (
	// ErrInvalidVerification reports a missing or mismatched email code.
	ErrInvalidVerification = errors.New("verification code is invalid")
	// ErrEmailInUse reports that an account already exists for the email.
	ErrEmailInUse = errors.New("email is already registered")
	// ErrUsernameInUse reports that the username is taken.
	ErrUsernameInUse = errors.New("username is already registered")
)

// Store is the persistence surface the accounts service needs.
type Store interface {
	storage.UserStore
	storage.VerificationStore
	storage.CommerceStore
	storage.TxRunner
}

// Service manages user accounts.
type Service struct {
	store  Store
	sender email.Sender
	log    *logger.Logger

	// codeFn produces verification codes and is replaceable in tests.
	codeFn func() int
}

// New constructs an accounts service. sender may be nil, in which case
// verification codes are only logged.
func New(store Store, sender email.Sender, log *logger.Logger) *Service {
	if log == nil {
		log = logger.NewDefault("accounts")
	}
	return &Service{
		store:  store,
		sender: sender,
		log:    log,
		codeFn: func() int { return 100000 + rand.Intn(900000) },
	}
}

// RequestVerification issues a six digit code to the address. A new request
// replaces any previous code for the same address.
func (s *Service) RequestVerification(ctx context.Context, address string) error {
	address = strings.TrimSpace(address)
	if address == "" || !strings.Contains(address, "@") {
		return fmt.Errorf("a valid email address is required")
	}
	if _, err := s.store.GetUserByEmail(ctx, address); err == nil {
		return fmt.Errorf("%s: %w", address, ErrEmailInUse)
	} else if !errors.Is(err, storage.ErrNotFound) {
		return err
	}

	code := s.codeFn()
	if _, err := s.store.ReplaceEmailVerification(ctx, user.EmailVerification{
		Email: address,
		Code:  code,
	}); err != nil {
		return err
	}

	if s.sender != nil {
		if err := s.sender.Send(address, "Your verification code", email.VerificationBody(code)); err != nil {
			return fmt.Errorf("send verification mail: %w", err)
		}
	} else {
		s.log.WithField("email", address).WithField("code", code).Warn("no mail sender configured, code not delivered")
	}
	s.log.WithField("email", address).Info("verification code issued")
	return nil
}

// RegisterParams describes a new account.
type RegisterParams struct {
	Username  string
	Name      string
	Email     string
	Password  string
	Code      int
	Developer bool
}

// Register creates an account once the email code checks out. The code is
// consumed on success.
func (s *Service) Register(ctx context.Context, p RegisterParams) (user.User, error) {
	p.Username = strings.TrimSpace(p.Username)
	p.Name = strings.TrimSpace(p.Name)
	p.Email = strings.TrimSpace(p.Email)

	if p.Username == "" {
		return user.User{}, fmt.Errorf("username is required")
	}
	if p.Email == "" {
		return user.User{}, fmt.Errorf("email is required")
	}
	if len(p.Password) < 8 {
		return user.User{}, fmt.Errorf("password must be at least 8 characters")
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(p.Password), bcrypt.DefaultCost)
	if err != nil {
		return user.User{}, fmt.Errorf("hash password: %w", err)
	}

	var created user.User
	err = s.store.WithTx(ctx, func(tx storage.Store) error {
		v, err := tx.GetEmailVerification(ctx, p.Email)
		if err != nil || v.Code != p.Code {
			return fmt.Errorf("%s: %w", p.Email, ErrInvalidVerification)
		}
		if _, err := tx.GetUserByUsername(ctx, p.Username); err == nil {
			return fmt.Errorf("%s: %w", p.Username, ErrUsernameInUse)
		} else if !errors.Is(err, storage.ErrNotFound) {
			return err
		}
		if _, err := tx.GetUserByEmail(ctx, p.Email); err == nil {
			return fmt.Errorf("%s: %w", p.Email, ErrEmailInUse)
		} else if !errors.Is(err, storage.ErrNotFound) {
			return err
		}

		created, err = tx.CreateUser(ctx, user.User{
			Identifier:   newIdentifier(),
			Username:     p.Username,
			Name:         p.Name,
			Email:        p.Email,
			PasswordHash: string(hash),
			Joined:       time.Now().UTC(),
			Balance:      money.Zero(),
			Developer:    p.Developer,
			Verified:     true,
		})
		if err != nil {
			return err
		}
		return tx.DeleteEmailVerifications(ctx, p.Email)
	})
	if err != nil {
		return user.User{}, err
	}

	s.log.WithField("user_id", created.ID).
		WithField("username", created.Username).
		Info("account registered")
	return created, nil
}

// newIdentifier returns the public account identifier, a dashless uuid.
func newIdentifier() string {
	return strings.ReplaceAll(uuid.NewString(), "-", "")
}

// GetUser retrieves an account by internal id.
func (s *Service) GetUser(ctx context.Context, id string) (user.User, error) {
	return s.store.GetUser(ctx, id)
}

// GetUserByIdentifier retrieves an account by its public identifier.
func (s *Service) GetUserByIdentifier(ctx context.Context, identifier string) (user.User, error) {
	return s.store.GetUserByIdentifier(ctx, strings.TrimSpace(identifier))
}

// GetUserByUsername retrieves an account by username.
func (s *Service) GetUserByUsername(ctx context.Context, username string) (user.User, error) {
	return s.store.GetUserByUsername(ctx, strings.TrimSpace(username))
}

// Deposit credits funds to a user's balance and records the matching deposit
// and transaction rows atomically.
func (s *Service) Deposit(ctx context.Context, userID string, amount money.Amount, source string) (commerce.Deposit, error) {
	if !amount.IsPositive() {
		return commerce.Deposit{}, fmt.Errorf("deposit amount must be positive")
	}
	source = strings.TrimSpace(source)
	if source == "" {
		source = "manual"
	}

	var dep commerce.Deposit
	err := s.store.WithTx(ctx, func(tx storage.Store) error {
		u, err := tx.GetUserForUpdate(ctx, userID)
		if err != nil {
			return err
		}
		u.Balance = u.Balance.Add(amount)
		if _, err := tx.UpdateUser(ctx, u); err != nil {
			return err
		}
		dep, err = tx.CreateDeposit(ctx, commerce.Deposit{
			UserID: userID,
			Amount: amount,
			Source: source,
			Date:   time.Now().UTC(),
		})
		if err != nil {
			return err
		}
		_, err = tx.CreateTransaction(ctx, commerce.Transaction{
			UserID:    userID,
			Reference: dep.ID,
			Type:      commerce.TransactionTypeDeposit,
			Date:      dep.Date,
		})
		return err
	})
	if err != nil {
		return commerce.Deposit{}, err
	}

	s.log.WithField("user_id", userID).
		WithField("deposit_id", dep.ID).
		WithField("amount", money.Format(amount)).
		Info("funds deposited")
	return dep, nil
}

// SetProfilePhoto points the account at an uploaded photo.
func (s *Service) SetProfilePhoto(ctx context.Context, userID, photoID string) (user.User, error) {
	u, err := s.store.GetUser(ctx, userID)
	if err != nil {
		return user.User{}, err
	}
	u.ProfilePhotoID = photoID
	return s.store.UpdateUser(ctx, u)
}

// SetDeveloper toggles the developer role.
func (s *Service) SetDeveloper(ctx context.Context, userID string, developer bool) (user.User, error) {
	u, err := s.store.GetUser(ctx, userID)
	if err != nil {
		return user.User{}, err
	}
	u.Developer = developer
	return s.store.UpdateUser(ctx, u)
}
