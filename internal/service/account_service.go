package service

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"

	"github.com/nexus-vita/session-service/internal/auth"
	"github.com/nexus-vita/session-service/internal/config"
	"github.com/nexus-vita/session-service/internal/domain"
	"github.com/nexus-vita/session-service/internal/events"
	"github.com/nexus-vita/session-service/internal/repository"
)

// ErrInvalidCredentials is returned for any failed login, without revealing
// whether the account exists.
var ErrInvalidCredentials = errors.New("invalid credentials")

// ErrEmailTaken is returned when registering an already-known email.
var ErrEmailTaken = errors.New("email already registered")

// AccountService coordinates registration and login flows. Successful flows
// issue a session token through the codec; there is no session store.
type AccountService struct {
	accounts   repository.AccountRepository
	codec      *auth.Codec
	dispatcher events.Dispatcher
	logger     *zap.Logger
	bcryptCost int
}

// NewAccountService builds the service.
func NewAccountService(cfg config.AuthConfig, accounts repository.AccountRepository, codec *auth.Codec, dispatcher events.Dispatcher, logger *zap.Logger) *AccountService {
	return &AccountService{
		accounts:   accounts,
		codec:      codec,
		dispatcher: dispatcher,
		logger:     logger,
		bcryptCost: cfg.BcryptCost,
	}
}

// Register creates a new account and issues its first session token.
func (s *AccountService) Register(ctx context.Context, name, email, password string, role domain.Role) (*domain.Account, string, time.Time, error) {
	if _, err := s.accounts.GetByEmail(ctx, email); err == nil {
		return nil, "", time.Time{}, ErrEmailTaken
	} else if err != nil && err != pgx.ErrNoRows {
		return nil, "", time.Time{}, err
	}

	hash, err := auth.HashPassword(password, s.bcryptCost)
	if err != nil {
		return nil, "", time.Time{}, err
	}

	account := &domain.Account{
		Name:         name,
		Email:        email,
		PasswordHash: hash,
		Role:         role,
		Status:       domain.AccountStatusActive,
	}
	if err := s.accounts.Create(ctx, account); err != nil {
		return nil, "", time.Time{}, err
	}

	s.emit(ctx, events.EventAccountRegistered, account.ID, account.Role, nil)

	token, exp := s.codec.Issue(account.ID, account.Role)
	return account, token, exp, nil
}

// Login authenticates an account and issues a fresh session token.
func (s *AccountService) Login(ctx context.Context, email, password string) (*domain.Account, string, time.Time, error) {
	account, err := s.accounts.GetByEmail(ctx, email)
	if err != nil {
		if err == pgx.ErrNoRows {
			s.emit(ctx, events.EventLoginFailed, "", "", events.LoginFailedPayload{Email: email, Reason: "unknown account"})
			return nil, "", time.Time{}, ErrInvalidCredentials
		}
		return nil, "", time.Time{}, err
	}
	if account.Status != domain.AccountStatusActive {
		s.emit(ctx, events.EventLoginFailed, account.ID, account.Role, events.LoginFailedPayload{Email: email, Reason: "account suspended"})
		return nil, "", time.Time{}, ErrInvalidCredentials
	}
	if err := auth.ComparePassword(account.PasswordHash, password); err != nil {
		s.emit(ctx, events.EventLoginFailed, account.ID, account.Role, events.LoginFailedPayload{Email: email, Reason: "wrong password"})
		return nil, "", time.Time{}, ErrInvalidCredentials
	}

	s.emit(ctx, events.EventLoginSucceeded, account.ID, account.Role, nil)

	token, exp := s.codec.Issue(account.ID, account.Role)
	return account, token, exp, nil
}

// GetAccount loads one account by ID.
func (s *AccountService) GetAccount(ctx context.Context, id string) (*domain.Account, error) {
	return s.accounts.GetByID(ctx, id)
}

// ListByRole returns recent accounts carrying the given role.
func (s *AccountService) ListByRole(ctx context.Context, role domain.Role, limit int) ([]*domain.Account, error) {
	if limit <= 0 || limit > 200 {
		limit = 50
	}
	return s.accounts.ListByRole(ctx, role, limit)
}

// Codec exposes the token codec for the transport guard.
func (s *AccountService) Codec() *auth.Codec {
	return s.codec
}

func (s *AccountService) emit(ctx context.Context, eventType events.EventType, subjectID string, role domain.Role, payload interface{}) {
	if s.dispatcher == nil {
		return
	}
	_ = s.dispatcher.Publish(ctx, events.Event{
		ID:        uuid.NewString(),
		Type:      eventType,
		SubjectID: subjectID,
		Role:      role,
		Timestamp: time.Now().UTC(),
		Payload:   payload,
	})
}
