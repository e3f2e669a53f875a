package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/wireline-chat/wireline/internal/auth"
	"github.com/wireline-chat/wireline/internal/models"
	"github.com/wireline-chat/wireline/internal/store"
)

// AccountService implements account creation, login and identity resolution.
type AccountService struct {
	db     store.DataStore
	signer *auth.Signer
}

// NewAccountService creates an AccountService.
func NewAccountService(db store.DataStore, signer *auth.Signer) *AccountService {
	return &AccountService{db: db, signer: signer}
}

// Create registers a new account. The wa_id is immutable and globally unique;
// a second registration with the same wa_id fails with ErrConflict.
func (s *AccountService) Create(ctx context.Context, waID, name, picture string) (*models.Account, error) {
	if waID == "" {
		return nil, fmt.Errorf("%w: wa_id is required", ErrBadRequest)
	}

	existing, err := s.db.GetAccountByWaID(ctx, waID)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return nil, fmt.Errorf("%w: account with wa_id %s already exists", ErrConflict, waID)
	}

	account, err := s.db.CreateAccount(ctx, waID, name, picture)
	if err != nil {
		// Lost a race with a concurrent registration; the store's unique
		// index is authoritative.
		if errors.Is(err, store.ErrDuplicateKey) {
			return nil, fmt.Errorf("%w: account with wa_id %s already exists", ErrConflict, waID)
		}
		return nil, err
	}

	return account, nil
}

// Login issues a bearer credential for an existing account.
func (s *AccountService) Login(ctx context.Context, waID string) (string, error) {
	if waID == "" {
		return "", fmt.Errorf("%w: wa_id is required", ErrBadRequest)
	}

	account, err := s.db.GetAccountByWaID(ctx, waID)
	if err != nil {
		return "", err
	}
	if account == nil {
		return "", fmt.Errorf("%w: no account with wa_id %s", ErrNotFound, waID)
	}

	token, err := s.signer.Issue(account.ID, account.WaID)
	if err != nil {
		return "", err
	}
	return token, nil
}

// Get returns the account for a wa_id, or ErrNotFound.
func (s *AccountService) Get(ctx context.Context, waID string) (*models.Account, error) {
	if waID == "" {
		return nil, fmt.Errorf("%w: missing identity", ErrUnauthorized)
	}

	account, err := s.db.GetAccountByWaID(ctx, waID)
	if err != nil {
		return nil, err
	}
	if account == nil {
		return nil, fmt.Errorf("%w: no account with wa_id %s", ErrNotFound, waID)
	}
	return account, nil
}

// SentMessages is the derived view of everything an account has sent. The
// back-reference is computed at read time rather than persisted, so it can
// never go stale.
func (s *AccountService) SentMessages(ctx context.Context, waID string) ([]models.Message, error) {
	if waID == "" {
		return nil, fmt.Errorf("%w: missing identity", ErrUnauthorized)
	}
	return s.db.ListMessagesFrom(ctx, waID)
}
