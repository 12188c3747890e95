package application

import (
	"context"
	"log/slog"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"

	"github.com/signalforge/signalforge/internal/domain/model"
	"github.com/signalforge/signalforge/internal/domain/port/driven"
)

// AccountService owns the validation boundary in front of the AccountStore.
// The store persists whatever it is given; every field rule lives here.
type AccountService struct {
	store    driven.AccountStore
	validate *validator.Validate
	logger   *slog.Logger

	now   func() time.Time
	newID func() string
}

// NewAccountService creates a new AccountService with the required dependencies.
func NewAccountService(store driven.AccountStore, logger *slog.Logger) *AccountService {
	return &AccountService{
		store:    store,
		validate: newValidator(),
		logger:   logger,
		now:      func() time.Time { return time.Now().UTC() },
		newID:    uuid.NewString,
	}
}

// List returns the accounts of class, newest created first.
func (s *AccountService) List(ctx context.Context, class model.AccountClass) ([]model.Account, error) {
	if err := checkClass(class); err != nil {
		return nil, err
	}
	return s.store.List(ctx, class)
}

// Get returns one account, or an error wrapping driven.ErrAccountNotFound.
func (s *AccountService) Get(ctx context.Context, class model.AccountClass, id string) (model.Account, error) {
	if err := checkClass(class); err != nil {
		return model.Account{}, err
	}
	if id == "" {
		return model.Account{}, newValidationError("id", "id is required")
	}
	return s.store.Get(ctx, class, id)
}

// Create validates fields and persists a new account with a generated id and
// creation time. Names are not required to be unique.
func (s *AccountService) Create(ctx context.Context, class model.AccountClass, fields model.AccountFields) (model.Account, error) {
	if err := checkClass(class); err != nil {
		return model.Account{}, err
	}
	if err := validateStruct(s.validate, fields); err != nil {
		return model.Account{}, err
	}

	account := model.Account{
		ID:          s.newID(),
		Class:       class,
		Name:        fields.Name,
		AppKey:      fields.AppKey,
		AppSecret:   fields.AppSecret,
		AccessToken: fields.AccessToken,
		CreatedAt:   s.now(),
	}

	if err := s.store.Create(ctx, account); err != nil {
		return model.Account{}, err
	}

	s.logger.Info("account created", "class", class, "id", account.ID, "name", account.Name)
	return account, nil
}

// Update replaces every mutable field of an existing account. All four
// fields must be supplied again; nothing is merged from the stored record.
func (s *AccountService) Update(ctx context.Context, class model.AccountClass, id string, fields model.AccountFields) (model.Account, error) {
	if err := checkClass(class); err != nil {
		return model.Account{}, err
	}
	if id == "" {
		return model.Account{}, newValidationError("id", "id is required")
	}
	if err := validateStruct(s.validate, fields); err != nil {
		return model.Account{}, err
	}

	account, err := s.store.Update(ctx, class, id, fields)
	if err != nil {
		return model.Account{}, err
	}

	s.logger.Info("account updated", "class", class, "id", id)
	return account, nil
}

// Delete removes an account. Deleting an unknown id returns an error
// wrapping driven.ErrAccountNotFound.
func (s *AccountService) Delete(ctx context.Context, class model.AccountClass, id string) error {
	if err := checkClass(class); err != nil {
		return err
	}
	if id == "" {
		return newValidationError("id", "id is required")
	}

	if err := s.store.Delete(ctx, class, id); err != nil {
		return err
	}

	s.logger.Info("account deleted", "class", class, "id", id)
	return nil
}

func checkClass(class model.AccountClass) error {
	if !class.Valid() {
		return newValidationError("accountClass", "accountClass must be one of [message trading]")
	}
	return nil
}
