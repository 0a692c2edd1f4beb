package users

import (
	"context"
	"errors"
	"fmt"
	"net/mail"
	"strings"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/snapmarket/snapmarket-backend/pkg/db/models"
	pkgerrors "github.com/snapmarket/snapmarket-backend/pkg/errors"
)

type usersRepository interface {
	FindByID(ctx context.Context, id uuid.UUID) (*models.User, error)
	Upsert(ctx context.Context, user *models.User) (*models.User, error)
}

// Service exposes profile mirror semantics.
type Service interface {
	Get(ctx context.Context, id uuid.UUID) (*models.User, error)
	Sync(ctx context.Context, id uuid.UUID, input SyncInput) (*models.User, error)
}

type service struct {
	repo usersRepository
}

// NewService constructs a user service backed by the provided repository.
func NewService(repo usersRepository) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("users repository required")
	}
	return &service{repo: repo}, nil
}

// SyncInput carries the profile fields mirrored from the identity provider.
type SyncInput struct {
	Email    string
	Name     string
	Verified bool
}

func (s *service) Get(ctx context.Context, id uuid.UUID) (*models.User, error) {
	if id == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "user id missing")
	}
	user, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "user not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "loading user")
	}
	return user, nil
}

func (s *service) Sync(ctx context.Context, id uuid.UUID, input SyncInput) (*models.User, error) {
	if id == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "user id missing")
	}

	email := strings.ToLower(strings.TrimSpace(input.Email))
	if _, err := mail.ParseAddress(email); err != nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "invalid email").
			WithDetails(map[string]any{"field": "email"})
	}
	name := strings.TrimSpace(input.Name)
	if name == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "name is required").
			WithDetails(map[string]any{"field": "name"})
	}

	user := &models.User{
		ID:       id,
		Email:    email,
		Name:     name,
		Verified: input.Verified,
	}
	saved, err := s.repo.Upsert(ctx, user)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "saving user")
	}
	return saved, nil
}
