package users

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/snapmarket/snapmarket-backend/pkg/db/models"
)

// Repository exposes user profile persistence operations.
type Repository struct {
	db *gorm.DB
}

// NewRepository constructs a user repository bound to the provided GORM DB.
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

// FindByID retrieves a user by ID.
func (r *Repository) FindByID(ctx context.Context, id uuid.UUID) (*models.User, error) {
	var u models.User
	if err := r.db.WithContext(ctx).First(&u, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &u, nil
}

// Upsert writes the profile, replacing name/email/verified on conflict. The
// identity provider owns the account; this table is a local mirror.
func (r *Repository) Upsert(ctx context.Context, user *models.User) (*models.User, error) {
	err := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "id"}},
			DoUpdates: clause.AssignmentColumns([]string{"email", "name", "verified"}),
		}).
		Create(user).Error
	if err != nil {
		return nil, err
	}
	return user, nil
}
