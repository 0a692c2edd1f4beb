package requests

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/snapmarket/snapmarket-backend/pkg/db/models"
	"github.com/snapmarket/snapmarket-backend/pkg/enums"
	"github.com/snapmarket/snapmarket-backend/pkg/pagination"
)

// Repository exposes request persistence operations.
type Repository struct {
	db *gorm.DB
}

// NewRepository constructs a request repository bound to the provided GORM DB.
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

// Create persists a request record.
func (r *Repository) Create(ctx context.Context, request *models.Request) (*models.Request, error) {
	if err := r.db.WithContext(ctx).Create(request).Error; err != nil {
		return nil, err
	}
	return request, nil
}

// FindByID retrieves a request by ID.
func (r *Repository) FindByID(ctx context.Context, id uuid.UUID) (*models.Request, error) {
	var req models.Request
	if err := r.db.WithContext(ctx).First(&req, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &req, nil
}

// ListByStatus returns requests in the given status, newest first, cursor paginated.
func (r *Repository) ListByStatus(ctx context.Context, status enums.RequestStatus, cursor *pagination.Cursor, limit int) ([]models.Request, error) {
	query := r.db.WithContext(ctx).
		Where("status = ?", status).
		Order("created_at DESC, id DESC").
		Limit(limit)

	if cursor != nil {
		query = query.Where(
			"(created_at < ?) OR (created_at = ? AND id < ?)",
			cursor.CreatedAt, cursor.CreatedAt, cursor.ID,
		)
	}

	var rows []models.Request
	if err := query.Find(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}

// ListByBuyer returns the buyer's own requests regardless of status.
func (r *Repository) ListByBuyer(ctx context.Context, buyerID uuid.UUID, cursor *pagination.Cursor, limit int) ([]models.Request, error) {
	query := r.db.WithContext(ctx).
		Where("buyer_id = ?", buyerID).
		Order("created_at DESC, id DESC").
		Limit(limit)

	if cursor != nil {
		query = query.Where(
			"(created_at < ?) OR (created_at = ? AND id < ?)",
			cursor.CreatedAt, cursor.CreatedAt, cursor.ID,
		)
	}

	var rows []models.Request
	if err := query.Find(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}

// TransitionStatus flips the request from one status to another. The update is
// conditional on the current status so concurrent writers cannot double apply;
// the boolean reports whether this caller won.
func (r *Repository) TransitionStatus(ctx context.Context, id uuid.UUID, from, to enums.RequestStatus) (bool, error) {
	result := r.db.WithContext(ctx).
		Model(&models.Request{}).
		Where("id = ? AND status = ?", id, from).
		Update("status", to)
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected > 0, nil
}

// ExpireOpenPastDeadline marks every open request whose deadline has passed as
// expired and returns the IDs it transitioned.
func (r *Repository) ExpireOpenPastDeadline(ctx context.Context, now time.Time) ([]uuid.UUID, error) {
	var ids []uuid.UUID
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.
			Model(&models.Request{}).
			Where("status = ? AND deadline < ?", enums.RequestStatusOpen, now).
			Pluck("id", &ids).Error; err != nil {
			return err
		}
		if len(ids) == 0 {
			return nil
		}
		return tx.
			Model(&models.Request{}).
			Where("id IN ? AND status = ?", ids, enums.RequestStatusOpen).
			Update("status", enums.RequestStatusExpired).Error
	})
	if err != nil {
		return nil, err
	}
	return ids, nil
}
