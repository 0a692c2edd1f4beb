package payments

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/snapmarket/snapmarket-backend/pkg/db/models"
	"github.com/snapmarket/snapmarket-backend/pkg/enums"
)

// Repository exposes payment persistence operations.
type Repository struct {
	db *gorm.DB
}

// NewRepository constructs a payment repository bound to the provided GORM DB.
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

// Create persists a payment record.
func (r *Repository) Create(ctx context.Context, payment *models.Payment) (*models.Payment, error) {
	if err := r.db.WithContext(ctx).Create(payment).Error; err != nil {
		return nil, err
	}
	return payment, nil
}

// FindByID retrieves a payment by ID.
func (r *Repository) FindByID(ctx context.Context, id uuid.UUID) (*models.Payment, error) {
	var p models.Payment
	if err := r.db.WithContext(ctx).First(&p, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &p, nil
}

// FindBySessionID retrieves a payment by the provider's session handle.
func (r *Repository) FindBySessionID(ctx context.Context, sessionID string) (*models.Payment, error) {
	var p models.Payment
	if err := r.db.WithContext(ctx).First(&p, "session_id = ?", sessionID).Error; err != nil {
		return nil, err
	}
	return &p, nil
}

// ListByBuyer returns the buyer's payments, newest first.
func (r *Repository) ListByBuyer(ctx context.Context, buyerID uuid.UUID, limit int) ([]models.Payment, error) {
	var rows []models.Payment
	err := r.db.WithContext(ctx).
		Where("buyer_id = ?", buyerID).
		Order("created_at DESC").
		Limit(limit).
		Find(&rows).Error
	if err != nil {
		return nil, err
	}
	return rows, nil
}

// SettleFromPending moves a pending payment to a terminal status. The update
// is conditional on the row still being pending, which makes webhook retries
// no-ops; the boolean reports whether this caller performed the settlement.
func (r *Repository) SettleFromPending(ctx context.Context, sessionID string, to enums.PaymentStatus, transactionID *string) (bool, error) {
	updates := map[string]any{"status": to}
	if transactionID != nil {
		updates["transaction_id"] = *transactionID
	}
	result := r.db.WithContext(ctx).
		Model(&models.Payment{}).
		Where("session_id = ? AND status = ?", sessionID, enums.PaymentStatusPending).
		Updates(updates)
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected > 0, nil
}

// HasCompletedForBuyerEntry reports whether the buyer holds a completed
// payment for the entry.
func (r *Repository) HasCompletedForBuyerEntry(ctx context.Context, buyerID, entryID uuid.UUID) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&models.Payment{}).
		Where("buyer_id = ? AND entry_id = ? AND status = ?", buyerID, entryID, enums.PaymentStatusCompleted).
		Count(&count).Error
	if err != nil {
		return false, err
	}
	return count > 0, nil
}
