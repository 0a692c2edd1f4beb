package entries

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/snapmarket/snapmarket-backend/pkg/db/models"
	"github.com/snapmarket/snapmarket-backend/pkg/enums"
	"github.com/snapmarket/snapmarket-backend/pkg/pagination"
)

// Repository exposes entry persistence operations.
type Repository struct {
	db *gorm.DB
}

// NewRepository constructs an entry repository bound to the provided GORM DB.
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

// Create persists an entry record.
func (r *Repository) Create(ctx context.Context, entry *models.Entry) (*models.Entry, error) {
	if err := r.db.WithContext(ctx).Create(entry).Error; err != nil {
		return nil, err
	}
	return entry, nil
}

// FindByID retrieves an entry by ID.
func (r *Repository) FindByID(ctx context.Context, id uuid.UUID) (*models.Entry, error) {
	var e models.Entry
	if err := r.db.WithContext(ctx).First(&e, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &e, nil
}

// ListByRequest returns a request's entries, newest first, cursor paginated.
func (r *Repository) ListByRequest(ctx context.Context, requestID uuid.UUID, cursor *pagination.Cursor, limit int) ([]models.Entry, error) {
	query := r.db.WithContext(ctx).
		Where("request_id = ?", requestID).
		Order("created_at DESC, id DESC").
		Limit(limit)

	if cursor != nil {
		query = query.Where(
			"(created_at < ?) OR (created_at = ? AND id < ?)",
			cursor.CreatedAt, cursor.CreatedAt, cursor.ID,
		)
	}

	var rows []models.Entry
	if err := query.Find(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}

// CountByRequestAndSeller reports how many entries the seller already has on a request.
func (r *Repository) CountByRequestAndSeller(ctx context.Context, requestID, sellerID uuid.UUID) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&models.Entry{}).
		Where("request_id = ? AND seller_id = ?", requestID, sellerID).
		Count(&count).Error
	if err != nil {
		return 0, err
	}
	return count, nil
}

// MarkSelected flips the entry's selected flag. The update is conditional on
// the flag still being false; the boolean reports whether this caller won the
// flip, which is what makes concurrent purchases single-winner.
func (r *Repository) MarkSelected(ctx context.Context, id uuid.UUID) (bool, error) {
	result := r.db.WithContext(ctx).
		Model(&models.Entry{}).
		Where("id = ? AND selected = ?", id, false).
		Update("selected", true)
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected > 0, nil
}

// MarkPurchased records a completed purchase on the entry.
func (r *Repository) MarkPurchased(ctx context.Context, id uuid.UUID) error {
	return r.db.WithContext(ctx).
		Model(&models.Entry{}).
		Where("id = ?", id).
		Update("purchased", true).Error
}

// ClearSelected releases an entry when the checkout session could not be
// opened, so another buyer attempt can win it again.
func (r *Repository) ClearSelected(ctx context.Context, id uuid.UUID) error {
	return r.db.WithContext(ctx).
		Model(&models.Entry{}).
		Where("id = ? AND purchased = ?", id, false).
		Update("selected", false).Error
}

// DeleteByID removes an entry record. Used by the unselected sweep once the
// binaries are gone; purchased entries keep their record as purchase history.
func (r *Repository) DeleteByID(ctx context.Context, id uuid.UUID) error {
	return r.db.WithContext(ctx).Delete(&models.Entry{}, "id = ?", id).Error
}

// FindUnselectedForPurge returns entries still holding binaries on requests
// that reached a terminal status before the cutoff.
func (r *Repository) FindUnselectedForPurge(ctx context.Context, cutoff time.Time, limit int) ([]models.Entry, error) {
	var rows []models.Entry
	err := r.db.WithContext(ctx).
		Joins("JOIN requests ON requests.id = entries.request_id").
		Where("requests.status IN ?", []enums.RequestStatus{enums.RequestStatusClosed, enums.RequestStatusExpired}).
		Where("requests.updated_at < ?", cutoff).
		Where("entries.selected = ?", false).
		Where("entries.file_purged_at IS NULL").
		Limit(limit).
		Find(&rows).Error
	if err != nil {
		return nil, err
	}
	return rows, nil
}

// FindPurchasedForPurge returns purchased entries still holding binaries whose
// completed payment settled before the cutoff.
func (r *Repository) FindPurchasedForPurge(ctx context.Context, cutoff time.Time, limit int) ([]models.Entry, error) {
	var rows []models.Entry
	err := r.db.WithContext(ctx).
		Joins("JOIN payments ON payments.entry_id = entries.id").
		Where("payments.status = ?", enums.PaymentStatusCompleted).
		Where("payments.updated_at < ?", cutoff).
		Where("entries.purchased = ?", true).
		Where("entries.file_purged_at IS NULL").
		Limit(limit).
		Find(&rows).Error
	if err != nil {
		return nil, err
	}
	return rows, nil
}

// MarkFilePurged stamps the purge time so the sweep never revisits the entry.
func (r *Repository) MarkFilePurged(ctx context.Context, id uuid.UUID, at time.Time) error {
	return r.db.WithContext(ctx).
		Model(&models.Entry{}).
		Where("id = ? AND file_purged_at IS NULL", id).
		Update("file_purged_at", at).Error
}
