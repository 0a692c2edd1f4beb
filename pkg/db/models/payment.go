package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/snapmarket/snapmarket-backend/pkg/enums"
)

// Payment records one purchase attempt for a specific entry. Rows are never
// deleted; they remain as transaction history after the asset binaries are
// purged.
type Payment struct {
	ID            uuid.UUID           `gorm:"column:id;type:uuid;primaryKey" json:"id"`
	RequestID     uuid.UUID           `gorm:"column:request_id;type:uuid;not null;index:idx_payments_request_entry" json:"requestId"`
	EntryID       uuid.UUID           `gorm:"column:entry_id;type:uuid;not null;index:idx_payments_request_entry" json:"entryId"`
	BuyerID       uuid.UUID           `gorm:"column:buyer_id;type:uuid;not null;index" json:"buyerId"`
	SellerID      uuid.UUID           `gorm:"column:seller_id;type:uuid;not null" json:"sellerId"`
	Amount        decimal.Decimal     `gorm:"column:amount;type:numeric(12,2);not null" json:"amount"`
	Status        enums.PaymentStatus `gorm:"column:status;not null" json:"status"`
	SessionID     string              `gorm:"column:session_id;not null;uniqueIndex" json:"sessionId"`
	TransactionID *string             `gorm:"column:transaction_id" json:"transactionId,omitempty"`
	CreatedAt     time.Time           `gorm:"column:created_at;autoCreateTime" json:"createdAt"`
	UpdatedAt     time.Time           `gorm:"column:updated_at;autoUpdateTime" json:"updatedAt"`
}
