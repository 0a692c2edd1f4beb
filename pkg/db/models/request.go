package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"
	"github.com/shopspring/decimal"

	"github.com/snapmarket/snapmarket-backend/pkg/enums"
)

// Request is a buyer's open call for a photo. Requests are never deleted;
// only status and updated_at mutate after creation.
type Request struct {
	ID          uuid.UUID           `gorm:"column:id;type:uuid;primaryKey" json:"id"`
	BuyerID     uuid.UUID           `gorm:"column:buyer_id;type:uuid;not null;index" json:"buyerId"`
	BuyerName   string              `gorm:"column:buyer_name;not null" json:"buyerName"`
	Title       string              `gorm:"column:title;not null" json:"title"`
	Description string              `gorm:"column:description;not null" json:"description"`
	Budget      decimal.Decimal     `gorm:"column:budget;type:numeric(12,2);not null" json:"budget"`
	Deadline    time.Time           `gorm:"column:deadline;not null;index:idx_requests_status_deadline,priority:2" json:"deadline"`
	Category    string              `gorm:"column:category;not null" json:"category"`
	Tags        pq.StringArray      `gorm:"column:tags;type:text[]" json:"tags,omitempty"`
	Status      enums.RequestStatus `gorm:"column:status;not null;index:idx_requests_status_deadline,priority:1" json:"status"`
	CreatedAt   time.Time           `gorm:"column:created_at;autoCreateTime" json:"createdAt"`
	UpdatedAt   time.Time           `gorm:"column:updated_at;autoUpdateTime" json:"updatedAt"`
}
