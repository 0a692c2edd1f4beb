package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Entry is a seller's candidate photo submitted against a Request. The row
// outlives its binaries once purchased: the sweep clears the objects and
// stamps FilePurgedAt while the record stays queryable forever.
type Entry struct {
	ID           uuid.UUID       `gorm:"column:id;type:uuid;primaryKey" json:"id"`
	RequestID    uuid.UUID       `gorm:"column:request_id;type:uuid;not null;index:idx_entries_request_created" json:"requestId"`
	SellerID     uuid.UUID       `gorm:"column:seller_id;type:uuid;not null;index" json:"sellerId"`
	SellerName   string          `gorm:"column:seller_name;not null" json:"sellerName"`
	Title        string          `gorm:"column:title;not null" json:"title"`
	Description  string          `gorm:"column:description;not null" json:"description"`
	FileKey      string          `gorm:"column:file_key;not null" json:"-"`
	ThumbnailKey string          `gorm:"column:thumbnail_key;not null" json:"-"`
	Price        decimal.Decimal `gorm:"column:price;type:numeric(12,2);not null" json:"price"`
	Selected     bool            `gorm:"column:selected;not null;default:false" json:"selected"`
	Purchased    bool            `gorm:"column:purchased;not null;default:false" json:"purchased"`
	FilePurgedAt *time.Time      `gorm:"column:file_purged_at" json:"filePurgedAt,omitempty"`
	CreatedAt    time.Time       `gorm:"column:created_at;autoCreateTime;index:idx_entries_request_created" json:"createdAt"`
	UpdatedAt    time.Time       `gorm:"column:updated_at;autoUpdateTime" json:"updatedAt"`
}
