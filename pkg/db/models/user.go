package models

import (
	"time"

	"github.com/google/uuid"
)

// User mirrors the identity provider's subject for profile lookups (display
// name, notification address). Credential lifecycle lives in the provider.
type User struct {
	ID        uuid.UUID `gorm:"column:id;type:uuid;primaryKey" json:"id"`
	Email     string    `gorm:"column:email;not null;uniqueIndex" json:"email"`
	Name      string    `gorm:"column:name;not null" json:"name"`
	Verified  bool      `gorm:"column:verified;not null;default:false" json:"verified"`
	CreatedAt time.Time `gorm:"column:created_at;autoCreateTime" json:"createdAt"`
}
