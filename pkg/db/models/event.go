package models

import (
	"time"

	"github.com/google/uuid"
)

// Event is a time-boxed gallery owned by a host.
type Event struct {
	ID        uuid.UUID   `gorm:"column:id;type:uuid;primaryKey"`
	HostID    uuid.UUID   `gorm:"column:host_id;type:uuid;not null;index"`
	Name      string      `gorm:"column:name;not null"`
	ExpiresAt *time.Time  `gorm:"column:expires_at"`
	PINHash   *string     `gorm:"column:pin_hash"`
	Views     int64       `gorm:"column:views;not null;default:0"`
	Downloads int64       `gorm:"column:downloads;not null;default:0"`
	Media     []MediaItem `gorm:"foreignKey:EventID;constraint:OnDelete:CASCADE"`
	CreatedAt time.Time   `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt time.Time   `gorm:"column:updated_at;autoUpdateTime"`
}

func (Event) TableName() string { return "events" }

// IsExpired reports whether the event stopped accepting uploads at now.
func (e Event) IsExpired(now time.Time) bool {
	return e.ExpiresAt != nil && !now.Before(*e.ExpiresAt)
}

// HasPIN reports whether viewing requires a PIN.
func (e Event) HasPIN() bool {
	return e.PINHash != nil && *e.PINHash != ""
}

// IsHost reports whether userID owns the event.
func (e Event) IsHost(userID string) bool {
	return userID != "" && e.HostID.String() == userID
}
