package models

import (
	"time"

	"github.com/google/uuid"
)

// UnlimitedStorageBytes is the limit sentinel that disables quota enforcement.
const UnlimitedStorageBytes int64 = -1

// QuotaAccount tracks a registered user's storage consumption.
type QuotaAccount struct {
	UserID            uuid.UUID `gorm:"column:user_id;type:uuid;primaryKey"`
	StorageUsedBytes  int64     `gorm:"column:storage_used_bytes;not null;default:0"`
	StorageLimitBytes int64     `gorm:"column:storage_limit_bytes;not null"`
	UpdatedAt         time.Time `gorm:"column:updated_at;autoUpdateTime"`
}

func (QuotaAccount) TableName() string { return "quota_accounts" }

// IsUnlimited reports whether the account bypasses the limit check.
func (q QuotaAccount) IsUnlimited() bool {
	return q.StorageLimitBytes == UnlimitedStorageBytes
}

// RemainingBytes returns the headroom, or -1 when unlimited.
func (q QuotaAccount) RemainingBytes() int64 {
	if q.IsUnlimited() {
		return UnlimitedStorageBytes
	}
	remaining := q.StorageLimitBytes - q.StorageUsedBytes
	if remaining < 0 {
		return 0
	}
	return remaining
}
