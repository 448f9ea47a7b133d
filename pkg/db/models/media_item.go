package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/snapwall/snapwall-backend/pkg/enums"
)

// MediaItem is one photo or video attached to an event.
// StorageKey and PreviewKey stay nil until the matching object write confirms.
type MediaItem struct {
	ID              uuid.UUID          `gorm:"column:id;type:uuid;primaryKey"`
	EventID         uuid.UUID          `gorm:"column:event_id;type:uuid;not null;index"`
	Kind            enums.MediaKind    `gorm:"column:kind;type:text;not null"`
	State           enums.MediaState   `gorm:"column:state;type:text;not null;index"`
	Privacy         enums.MediaPrivacy `gorm:"column:privacy;type:text;not null"`
	UploaderID      string             `gorm:"column:uploader_id;not null;index"`
	UploaderIsGuest bool               `gorm:"column:uploader_is_guest;not null;default:false"`
	Caption         string             `gorm:"column:caption;not null;default:''"`
	StorageKey      *string            `gorm:"column:storage_key"`
	PreviewKey      *string            `gorm:"column:preview_key"`
	MimeType        string             `gorm:"column:mime_type;not null"`
	SizeBytes       int64              `gorm:"column:size_bytes;not null"`
	LikeCount       int64              `gorm:"column:like_count;not null;default:0"`
	FailureReason   *string            `gorm:"column:failure_reason"`
	UploadedAt      time.Time          `gorm:"column:uploaded_at;autoCreateTime"`
	UpdatedAt       time.Time          `gorm:"column:updated_at;autoUpdateTime"`
}

func (MediaItem) TableName() string { return "media_items" }

// ChargesQuota reports whether the item is accounted against a registered user's quota.
func (m MediaItem) ChargesQuota() bool {
	return !m.UploaderIsGuest
}

// VisibleTo reports whether viewerID may see the item inside an event hosted by hostID.
func (m MediaItem) VisibleTo(viewerID string, hostID uuid.UUID) bool {
	if m.Privacy != enums.MediaPrivacyPrivate {
		return true
	}
	if viewerID == "" {
		return false
	}
	return viewerID == m.UploaderID || viewerID == hostID.String()
}
