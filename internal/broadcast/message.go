package broadcast

import (
	"time"

	"github.com/snapwall/snapwall-backend/pkg/db/models"
	"github.com/snapwall/snapwall-backend/pkg/enums"
)

// EventType names a real-time notification.
type EventType string

const (
	EventMediaCreated    EventType = "media_created"
	EventMediaReady      EventType = "media_ready"
	EventMediaProcessing EventType = "media_processing"
	EventMediaProcessed  EventType = "media_processed"
	EventMediaFailed     EventType = "media_failed"
	EventMediaDeleted    EventType = "media_deleted"
	EventNewLike         EventType = "new_like"
	EventEventDeleted    EventType = "event_deleted"
)

// Message is the wire envelope delivered to every subscriber of an event channel.
type Message struct {
	Type    EventType `json:"type"`
	EventID string    `json:"event_id"`
	Payload any       `json:"payload,omitempty"`
	SentAt  time.Time `json:"sent_at"`
}

// MediaPayload describes a media item in channel messages.
// Private items are redacted to their id and state; viewers refetch through the API.
type MediaPayload struct {
	MediaID    string             `json:"media_id"`
	EventID    string             `json:"event_id"`
	Kind       enums.MediaKind    `json:"kind,omitempty"`
	State      enums.MediaState   `json:"state"`
	Privacy    enums.MediaPrivacy `json:"privacy"`
	UploaderID string             `json:"uploader_id,omitempty"`
	Caption    string             `json:"caption,omitempty"`
	MimeType   string             `json:"mime_type,omitempty"`
	SizeBytes  int64              `json:"size_bytes,omitempty"`
	PreviewKey string             `json:"preview_key"`
	LikeCount  int64              `json:"like_count"`
	Reason     string             `json:"reason,omitempty"`
	UploadedAt *time.Time         `json:"uploaded_at,omitempty"`
}

// NewMediaPayload builds the channel view of item.
func NewMediaPayload(item models.MediaItem) MediaPayload {
	payload := MediaPayload{
		MediaID: item.ID.String(),
		EventID: item.EventID.String(),
		State:   item.State,
		Privacy: item.Privacy,
	}
	if item.FailureReason != nil {
		payload.Reason = *item.FailureReason
	}
	if item.Privacy == enums.MediaPrivacyPrivate {
		return payload
	}
	payload.Kind = item.Kind
	payload.UploaderID = item.UploaderID
	payload.Caption = item.Caption
	payload.MimeType = item.MimeType
	payload.SizeBytes = item.SizeBytes
	payload.LikeCount = item.LikeCount
	if item.PreviewKey != nil {
		payload.PreviewKey = *item.PreviewKey
	}
	if !item.UploadedAt.IsZero() {
		uploaded := item.UploadedAt
		payload.UploadedAt = &uploaded
	}
	return payload
}

// LikePayload is sent with new_like.
type LikePayload struct {
	MediaID   string `json:"media_id"`
	LikeCount int64  `json:"like_count"`
}

// EventDeletedPayload is sent with event_deleted before the channel is torn down.
type EventDeletedPayload struct {
	EventID string `json:"event_id"`
}
