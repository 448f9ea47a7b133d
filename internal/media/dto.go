package media

import (
	"fmt"
	"io"
	"time"

	"github.com/google/uuid"

	"github.com/snapwall/snapwall-backend/pkg/auth"
	"github.com/snapwall/snapwall-backend/pkg/db/models"
	"github.com/snapwall/snapwall-backend/pkg/enums"
	"github.com/snapwall/snapwall-backend/pkg/pagination"
	"github.com/snapwall/snapwall-backend/pkg/storage"
)

// Asset variants served by the proxy read path.
const (
	VariantOriginal = "original"
	VariantPreview  = "preview"
)

// UploadInput is one multipart submission.
type UploadInput struct {
	EventID           uuid.UUID
	Kind              string
	Caption           string
	Privacy           string
	ClaimedUploaderID string
	Identity          *auth.Identity
	ClientIP          string
	File              io.Reader
	FileName          string
	Size              int64
	DeclaredMIME      string
}

// UploadResult is returned once the item is accepted. GuestToken is set for anonymous uploaders.
type UploadResult struct {
	Media      MediaDTO `json:"media"`
	GuestID    string   `json:"guest_id,omitempty"`
	GuestToken string   `json:"guest_token,omitempty"`
}

// MediaDTO is the API view of a media item. Storage keys are never exposed; assets go through the proxy.
type MediaDTO struct {
	ID            uuid.UUID          `json:"id"`
	EventID       uuid.UUID          `json:"event_id"`
	Kind          enums.MediaKind    `json:"kind"`
	State         enums.MediaState   `json:"state"`
	Privacy       enums.MediaPrivacy `json:"privacy"`
	UploaderID    string             `json:"uploader_id"`
	Caption       string             `json:"caption"`
	MimeType      string             `json:"mime_type"`
	SizeBytes     int64              `json:"size_bytes"`
	LikeCount     int64              `json:"like_count"`
	AssetURL      string             `json:"asset_url,omitempty"`
	PreviewURL    string             `json:"preview_url,omitempty"`
	FailureReason *string            `json:"failure_reason,omitempty"`
	UploadedAt    time.Time          `json:"uploaded_at"`
}

func toDTO(item models.MediaItem) MediaDTO {
	dto := MediaDTO{
		ID:            item.ID,
		EventID:       item.EventID,
		Kind:          item.Kind,
		State:         item.State,
		Privacy:       item.Privacy,
		UploaderID:    item.UploaderID,
		Caption:       item.Caption,
		MimeType:      item.MimeType,
		SizeBytes:     item.SizeBytes,
		LikeCount:     item.LikeCount,
		FailureReason: item.FailureReason,
		UploadedAt:    item.UploadedAt,
	}
	if item.StorageKey != nil {
		dto.AssetURL = assetPath(item.ID, VariantOriginal)
	}
	if item.PreviewKey != nil {
		dto.PreviewURL = assetPath(item.ID, VariantPreview)
	}
	return dto
}

func assetPath(id uuid.UUID, variant string) string {
	return fmt.Sprintf("/api/v1/media/%s/asset?variant=%s", id, variant)
}

// AccessInput identifies a caller reading one item.
type AccessInput struct {
	MediaID  uuid.UUID
	Identity *auth.Identity
	ViewPass string
}

// AssetInput requests one stored variant.
type AssetInput struct {
	AccessInput
	Variant string
}

// Asset is an open object stream. Callers close Object.Body.
type Asset struct {
	Object   *storage.Object
	Variant  string
	FileName string
}

// DeleteInput removes one item on behalf of Identity.
type DeleteInput struct {
	MediaID  uuid.UUID
	Identity *auth.Identity
}

// BulkDeleteInput removes several items of one event.
type BulkDeleteInput struct {
	EventID  uuid.UUID
	MediaIDs []uuid.UUID
	Identity *auth.Identity
}

// BulkDeleteResult lists per-item outcomes; Failed maps media ids to error codes.
type BulkDeleteResult struct {
	Deleted []uuid.UUID       `json:"deleted"`
	Failed  map[string]string `json:"failed,omitempty"`
}

// LikeInput adds a like from ClientIP.
type LikeInput struct {
	AccessInput
	ClientIP string
}

// LikeResult carries the updated counter.
type LikeResult struct {
	MediaID   uuid.UUID `json:"media_id"`
	LikeCount int64     `json:"like_count"`
}

// ListParams configures gallery listing.
type ListParams struct {
	EventID  uuid.UUID
	Identity *auth.Identity
	ViewPass string
	Kind     string
	pagination.Params
}

// ListResult returns one page of the gallery.
type ListResult struct {
	Items  []MediaDTO `json:"items"`
	Cursor string     `json:"cursor"`
}

type listQuery struct {
	eventID        uuid.UUID
	viewerID       string
	includePrivate bool
	kind           *enums.MediaKind
	limit          int
	cursor         *pagination.Cursor
}
