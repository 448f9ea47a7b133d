package media

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/snapwall/snapwall-backend/internal/repo"
	pkgdb "github.com/snapwall/snapwall-backend/pkg/db"
	"github.com/snapwall/snapwall-backend/pkg/db/models"
	"github.com/snapwall/snapwall-backend/pkg/enums"
	pkgerrors "github.com/snapwall/snapwall-backend/pkg/errors"
)

// Repository exposes media metadata persistence. State changes are conditional updates.
type Repository struct {
	repo.Base
	now func() time.Time
}

// NewRepository constructs a media repository bound to the provided GORM DB.
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{Base: repo.NewBase(db), now: time.Now}
}

// Create persists a media record.
func (r *Repository) Create(ctx context.Context, item *models.MediaItem) error {
	if item.ID == uuid.Nil {
		item.ID = uuid.New()
	}
	if err := r.DB(ctx).Create(item).Error; err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "persist media row")
	}
	return nil
}

// FindByID retrieves a media record by ID, tombstones included.
func (r *Repository) FindByID(ctx context.Context, id uuid.UUID) (*models.MediaItem, error) {
	var item models.MediaItem
	if err := r.DB(ctx).First(&item, "id = ?", id).Error; err != nil {
		if pkgdb.IsNotFound(err) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "media not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load media")
	}
	return &item, nil
}

// Finalize moves a processing row to ready with its confirmed keys.
func (r *Repository) Finalize(ctx context.Context, id uuid.UUID, storageKey, previewKey string) (bool, error) {
	return r.transition(ctx, id, enums.MediaStateProcessing, map[string]any{
		"state":       enums.MediaStateReady,
		"storage_key": storageKey,
		"preview_key": previewKey,
	})
}

// MarkFailed moves a processing row to failed. Caption and metadata are kept.
func (r *Repository) MarkFailed(ctx context.Context, id uuid.UUID, reason string) (bool, error) {
	return r.transition(ctx, id, enums.MediaStateProcessing, map[string]any{
		"state":          enums.MediaStateFailed,
		"failure_reason": reason,
	})
}

// Tombstone marks the row deleted only if it is still in state from.
func (r *Repository) Tombstone(ctx context.Context, id uuid.UUID, from enums.MediaState) (bool, error) {
	if from == enums.MediaStateDeleted {
		return false, nil
	}
	return r.transition(ctx, id, from, map[string]any{"state": enums.MediaStateDeleted})
}

func (r *Repository) transition(ctx context.Context, id uuid.UUID, from enums.MediaState, updates map[string]any) (bool, error) {
	updates["updated_at"] = r.now().UTC()
	res := r.DB(ctx).
		Model(&models.MediaItem{}).
		Where("id = ? AND state = ?", id, from).
		Updates(updates)
	if res.Error != nil {
		return false, pkgerrors.Wrap(pkgerrors.CodeDependency, res.Error, "update media state")
	}
	return res.RowsAffected == 1, nil
}

// HardDelete removes the row.
func (r *Repository) HardDelete(ctx context.Context, id uuid.UUID) error {
	if err := r.DB(ctx).Where("id = ?", id).Delete(&models.MediaItem{}).Error; err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "delete media row")
	}
	return nil
}

// DeleteInState removes the row only while it is still in state. The caller owns the row's
// quota when this reports true.
func (r *Repository) DeleteInState(ctx context.Context, id uuid.UUID, state enums.MediaState) (bool, error) {
	res := r.DB(ctx).Where("id = ? AND state = ?", id, state).Delete(&models.MediaItem{})
	if res.Error != nil {
		return false, pkgerrors.Wrap(pkgerrors.CodeDependency, res.Error, "delete media row")
	}
	return res.RowsAffected == 1, nil
}

// IncrementLike adds one like to a ready item and returns the new count.
func (r *Repository) IncrementLike(ctx context.Context, id uuid.UUID) (int64, error) {
	var count int64
	err := r.InTx(ctx, func(ctx context.Context) error {
		res := r.DB(ctx).Model(&models.MediaItem{}).
			Where("id = ? AND state = ?", id, enums.MediaStateReady).
			UpdateColumn("like_count", gorm.Expr("like_count + 1"))
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return gorm.ErrRecordNotFound
		}
		return r.DB(ctx).Model(&models.MediaItem{}).Where("id = ?", id).Select("like_count").Scan(&count).Error
	})
	if err != nil {
		if pkgdb.IsNotFound(err) {
			return 0, pkgerrors.New(pkgerrors.CodeNotFound, "media not found")
		}
		return 0, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "increment like count")
	}
	return count, nil
}

// List returns visible rows of an event, newest first, using keyset pagination.
func (r *Repository) List(ctx context.Context, q listQuery) ([]models.MediaItem, error) {
	db := r.DB(ctx).
		Model(&models.MediaItem{}).
		Where("event_id = ?", q.eventID).
		Where("state IN ?", []enums.MediaState{enums.MediaStateProcessing, enums.MediaStateReady})

	if !q.includePrivate {
		if q.viewerID != "" {
			db = db.Where("(privacy = ? OR uploader_id = ?)", enums.MediaPrivacyPublic, q.viewerID)
		} else {
			db = db.Where("privacy = ?", enums.MediaPrivacyPublic)
		}
	}
	if q.kind != nil {
		db = db.Where("kind = ?", *q.kind)
	}
	if q.cursor != nil {
		db = db.Where("(uploaded_at < ?) OR (uploaded_at = ? AND id < ?)", q.cursor.CreatedAt, q.cursor.CreatedAt, q.cursor.ID)
	}

	var rows []models.MediaItem
	if err := db.Order("uploaded_at DESC").Order("id DESC").Limit(q.limit).Find(&rows).Error; err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list media")
	}
	return rows, nil
}

// ListByEvent returns every row of an event regardless of state.
func (r *Repository) ListByEvent(ctx context.Context, eventID uuid.UUID) ([]models.MediaItem, error) {
	var rows []models.MediaItem
	if err := r.DB(ctx).Where("event_id = ?", eventID).Find(&rows).Error; err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list event media")
	}
	return rows, nil
}

// ListStale returns rows in one of states last touched before cutoff, oldest first.
func (r *Repository) ListStale(ctx context.Context, states []enums.MediaState, cutoff time.Time, limit int) ([]models.MediaItem, error) {
	var rows []models.MediaItem
	err := r.DB(ctx).
		Where("state IN ?", states).
		Where("updated_at < ?", cutoff).
		Order("updated_at ASC").
		Limit(limit).
		Find(&rows).Error
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list stale media")
	}
	return rows, nil
}
