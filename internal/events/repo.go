package events

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/snapwall/snapwall-backend/internal/repo"
	pkgdb "github.com/snapwall/snapwall-backend/pkg/db"
	"github.com/snapwall/snapwall-backend/pkg/db/models"
	pkgerrors "github.com/snapwall/snapwall-backend/pkg/errors"
)

// Repository persists events and their counters.
type Repository struct {
	repo.Base
}

// NewRepository binds a GORM DB to event operations.
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{Base: repo.NewBase(db)}
}

// Create persists a new event row.
func (r *Repository) Create(ctx context.Context, event *models.Event) error {
	if event.ID == uuid.Nil {
		event.ID = uuid.New()
	}
	if err := r.DB(ctx).Create(event).Error; err != nil {
		if pkgdb.IsUniqueViolation(err, "") {
			return pkgerrors.Wrap(pkgerrors.CodeConflict, err, "event already exists")
		}
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "persist event")
	}
	return nil
}

// FindByID loads an event by its UUID.
func (r *Repository) FindByID(ctx context.Context, id uuid.UUID) (*models.Event, error) {
	var event models.Event
	if err := r.DB(ctx).Where("id = ?", id).First(&event).Error; err != nil {
		if pkgdb.IsNotFound(err) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "event not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load event")
	}
	return &event, nil
}

// IncrementViews bumps the view counter.
func (r *Repository) IncrementViews(ctx context.Context, id uuid.UUID) error {
	return r.increment(ctx, id, "views")
}

// IncrementDownloads bumps the download counter.
func (r *Repository) IncrementDownloads(ctx context.Context, id uuid.UUID) error {
	return r.increment(ctx, id, "downloads")
}

func (r *Repository) increment(ctx context.Context, id uuid.UUID, column string) error {
	res := r.DB(ctx).
		Model(&models.Event{}).
		Where("id = ?", id).
		UpdateColumn(column, gorm.Expr(column+" + 1"))
	if res.Error != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, res.Error, "increment event "+column)
	}
	if res.RowsAffected == 0 {
		return pkgerrors.New(pkgerrors.CodeNotFound, "event not found")
	}
	return nil
}

// Delete removes the event and every media row attached to it.
func (r *Repository) Delete(ctx context.Context, id uuid.UUID) error {
	err := r.InTx(ctx, func(ctx context.Context) error {
		if err := r.DB(ctx).Where("event_id = ?", id).Delete(&models.MediaItem{}).Error; err != nil {
			return err
		}
		return r.DB(ctx).Where("id = ?", id).Delete(&models.Event{}).Error
	})
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "delete event")
	}
	return nil
}

// ListExpired returns events whose expiry is before cutoff, oldest first.
func (r *Repository) ListExpired(ctx context.Context, cutoff time.Time, limit int) ([]models.Event, error) {
	var rows []models.Event
	err := r.DB(ctx).
		Where("expires_at IS NOT NULL AND expires_at < ?", cutoff).
		Order("expires_at ASC").
		Limit(limit).
		Find(&rows).Error
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list expired events")
	}
	return rows, nil
}
