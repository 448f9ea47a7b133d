package quota

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	pkgdb "github.com/snapwall/snapwall-backend/pkg/db"
	"github.com/snapwall/snapwall-backend/pkg/db/models"
	pkgerrors "github.com/snapwall/snapwall-backend/pkg/errors"
)

const (
	reserveSQL = `UPDATE quota_accounts
SET storage_used_bytes = storage_used_bytes + ?, updated_at = ?
WHERE user_id = ?
  AND (storage_limit_bytes = -1 OR storage_used_bytes + ? <= storage_limit_bytes)`

	releaseSQL = `UPDATE quota_accounts
SET storage_used_bytes = CASE WHEN storage_used_bytes < ? THEN 0 ELSE storage_used_bytes - ? END,
    updated_at = ?
WHERE user_id = ?`
)

// Ledger accounts storage bytes per registered user. Every mutation is a single atomic statement.
type Ledger interface {
	Reserve(ctx context.Context, userID uuid.UUID, delta int64) (bool, error)
	Release(ctx context.Context, userID uuid.UUID, delta int64) error
	EnsureAccount(ctx context.Context, userID uuid.UUID, limit int64) error
	Get(ctx context.Context, userID uuid.UUID) (*models.QuotaAccount, error)
	SetLimit(ctx context.Context, userID uuid.UUID, limit int64) error
}

type ledger struct {
	db           *gorm.DB
	defaultLimit int64
	now          func() time.Time
}

// NewLedger returns a gorm-backed ledger. Accounts created on demand receive defaultLimit.
func NewLedger(db *gorm.DB, defaultLimit int64) (Ledger, error) {
	if db == nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "database is required")
	}
	if defaultLimit < models.UnlimitedStorageBytes {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "default limit must be -1 or non-negative")
	}
	return &ledger{db: db, defaultLimit: defaultLimit, now: time.Now}, nil
}

// Reserve increments usage by delta only when the result stays within the limit.
// A missing account is provisioned once and the increment retried.
func (l *ledger) Reserve(ctx context.Context, userID uuid.UUID, delta int64) (bool, error) {
	if err := validateArgs(userID, delta); err != nil {
		return false, err
	}

	ok, err := l.tryReserve(ctx, userID, delta)
	if err != nil || ok {
		return ok, err
	}

	exists, err := l.accountExists(ctx, userID)
	if err != nil {
		return false, err
	}
	if exists {
		return false, nil
	}
	if err := l.EnsureAccount(ctx, userID, l.defaultLimit); err != nil {
		return false, err
	}
	return l.tryReserve(ctx, userID, delta)
}

func (l *ledger) tryReserve(ctx context.Context, userID uuid.UUID, delta int64) (bool, error) {
	res := l.db.WithContext(ctx).Exec(reserveSQL, delta, l.now().UTC(), userID, delta)
	if res.Error != nil {
		return false, pkgerrors.Wrap(pkgerrors.CodeDependency, res.Error, "reserve quota")
	}
	return res.RowsAffected == 1, nil
}

// Release decrements usage by delta, clamped at zero.
func (l *ledger) Release(ctx context.Context, userID uuid.UUID, delta int64) error {
	if err := validateArgs(userID, delta); err != nil {
		return err
	}
	if err := l.db.WithContext(ctx).Exec(releaseSQL, delta, delta, l.now().UTC(), userID).Error; err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "release quota")
	}
	return nil
}

// EnsureAccount creates the account with limit when missing. Existing accounts are untouched.
func (l *ledger) EnsureAccount(ctx context.Context, userID uuid.UUID, limit int64) error {
	if userID == uuid.Nil {
		return pkgerrors.New(pkgerrors.CodeValidation, "user id is required")
	}
	if limit < models.UnlimitedStorageBytes {
		return pkgerrors.New(pkgerrors.CodeValidation, "limit must be -1 or non-negative")
	}
	account := models.QuotaAccount{
		UserID:            userID,
		StorageLimitBytes: limit,
	}
	err := l.db.WithContext(ctx).
		Clauses(clause.OnConflict{Columns: []clause.Column{{Name: "user_id"}}, DoNothing: true}).
		Create(&account).Error
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "provision quota account")
	}
	return nil
}

func (l *ledger) Get(ctx context.Context, userID uuid.UUID) (*models.QuotaAccount, error) {
	var account models.QuotaAccount
	err := l.db.WithContext(ctx).Where("user_id = ?", userID).First(&account).Error
	if err != nil {
		if pkgdb.IsNotFound(err) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "quota account not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load quota account")
	}
	return &account, nil
}

// SetLimit changes the ceiling only. Usage above a lowered limit blocks further reserves.
func (l *ledger) SetLimit(ctx context.Context, userID uuid.UUID, limit int64) error {
	if limit < models.UnlimitedStorageBytes {
		return pkgerrors.New(pkgerrors.CodeValidation, "limit must be -1 or non-negative")
	}
	if err := l.EnsureAccount(ctx, userID, limit); err != nil {
		return err
	}
	err := l.db.WithContext(ctx).
		Model(&models.QuotaAccount{}).
		Where("user_id = ?", userID).
		Updates(map[string]any{"storage_limit_bytes": limit, "updated_at": l.now().UTC()}).Error
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update quota limit")
	}
	return nil
}

func (l *ledger) accountExists(ctx context.Context, userID uuid.UUID) (bool, error) {
	var count int64
	if err := l.db.WithContext(ctx).Model(&models.QuotaAccount{}).Where("user_id = ?", userID).Count(&count).Error; err != nil {
		return false, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "lookup quota account")
	}
	return count > 0, nil
}

func validateArgs(userID uuid.UUID, delta int64) error {
	if userID == uuid.Nil {
		return pkgerrors.New(pkgerrors.CodeValidation, "user id is required")
	}
	if delta <= 0 {
		return pkgerrors.New(pkgerrors.CodeValidation, "delta must be positive")
	}
	return nil
}
