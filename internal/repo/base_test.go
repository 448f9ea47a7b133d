package repo

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

type counter struct {
	ID    int `gorm:"primaryKey"`
	Value int
}

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	conn, err := gorm.Open(sqlite.Open("file::memory:"), &gorm.Config{})
	require.NoError(t, err)
	sqlDB, err := conn.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	require.NoError(t, conn.AutoMigrate(&counter{}))
	return conn
}

func TestBaseDBBindsContext(t *testing.T) {
	db := newTestDB(t)
	base := NewBase(db)

	ctx := context.WithValue(context.Background(), struct{}{}, "value")
	assert.Equal(t, ctx, base.DB(ctx).Statement.Context)
	assert.Same(t, db, base.DB(nil))
}

func TestInTxRollsBackOnError(t *testing.T) {
	db := newTestDB(t)
	base := NewBase(db)
	ctx := context.Background()

	boom := errors.New("boom")
	err := base.InTx(ctx, func(ctx context.Context) error {
		require.NoError(t, base.DB(ctx).Create(&counter{ID: 1, Value: 1}).Error)
		return boom
	})
	require.ErrorIs(t, err, boom)

	var count int64
	require.NoError(t, base.DB(ctx).Model(&counter{}).Count(&count).Error)
	assert.Zero(t, count)
}

func TestInTxNestedCallsShareTransaction(t *testing.T) {
	db := newTestDB(t)
	base := NewBase(db)
	ctx := context.Background()

	err := base.InTx(ctx, func(outer context.Context) error {
		if err := base.DB(outer).Create(&counter{ID: 1, Value: 1}).Error; err != nil {
			return err
		}
		inner := base.InTx(outer, func(inner context.Context) error {
			var row counter
			if err := base.DB(inner).First(&row, 1).Error; err != nil {
				return err
			}
			return base.DB(inner).Model(&row).Update("value", 2).Error
		})
		if inner != nil {
			return inner
		}
		return errors.New("abort")
	})
	require.EqualError(t, err, "abort")

	var count int64
	require.NoError(t, base.DB(ctx).Model(&counter{}).Count(&count).Error)
	assert.Zero(t, count, "inner work must roll back with the outer transaction")
}
