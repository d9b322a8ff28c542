package db

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

type counter struct {
	ID    uint `gorm:"primaryKey"`
	Value int
}

func setupTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := "file:" + strings.ReplaceAll(t.Name(), "/", "_") + "?mode=memory&cache=shared"
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&counter{}))
	return db
}

func TestRunInTransaction_RollsBackOnError(t *testing.T) {
	db := setupTestDB(t)
	tm := NewTransactionManager(db)
	boom := errors.New("boom")

	err := tm.RunInTransaction(context.Background(), func(ctx context.Context) error {
		require.True(t, InTransaction(ctx))
		require.NoError(t, GetTxFromContext(ctx, db).Create(&counter{Value: 1}).Error)
		return boom
	})

	assert.ErrorIs(t, err, boom)
	var n int64
	require.NoError(t, db.Model(&counter{}).Count(&n).Error)
	assert.Zero(t, n)
}

func TestRunInTransaction_NestedCallJoinsOuter(t *testing.T) {
	db := setupTestDB(t)
	tm := NewTransactionManager(db)

	err := tm.RunInTransaction(context.Background(), func(ctx context.Context) error {
		outer := GetTxFromContext(ctx, db)
		if err := tm.RunInTransaction(ctx, func(inner context.Context) error {
			assert.Same(t, outer, GetTxFromContext(inner, db))
			return GetTxFromContext(inner, db).Create(&counter{Value: 2}).Error
		}); err != nil {
			return err
		}
		return errors.New("abort outer")
	})

	require.Error(t, err)
	var n int64
	require.NoError(t, db.Model(&counter{}).Count(&n).Error)
	assert.Zero(t, n, "inner write must roll back with the outer transaction")
}

func TestGetTxFromContext_OutsideTransaction(t *testing.T) {
	db := setupTestDB(t)
	assert.False(t, InTransaction(context.Background()))
	assert.NotNil(t, GetTxFromContext(context.Background(), db))
}
