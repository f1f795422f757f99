package persistence

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/restohub/backend/internal/domain/pos"
	"github.com/restohub/backend/internal/domain/shared"
)

func setupPOSCursorTestDB(t *testing.T) *gorm.DB {
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	require.NoError(t, err)

	err = db.AutoMigrate(&pos.Cursor{})
	require.NoError(t, err)

	return db
}

func TestGormPOSCursorRepository(t *testing.T) {
	db := setupPOSCursorTestDB(t)
	repo := NewGormPOSCursorRepository(db)
	ctx := context.Background()

	tenantID := uuid.New()
	connectionID := uuid.New()

	t.Run("saves and finds a cursor", func(t *testing.T) {
		cursor, err := pos.NewCursor(tenantID, connectionID, pos.StreamSales)
		require.NoError(t, err)
		require.NoError(t, repo.Save(ctx, cursor))

		found, err := repo.Find(ctx, connectionID, pos.StreamSales)
		require.NoError(t, err)
		assert.Equal(t, cursor.ID, found.ID)
		assert.Equal(t, "", found.Position)
	})

	t.Run("returns ErrNotFound for an unopened stream", func(t *testing.T) {
		_, err := repo.Find(ctx, connectionID, pos.StreamInventory)
		assert.ErrorIs(t, err, shared.ErrNotFound)
	})

	t.Run("advance persists position and sync time", func(t *testing.T) {
		found, err := repo.Find(ctx, connectionID, pos.StreamSales)
		require.NoError(t, err)

		found.Advance("evt-00042", time.Now())
		require.NoError(t, repo.Save(ctx, found))

		again, err := repo.Find(ctx, connectionID, pos.StreamSales)
		require.NoError(t, err)
		assert.Equal(t, "evt-00042", again.Position)
		assert.NotNil(t, again.LastSyncAt)
	})

	t.Run("lists all cursors of a connection", func(t *testing.T) {
		inv, err := pos.NewCursor(tenantID, connectionID, pos.StreamInventory)
		require.NoError(t, err)
		require.NoError(t, repo.Save(ctx, inv))

		otherConn, err := pos.NewCursor(tenantID, uuid.New(), pos.StreamSales)
		require.NoError(t, err)
		require.NoError(t, repo.Save(ctx, otherConn))

		cursors, err := repo.FindForConnection(ctx, connectionID)
		require.NoError(t, err)
		require.Len(t, cursors, 2)
		assert.Equal(t, pos.StreamInventory, cursors[0].Stream)
		assert.Equal(t, pos.StreamSales, cursors[1].Stream)
	})
}
