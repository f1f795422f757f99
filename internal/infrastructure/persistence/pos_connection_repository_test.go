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

func setupPOSConnectionTestDB(t *testing.T) *gorm.DB {
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	require.NoError(t, err)

	err = db.AutoMigrate(&pos.Connection{})
	require.NoError(t, err)

	return db
}

func newTestPOSConnection(t *testing.T, tenantID uuid.UUID, systemID string) *pos.Connection {
	conn, err := pos.NewConnection(tenantID, systemID, systemID+" main")
	require.NoError(t, err)
	return conn
}

func TestGormPOSConnectionRepository_SaveAndFind(t *testing.T) {
	db := setupPOSConnectionTestDB(t)
	repo := NewGormPOSConnectionRepository(db)
	ctx := context.Background()

	t.Run("saves and finds by system", func(t *testing.T) {
		tenantID := uuid.New()
		conn := newTestPOSConnection(t, tenantID, "cloudpos")
		require.NoError(t, repo.Save(ctx, conn))

		found, err := repo.FindBySystem(ctx, tenantID, "cloudpos")
		require.NoError(t, err)
		assert.Equal(t, conn.ID, found.ID)
		assert.Equal(t, "cloudpos main", found.Name)
	})

	t.Run("finds by aggregate id", func(t *testing.T) {
		tenantID := uuid.New()
		conn := newTestPOSConnection(t, tenantID, "cloudpos")
		require.NoError(t, repo.Save(ctx, conn))

		found, err := repo.FindByID(ctx, conn.ID)
		require.NoError(t, err)
		assert.Equal(t, "cloudpos", found.SystemID)
	})

	t.Run("returns ErrNotFound for unknown system", func(t *testing.T) {
		_, err := repo.FindBySystem(ctx, uuid.New(), "ghost-pos")
		assert.ErrorIs(t, err, shared.ErrNotFound)
	})

	t.Run("returns ErrNotFound for unknown id", func(t *testing.T) {
		_, err := repo.FindByID(ctx, uuid.New())
		assert.ErrorIs(t, err, shared.ErrNotFound)
	})
}

func TestGormPOSConnectionRepository_FindSyncable(t *testing.T) {
	db := setupPOSConnectionTestDB(t)
	repo := NewGormPOSConnectionRepository(db)
	ctx := context.Background()

	verified := newTestPOSConnection(t, uuid.New(), "cloudpos")
	require.NoError(t, verified.Configure("vault:p1"))
	require.NoError(t, verified.MarkVerified(time.Now()))
	require.NoError(t, repo.Save(ctx, verified))

	errored := newTestPOSConnection(t, uuid.New(), "cloudpos")
	require.NoError(t, errored.Configure("vault:p2"))
	require.NoError(t, errored.MarkVerified(time.Now()))
	errored.MarkError("provider timeout")
	require.NoError(t, repo.Save(ctx, errored))

	configured := newTestPOSConnection(t, uuid.New(), "cloudpos")
	require.NoError(t, configured.Configure("vault:p3"))
	require.NoError(t, repo.Save(ctx, configured))

	unconfigured := newTestPOSConnection(t, uuid.New(), "cloudpos")
	require.NoError(t, repo.Save(ctx, unconfigured))

	t.Run("includes verified and errored connections only", func(t *testing.T) {
		conns, err := repo.FindSyncable(ctx)
		require.NoError(t, err)
		require.Len(t, conns, 2)
		for _, conn := range conns {
			assert.True(t, conn.IsSyncable())
		}
	})
}

func TestGormPOSConnectionRepository_FindAllForTenant(t *testing.T) {
	db := setupPOSConnectionTestDB(t)
	repo := NewGormPOSConnectionRepository(db)
	ctx := context.Background()
	tenantID := uuid.New()

	for _, systemID := range []string{"squarepos", "cloudpos"} {
		conn := newTestPOSConnection(t, tenantID, systemID)
		require.NoError(t, repo.Save(ctx, conn))
	}
	other := newTestPOSConnection(t, uuid.New(), "cloudpos")
	require.NoError(t, repo.Save(ctx, other))

	conns, err := repo.FindAllForTenant(ctx, tenantID)
	require.NoError(t, err)
	require.Len(t, conns, 2)
	assert.Equal(t, "cloudpos", conns[0].SystemID)
	assert.Equal(t, "squarepos", conns[1].SystemID)
}

func TestGormPOSConnectionRepository_Delete(t *testing.T) {
	db := setupPOSConnectionTestDB(t)
	repo := NewGormPOSConnectionRepository(db)
	ctx := context.Background()

	t.Run("deletes an existing connection", func(t *testing.T) {
		conn := newTestPOSConnection(t, uuid.New(), "cloudpos")
		require.NoError(t, repo.Save(ctx, conn))

		require.NoError(t, repo.Delete(ctx, conn.ID))

		_, err := repo.FindByID(ctx, conn.ID)
		assert.ErrorIs(t, err, shared.ErrNotFound)
	})

	t.Run("returns ErrNotFound when nothing was deleted", func(t *testing.T) {
		err := repo.Delete(ctx, uuid.New())
		assert.ErrorIs(t, err, shared.ErrNotFound)
	})
}
