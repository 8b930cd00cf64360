package repositories

import (
	"context"
	"os"
	"testing"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yield-service/yield_service/internal/infrastructure/database"
	"github.com/yield-service/yield_service/pkg/logger"
)

func testDB(t *testing.T) *sqlx.DB {
	t.Helper()
	if testing.Short() {
		t.Skip("Skipping integration test in short mode")
	}
	url := os.Getenv("TEST_DATABASE_URL")
	if url == "" {
		t.Skip("TEST_DATABASE_URL not set")
	}

	db, err := sqlx.Connect("postgres", url)
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	require.NoError(t, database.RunMigrations(db.DB, "../../../migrations"))
	return db
}

func insertPlatform(t *testing.T, db *sqlx.DB, name string, visible bool) uuid.UUID {
	t.Helper()
	id := uuid.New()
	_, err := db.Exec(`INSERT INTO platforms (id, name, slug, protocol, is_visible) VALUES ($1, $2, $3, 'lido', $4)`,
		id, name, name+"-"+id.String()[:8], visible)
	require.NoError(t, err)
	t.Cleanup(func() { _, _ = db.Exec(`DELETE FROM platforms WHERE id = $1`, id) })
	return id
}

func insertPool(t *testing.T, db *sqlx.DB, platformID uuid.UUID, name string, tvl float64, visible bool) uuid.UUID {
	t.Helper()
	id := uuid.New()
	_, err := db.Exec(`INSERT INTO pools (id, platform_id, name, token_pair, token_address, token_symbol, tvl, raw_data, is_visible)
		VALUES ($1, $2, $3, 'stETH', '0xae7ab96520de3a18e5e111b5eaab095312d7fe84', 'stETH', $4, '{"underlyingToken":"0xae7ab96520de3a18e5e111b5eaab095312d7fe84"}', $5)`,
		id, platformID, name, tvl, visible)
	require.NoError(t, err)
	return id
}

func TestPoolRepository_GetByID(t *testing.T) {
	db := testDB(t)
	repo := NewPoolRepository(db, logger.NewNop())
	ctx := context.Background()

	platformID := insertPlatform(t, db, "lido", true)
	poolID := insertPool(t, db, platformID, "stETH staking", 1000, true)

	pool, err := repo.GetByID(ctx, poolID)
	require.NoError(t, err)
	require.NotNil(t, pool)
	assert.Equal(t, "stETH staking", pool.Name)
	assert.Equal(t, platformID, pool.Platform.ID)
	assert.True(t, pool.Visible())
	token, ok := pool.RawData.String("underlyingToken")
	assert.True(t, ok)
	assert.Equal(t, "0xae7ab96520de3a18e5e111b5eaab095312d7fe84", token)

	missing, err := repo.GetByID(ctx, uuid.New())
	require.NoError(t, err)
	assert.Nil(t, missing)
}

func TestPoolRepository_ListVisibleHidesUnpublished(t *testing.T) {
	db := testDB(t)
	repo := NewPoolRepository(db, logger.NewNop())
	ctx := context.Background()

	visible := insertPlatform(t, db, "morpho", true)
	hidden := insertPlatform(t, db, "hidden", false)
	big := insertPool(t, db, visible, "big", 9e12, true)
	small := insertPool(t, db, visible, "small", 8e12, true)
	insertPool(t, db, visible, "unlisted", 9.5e12, false)
	insertPool(t, db, hidden, "on hidden platform", 9.9e12, true)

	pools, err := repo.ListVisible(ctx, 2, 0)
	require.NoError(t, err)
	require.Len(t, pools, 2)
	assert.Equal(t, big, pools[0].ID)
	assert.Equal(t, small, pools[1].ID)

	platforms, err := NewPlatformRepository(db, logger.NewNop()).ListVisible(ctx)
	require.NoError(t, err)
	for _, p := range platforms {
		assert.NotEqual(t, hidden, p.ID)
	}
}
