package db

import (
	"database/sql"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// openBare opens a sqlite database without the bootstrap DDL so migrations
// can be exercised from an empty schema.
func openBare(t *testing.T) *DB {
	t.Helper()
	raw, err := sql.Open("sqlite", filepath.Join(t.TempDir(), "migrate.db"))
	require.NoError(t, err)
	t.Cleanup(func() { raw.Close() })
	return &DB{raw}
}

func TestMigrateUpAndDown(t *testing.T) {
	database := openBare(t)

	require.NoError(t, database.MigrateUp("migrations"))

	version, dirty, err := database.MigrateVersion("migrations")
	require.NoError(t, err)
	assert.Equal(t, uint(1), version)
	assert.False(t, dirty)

	// Up again is a no-op.
	require.NoError(t, database.MigrateUp("migrations"))

	var count int
	require.NoError(t, database.QueryRow(
		`SELECT COUNT(*) FROM sqlite_master WHERE type='table' AND name='finger_events'`,
	).Scan(&count))
	assert.Equal(t, 1, count)

	require.NoError(t, database.MigrateDown("migrations"))

	require.NoError(t, database.QueryRow(
		`SELECT COUNT(*) FROM sqlite_master WHERE type='table' AND name='finger_events'`,
	).Scan(&count))
	assert.Equal(t, 0, count)
}
