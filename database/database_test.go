package database

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mbolis/crowdsourcing/config"
)

func TestDSN(t *testing.T) {
	assert.Equal(t, "file:a.sqlite?_foreign_keys=on&_busy_timeout=5000", dsn("a.sqlite"))
	assert.Equal(t, "file:a.sqlite?mode=rwc&_foreign_keys=on&_busy_timeout=5000", dsn("file:a.sqlite?mode=rwc"))
}

func TestOpen_MigratesAndIsIdempotent(t *testing.T) {
	cfg := config.Config{DBUrl: filepath.Join(t.TempDir(), "test.sqlite")}

	db, err := Open(cfg)
	require.NoError(t, err)

	var n int
	err = db.QueryRow(`
		SELECT count(*) FROM sqlite_master
		WHERE type = 'table'
			AND name IN ('user', 'token', 'survey', 'question', 'submission', 'answer')`).
		Scan(&n)
	require.NoError(t, err)
	assert.Equal(t, 6, n)

	var fk bool
	require.NoError(t, db.QueryRow("PRAGMA foreign_keys").Scan(&fk))
	assert.True(t, fk)

	version, err := SchemaVersion(db)
	require.NoError(t, err)
	assert.Equal(t, uint(1), version)
	require.NoError(t, db.Close())

	// reopening an up to date database is not an error
	db, err = Open(cfg)
	require.NoError(t, err)
	require.NoError(t, db.Close())
}

func TestOpen_RefusesDirtySchema(t *testing.T) {
	cfg := config.Config{DBUrl: filepath.Join(t.TempDir(), "test.sqlite")}
	db, err := Open(cfg)
	require.NoError(t, err)
	_, err = db.Exec("UPDATE schema_migrations SET dirty = 1")
	require.NoError(t, err)
	require.NoError(t, db.Close())

	_, err = Open(cfg)
	var dirty errDirty
	require.ErrorAs(t, err, &dirty)
	assert.Equal(t, errDirty(1), dirty)
}
