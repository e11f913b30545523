package migrate

import (
	"database/sql"
	"path/filepath"
	"testing"
	"testing/fstest"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	_ "modernc.org/sqlite"
)

func openDB(t *testing.T) *sql.DB {
	t.Helper()
	db, err := sql.Open("sqlite", filepath.Join(t.TempDir(), "migrate.db"))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return db
}

var testMigrations = fstest.MapFS{
	"migrations/001_create_sites.up.sql":   {Data: []byte("CREATE TABLE sites (id INTEGER PRIMARY KEY, name TEXT);")},
	"migrations/001_create_sites.down.sql": {Data: []byte("DROP TABLE sites;")},
	"migrations/002_add_tilt.up.sql":       {Data: []byte("ALTER TABLE sites ADD COLUMN tilt REAL;")},
	"migrations/README.md":                 {Data: []byte("not a migration")},
}

func TestGetMigrations(t *testing.T) {
	migrations, err := NewFSProvider(testMigrations, "migrations", "").GetMigrations()
	require.NoError(t, err)
	require.Len(t, migrations, 2)

	assert.Equal(t, 1, migrations[0].Version)
	assert.Equal(t, "create sites", migrations[0].Name)
	assert.Contains(t, migrations[0].Up, "CREATE TABLE sites")
	assert.Equal(t, "DROP TABLE sites;", migrations[0].Down)
	assert.Equal(t, 2, migrations[1].Version)
	assert.Empty(t, migrations[1].Down)
}

func TestMigrateUp(t *testing.T) {
	db := openDB(t)
	m := NewMigrator(db, NewFSProvider(testMigrations, "migrations", "test_migrations"))

	pending, err := m.GetPendingMigrations()
	require.NoError(t, err)
	assert.Len(t, pending, 2)

	require.NoError(t, m.MigrateUp())
	version, err := m.GetCurrentVersion()
	require.NoError(t, err)
	assert.Equal(t, 2, version)

	_, err = db.Exec("INSERT INTO sites (name, tilt) VALUES ('roof', 15)")
	assert.NoError(t, err)

	// a second run has nothing to do
	require.NoError(t, m.MigrateUp())
	pending, err = m.GetPendingMigrations()
	require.NoError(t, err)
	assert.Empty(t, pending)
}

func TestMigrateUpRollsBackFailure(t *testing.T) {
	broken := fstest.MapFS{
		"migrations/001_create_sites.up.sql": {Data: []byte("CREATE TABLE sites (id INTEGER PRIMARY KEY);")},
		"migrations/002_broken.up.sql":       {Data: []byte("ALTER TABLE nowhere ADD COLUMN x REAL;")},
	}
	db := openDB(t)
	m := NewMigrator(db, NewFSProvider(broken, "migrations", ""))

	assert.ErrorContains(t, m.MigrateUp(), "migration 2")
	version, err := m.GetCurrentVersion()
	require.NoError(t, err)
	assert.Equal(t, 1, version)
}

func TestGetMigrationsMissingDir(t *testing.T) {
	_, err := NewFSProvider(fstest.MapFS{}, "migrations", "").GetMigrations()
	assert.Error(t, err)
}
