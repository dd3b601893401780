package database

import (
	"testing"
	"testing/fstest"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadMigrations_Embedded(t *testing.T) {
	migrations, err := LoadMigrations(migrationsFS)
	require.NoError(t, err)
	require.NotEmpty(t, migrations)

	first := migrations[0]
	assert.Equal(t, "000001", first.Version)
	assert.Equal(t, "init", first.Description)
	assert.Contains(t, first.UpSQL, "CREATE TABLE yujo.reports")
	assert.NotEmpty(t, first.DownSQL)
}

func TestLoadMigrations_OrderAndFiltering(t *testing.T) {
	files := fstest.MapFS{
		"migrations/000002_members.up.sql":     {Data: []byte("B")},
		"migrations/000001_init.up.sql":        {Data: []byte("A")},
		"migrations/000001_init.down.sql":      {Data: []byte("a")},
		"migrations/000003_only_down.down.sql": {Data: []byte("c")},
		"migrations/README.md":                 {Data: []byte("ignored")},
		"migrations/nounderscore.up.sql":       {Data: []byte("ignored")},
	}

	migrations, err := LoadMigrations(files)
	require.NoError(t, err)
	require.Len(t, migrations, 2)
	assert.Equal(t, "000001", migrations[0].Version)
	assert.Equal(t, "a", migrations[0].DownSQL)
	assert.Equal(t, "000002", migrations[1].Version)
	assert.Equal(t, "members", migrations[1].Description)
}

func TestParseMigrationName(t *testing.T) {
	version, description, direction, ok := parseMigrationName("000004_report_indexes.up.sql")
	require.True(t, ok)
	assert.Equal(t, "000004", version)
	assert.Equal(t, "report_indexes", description)
	assert.Equal(t, "up", direction)

	_, _, _, ok = parseMigrationName("000004.up.sql")
	assert.False(t, ok)
}
