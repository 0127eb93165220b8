package database

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestMigrationNamesAreOrdered(t *testing.T) {
	req := require.New(t)
	names, err := migrationNames()
	req.NoError(err)
	req.Equal([]string{"001_relay.sql", "002_recordings.sql"}, names)

	for _, n := range names {
		sql, err := migrationsFS.ReadFile("migrations/" + n)
		req.NoError(err)
		req.Contains(string(sql), "CREATE TABLE IF NOT EXISTS")
	}
}
