// Package dbtest opens migrated in-memory SQLite stores for tests.
package dbtest

import (
	"strings"
	"testing"

	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/require"

	"github.com/fekuna/ronary-inventory-service/migrations"
	"github.com/fekuna/ronary-inventory-service/pkg/database"
)

// NewSQLite returns a fresh, migrated database private to the calling test.
func NewSQLite(t testing.TB) *sqlx.DB {
	t.Helper()

	name := strings.NewReplacer("/", "_", " ", "_", "#", "_").Replace(t.Name())
	db, err := database.Open(&database.Config{
		Driver: database.DriverSQLite,
		DSN:    "file:" + name + "?mode=memory&cache=shared&_foreign_keys=1",
	})
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	require.NoError(t, database.Migrate(db, migrations.FS))
	return db
}
