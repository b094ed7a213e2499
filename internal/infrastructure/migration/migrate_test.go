package migration

import (
	"io/fs"
	"sort"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/portal/backend/migrations"
)

func TestEmbeddedMigrationsArePaired(t *testing.T) {
	entries, err := fs.ReadDir(migrations.FS, ".")
	require.NoError(t, err)

	ups := map[string]bool{}
	downs := map[string]bool{}
	for _, e := range entries {
		name := e.Name()
		switch {
		case strings.HasSuffix(name, ".up.sql"):
			ups[strings.TrimSuffix(name, ".up.sql")] = true
		case strings.HasSuffix(name, ".down.sql"):
			downs[strings.TrimSuffix(name, ".down.sql")] = true
		}
	}
	require.NotEmpty(t, ups)
	assert.Equal(t, ups, downs)
}

func TestSchemaCoversPortalTables(t *testing.T) {
	entries, err := fs.Glob(migrations.FS, "*.up.sql")
	require.NoError(t, err)
	sort.Strings(entries)

	var all strings.Builder
	for _, name := range entries {
		data, err := fs.ReadFile(migrations.FS, name)
		require.NoError(t, err)
		all.Write(data)
	}
	schema := all.String()

	for _, table := range []string{"users", "subsidiaries", "supplier_profiles", "purchase_orders", "receptions", "reception_articles", "invoices"} {
		assert.Contains(t, schema, "CREATE TABLE IF NOT EXISTS "+table+" (")
	}
	assert.Contains(t, schema, "CREATE UNIQUE INDEX IF NOT EXISTS idx_invoices_folio ON invoices (folio)")
	assert.Contains(t, schema, "sync_error    VARCHAR(255)")
}
