package migrations

import (
	"io/fs"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPgx5URL(t *testing.T) {
	assert.Equal(t, "pgx5://u:p@h:5432/db?sslmode=disable", pgx5URL("postgres://u:p@h:5432/db?sslmode=disable"))
	assert.Equal(t, "pgx5://u:p@h/db", pgx5URL("postgresql://u:p@h/db"))
	assert.Equal(t, "pgx5://ya/convertido", pgx5URL("pgx5://ya/convertido"))
}

func TestArchivosEmbebidosEnPares(t *testing.T) {
	entries, err := fs.ReadDir(files, "sql")
	require.NoError(t, err)

	ups, downs := 0, 0
	for _, e := range entries {
		switch {
		case strings.HasSuffix(e.Name(), ".up.sql"):
			ups++
		case strings.HasSuffix(e.Name(), ".down.sql"):
			downs++
		}
	}
	assert.Positive(t, ups)
	assert.Equal(t, ups, downs, "cada migración up necesita su down")
}

func TestEsquemaProtegeElLibro(t *testing.T) {
	body, err := fs.ReadFile(files, "sql/000001_init.up.sql")
	require.NoError(t, err)
	sql := string(body)
	assert.Contains(t, sql, "CHECK (quantity >= 0)")
	assert.Contains(t, sql, "new_quantity = previous_quantity + quantity_delta")
	assert.Contains(t, sql, "reference      VARCHAR(50) NOT NULL UNIQUE")
}
