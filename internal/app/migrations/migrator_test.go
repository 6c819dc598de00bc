package migrations

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestVersion(t *testing.T) {
	tests := []struct {
		file string
		want string
	}{
		{"001_init.sql", "001"},
		{"migrations/004_records_and_reports.sql", "004"},
		{"noversion.sql", "noversion.sql"},
	}
	for _, tt := range tests {
		t.Run(tt.file, func(t *testing.T) {
			assert.Equal(t, tt.want, Version(tt.file))
		})
	}
}

func TestPending_SortsAndFiltersSQLFiles(t *testing.T) {
	dir := t.TempDir()
	for _, name := range []string{"003_messages.sql", "001_init.sql", "README.md", "002_school.sql"} {
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte("--"), 0o600))
	}
	require.NoError(t, os.Mkdir(filepath.Join(dir, "999_dir.sql"), 0o755))

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)

	assert.Equal(t, []string{"001_init.sql", "002_school.sql", "003_messages.sql"}, Pending(entries))
}

func TestRepositoryMigrationsAreVersioned(t *testing.T) {
	entries, err := os.ReadDir("../../../migrations")
	require.NoError(t, err)

	seen := map[string]bool{}
	for _, file := range Pending(entries) {
		v := Version(file)
		assert.False(t, seen[v], "duplicate migration version %s", v)
		seen[v] = true
	}
	assert.NotEmpty(t, seen)
}
