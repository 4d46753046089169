package cli

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeManifest(t *testing.T, dir, content string) string {
	t.Helper()
	path := filepath.Join(dir, "dataset.cue")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoadManifest(t *testing.T) {
	dir := t.TempDir()
	path := writeManifest(t, dir, `
dataset: {
	name: "march-2023"
	sources: [
		{table: "suppliers", file: "suppliers.csv"},
		{table: "shops", file: "/data/shops.csv"},
	]
}
`)

	m, err := LoadManifest(path)
	require.NoError(t, err)

	assert.Equal(t, "march-2023", m.Name)
	require.Len(t, m.Sources, 2)
	// Relative files resolve against the manifest directory; absolute
	// paths pass through.
	assert.Equal(t, filepath.Join(dir, "suppliers.csv"), m.Sources[0].File)
	assert.Equal(t, "/data/shops.csv", m.Sources[1].File)
}

func TestLoadManifest_Invalid(t *testing.T) {
	tests := []struct {
		name     string
		manifest string
		wantErr  string
	}{
		{
			name:     "missing name",
			manifest: `dataset: {sources: [{table: "shops", file: "shops.csv"}]}`,
			wantErr:  "invalid manifest",
		},
		{
			name:     "empty name",
			manifest: `dataset: {name: "", sources: [{table: "shops", file: "shops.csv"}]}`,
			wantErr:  "invalid manifest",
		},
		{
			name:     "no sources",
			manifest: `dataset: {name: "x", sources: []}`,
			wantErr:  "has no sources",
		},
		{
			name:     "unknown table",
			manifest: `dataset: {name: "x", sources: [{table: "warehouses", file: "w.csv"}]}`,
			wantErr:  `unknown table "warehouses"`,
		},
		{
			name: "duplicate table",
			manifest: `dataset: {name: "x", sources: [
				{table: "shops", file: "a.csv"},
				{table: "shops", file: "b.csv"},
			]}`,
			wantErr: `table "shops" listed twice`,
		},
		{
			name:     "not cue",
			manifest: `{{{`,
			wantErr:  "manifest",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := writeManifest(t, t.TempDir(), tt.manifest)
			_, err := LoadManifest(path)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestLoadManifest_MissingFile(t *testing.T) {
	_, err := LoadManifest(filepath.Join(t.TempDir(), "nope.cue"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "reading manifest")
}
