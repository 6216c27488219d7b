package files

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFindInputFiles(t *testing.T) {
	base := t.TempDir()
	dir := filepath.Join(base, "logs")
	require.NoError(t, os.MkdirAll(filepath.Join(dir, "nested.csv"), 0755))
	for _, name := range []string{"b.xlsx", "a.csv", "notes.md", ".hidden.csv", "~$b.xlsx", "C.CSV"} {
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte("x"), 0644))
	}

	tests := []struct {
		name string
		dir  string
	}{
		{name: "relative to base", dir: "logs"},
		{name: "absolute", dir: dir},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := NewDiscovery(base).FindInputFiles(tt.dir)
			require.NoError(t, err)

			var names []string
			for _, f := range got {
				names = append(names, f.Name)
				assert.Equal(t, filepath.Join(dir, f.Name), f.Path)
			}
			assert.Equal(t, []string{"C.CSV", "a.csv", "b.xlsx"}, names)
		})
	}
}

func TestFindInputFiles_MissingDir(t *testing.T) {
	_, err := NewDiscovery(t.TempDir()).FindInputFiles("missing")
	assert.Error(t, err)
}

func TestLatest(t *testing.T) {
	dir := t.TempDir()
	old := time.Now().Add(-time.Hour)
	for _, name := range []string{"a.csv", "b.csv"} {
		p := filepath.Join(dir, name)
		require.NoError(t, os.WriteFile(p, []byte("x"), 0644))
		if name == "b.csv" {
			require.NoError(t, os.Chtimes(p, old, old))
		}
	}

	got, err := NewDiscovery("").Latest(dir)
	require.NoError(t, err)
	assert.Equal(t, "a.csv", got.Name)

	_, err = NewDiscovery("").Latest(t.TempDir())
	assert.Error(t, err)
}
