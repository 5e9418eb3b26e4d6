package ingest

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/scan-io-git/scanio-audit/internal/config"
	"github.com/scan-io-git/scanio-audit/pkg/shared/errors"
)

func writeTree(t *testing.T, files map[string]string) string {
	t.Helper()
	root := t.TempDir()
	for name, body := range files {
		full := filepath.Join(root, filepath.FromSlash(name))
		require.NoError(t, os.MkdirAll(filepath.Dir(full), 0o755))
		require.NoError(t, os.WriteFile(full, []byte(body), 0o644))
	}
	return root
}

func TestLocalDirectory(t *testing.T) {
	root := writeTree(t, map[string]string{
		"A/a.js":              "a",
		"A/b.js":              "b",
		"B/c.js":              "c",
		"node_modules/dep.js": "dep",
		"B/.git/HEAD":         "ref",
	})

	local := NewLocal(config.Default().Ingestion, nil)
	d, err := local.Directory(context.Background(), root)
	require.NoError(t, err)

	var paths []string
	for _, f := range d.Files {
		paths = append(paths, f.RelPath)
	}
	assert.Equal(t, []string{"A/a.js", "A/b.js", "B/c.js"}, paths)
	assert.NoError(t, d.Validate())
}

func TestLocalDirectorySkipsTopLevelDirs(t *testing.T) {
	root := writeTree(t, map[string]string{
		"app.js":                  "app",
		".git/config":             "[core]",
		"node_modules/x/index.js": "x",
		"src/node_modules/y.js":   "y",
	})

	d, err := NewLocal(config.Ingestion{SkipDirs: config.DefaultSkipDirs}, nil).Directory(context.Background(), root)
	require.NoError(t, err)
	require.Len(t, d.Files, 1)
	assert.Equal(t, "app.js", d.Files[0].RelPath)
	assert.Nil(t, d.Warning)
}

func TestLocalDirectoryRejectsFile(t *testing.T) {
	root := writeTree(t, map[string]string{"main.py": "x"})

	_, err := NewLocal(config.Default().Ingestion, nil).Directory(context.Background(), filepath.Join(root, "main.py"))
	var vErr *errors.ValidationError
	require.ErrorAs(t, err, &vErr)
	assert.Equal(t, "path", vErr.Field)

	_, err = NewLocal(config.Default().Ingestion, nil).Directory(context.Background(), filepath.Join(root, "missing"))
	assert.ErrorAs(t, err, &vErr)
}

func TestLocalFiles(t *testing.T) {
	root := writeTree(t, map[string]string{"x/one.py": "1", "y/two.py": "2"})

	d, err := NewLocal(config.Default().Ingestion, nil).Files(context.Background(), []string{
		filepath.Join(root, "x", "one.py"),
		filepath.Join(root, "y", "two.py"),
	})
	require.NoError(t, err)
	require.Len(t, d.Files, 2)
	assert.Equal(t, SourceFile{RelPath: "one.py", Content: []byte("1")}, d.Files[0])
	assert.Equal(t, SourceFile{RelPath: "two.py", Content: []byte("2")}, d.Files[1])

	_, err = NewLocal(config.Default().Ingestion, nil).Files(context.Background(), []string{filepath.Join(root, "x")})
	assert.EqualError(t, err, `invalid files: "x" is not a file`)
}
