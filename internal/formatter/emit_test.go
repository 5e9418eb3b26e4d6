package formatter

import (
	"bytes"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultFileName(t *testing.T) {
	assert.Equal(t, "scanio-audit-scan.sarif", DefaultFileName("scan", FormatSARIF))
	assert.Equal(t, "scanio-audit-scan.yml", DefaultFileName("scan", FormatYAML))
	assert.Equal(t, "scanio-audit-fix.txt", DefaultFileName("fix", FormatHuman))
}

func TestEmit(t *testing.T) {
	render := func(w io.Writer) error {
		_, err := fmt.Fprint(w, "report")
		return err
	}

	t.Run("stdout", func(t *testing.T) {
		var buf bytes.Buffer
		path, err := Emit(&buf, "", "unused.json", render)
		require.NoError(t, err)
		assert.Empty(t, path)
		assert.Equal(t, "report", buf.String())
	})

	t.Run("folder", func(t *testing.T) {
		dir := filepath.Join(t.TempDir(), "results")
		path, err := Emit(io.Discard, dir, "scan.json", render)
		require.NoError(t, err)
		assert.Equal(t, filepath.Join(dir, "scan.json"), path)

		data, err := os.ReadFile(path)
		require.NoError(t, err)
		assert.Equal(t, "report", string(data))
	})

	t.Run("file", func(t *testing.T) {
		target := filepath.Join(t.TempDir(), "out.sarif")
		path, err := Emit(io.Discard, target, "scan.json", render)
		require.NoError(t, err)
		assert.Equal(t, target, path)
	})
}

func TestProgressReturnsResult(t *testing.T) {
	var buf bytes.Buffer
	called := false
	err := Progress(&buf, "Scanning...", func() error {
		called = true
		return os.ErrNotExist
	})
	assert.True(t, called)
	assert.ErrorIs(t, err, os.ErrNotExist)

	buf.Reset()
	Success(&buf, "Scanned 3 files")
	Failure(&buf, "Verification failed")
	assert.Equal(t, "✓ Scanned 3 files\n✗ Verification failed\n", buf.String())
}
