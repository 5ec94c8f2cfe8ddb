//go:build !windows

package filesystem

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"vcf2json/pkg/contract"
)

// TestWritePermFile 原子写入后的文件权限
func TestWritePermFile(t *testing.T) {
	dir := t.TempDir()
	w, _ := New(&Options{PermFile: 0o600})
	dest := filepath.Join(dir, "out.json")
	require.NoError(t, w.Write(context.Background(), contract.ArtifactID(dest), bytes.NewBufferString("x")))
	fi, err := os.Stat(dest)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0o600), fi.Mode().Perm())
}
