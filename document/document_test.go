package document

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestResolvePath(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "notes.txt"), []byte("hello"), 0o644))
	require.NoError(t, os.Mkdir(filepath.Join(dir, "sub"), 0o755))

	path, err := ResolvePath(dir, "notes.txt")
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "notes.txt"), path)

	_, err = ResolvePath(dir, "")
	assert.ErrorIs(t, err, ErrFilenameRequired)

	_, err = ResolvePath(dir, "report.txt")
	assert.ErrorIs(t, err, ErrFileNotFound)
	assert.Contains(t, err.Error(), "report.txt")

	_, err = ResolvePath(dir, "sub")
	assert.ErrorIs(t, err, ErrFileNotFound)

	_, err = ResolvePath(dir, "../etc/passwd")
	assert.ErrorIs(t, err, ErrFileNotFound)
}

func TestFileReader(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "bom.txt")
	require.NoError(t, os.WriteFile(path, append([]byte{0xEF, 0xBB, 0xBF}, "text body"...), 0o644))

	text, err := NewFileReader().GetFileContent(context.Background(), path)
	require.NoError(t, err)
	assert.Equal(t, "text body", text)

	_, err = NewFileReader().GetFileContent(context.Background(), filepath.Join(dir, "missing.txt"))
	assert.ErrorIs(t, err, ErrFileNotFound)

	bin := filepath.Join(dir, "bin.dat")
	require.NoError(t, os.WriteFile(bin, []byte{0xff, 0xfe, 0x00}, 0o644))
	_, err = NewFileReader().GetFileContent(context.Background(), bin)
	assert.ErrorIs(t, err, ErrNotText)
}
