package ops

import (
	"os"
	"path/filepath"
	"runtime"
	"testing"

	"github.com/stretchr/testify/require"

	rerrors "github.com/hpungsan/reblock/internal/errors"
)

func TestOpenImportFile(t *testing.T) {
	dir := t.TempDir()
	target := filepath.Join(dir, "pages.jsonl")
	require.NoError(t, os.WriteFile(target, []byte("{}\n"), 0600))

	f, err := openImportFile(target)
	require.NoError(t, err)
	require.NoError(t, f.Close())

	_, err = openImportFile(filepath.Join(dir, "missing.jsonl"))
	requireCode(t, err, rerrors.ErrFileNotFound)
}

func TestOpenImportFile_Symlink(t *testing.T) {
	dir := t.TempDir()
	target := filepath.Join(dir, "pages.jsonl")
	require.NoError(t, os.WriteFile(target, []byte("{}\n"), 0600))
	link := filepath.Join(dir, "link.jsonl")
	if err := os.Symlink(target, link); err != nil {
		t.Skipf("symlinks unavailable: %v", err)
	}
	if runtime.GOOS == "windows" {
		t.Skip("no-follow opens are unix only")
	}

	_, err := openImportFile(link)
	requireCode(t, err, rerrors.ErrInvalidRequest)
}

func TestCreateExportTemp(t *testing.T) {
	dest := filepath.Join(t.TempDir(), "nested", "pages.jsonl")

	f, tempPath, err := createExportTemp(dest)
	require.NoError(t, err)
	defer f.Close()

	require.Equal(t, filepath.Dir(dest), filepath.Dir(tempPath))
	require.Equal(t, ".tmp", filepath.Ext(tempPath))
	info, err := os.Stat(tempPath)
	require.NoError(t, err)
	require.Equal(t, os.FileMode(0600), info.Mode().Perm())

	_, other, err := createExportTemp(dest)
	require.NoError(t, err)
	require.NotEqual(t, tempPath, other)
}

func TestFinalizeExport(t *testing.T) {
	dir := t.TempDir()
	dest := filepath.Join(dir, "pages.jsonl")
	require.NoError(t, os.WriteFile(dest, []byte("old\n"), 0600))

	temp := filepath.Join(dir, "pages.jsonl.1.tmp")
	require.NoError(t, os.WriteFile(temp, []byte("new\n"), 0600))
	require.NoError(t, finalizeExport(temp, dest))

	data, err := os.ReadFile(dest)
	require.NoError(t, err)
	require.Equal(t, "new\n", string(data))
	_, err = os.Stat(temp)
	require.True(t, os.IsNotExist(err))
}

func TestFinalizeExport_SymlinkDestination(t *testing.T) {
	dir := t.TempDir()
	elsewhere := filepath.Join(t.TempDir(), "victim.jsonl")
	require.NoError(t, os.WriteFile(elsewhere, []byte("keep\n"), 0600))

	dest := filepath.Join(dir, "pages.jsonl")
	if err := os.Symlink(elsewhere, dest); err != nil {
		t.Skipf("symlinks unavailable: %v", err)
	}
	temp := filepath.Join(dir, "pages.jsonl.1.tmp")
	require.NoError(t, os.WriteFile(temp, []byte("new\n"), 0600))

	requireCode(t, finalizeExport(temp, dest), rerrors.ErrInvalidRequest)

	data, err := os.ReadFile(elsewhere)
	require.NoError(t, err)
	require.Equal(t, "keep\n", string(data))
}
