package ops

import (
	"crypto/rand"
	"encoding/hex"
	stderrors "errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"runtime"

	"github.com/hpungsan/reblock/internal/errors"
)

// openImportFile opens a validated import path for reading.
func openImportFile(path string) (*os.File, error) {
	f, err := openNoFollow(path, os.O_RDONLY, 0)
	switch {
	case err == nil:
		return f, nil
	case stderrors.Is(err, fs.ErrNotExist):
		return nil, errors.NewFileNotFound(path)
	case isSymlinkLoop(err):
		return nil, errors.NewInvalidRequest("import path must not be a symlink")
	}
	return nil, errors.NewInternal(fmt.Errorf("failed to open import file: %w", err))
}

// createExportTemp creates a fresh sibling of dest for an export to be
// written to. The caller renames it over dest with finalizeExport.
func createExportTemp(dest string) (*os.File, string, error) {
	if err := os.MkdirAll(filepath.Dir(dest), 0700); err != nil {
		return nil, "", errors.NewInternal(fmt.Errorf("failed to create export directory: %w", err))
	}

	suffix := make([]byte, 8)
	if _, err := rand.Read(suffix); err != nil {
		return nil, "", errors.NewInternal(fmt.Errorf("failed to generate temp file name: %w", err))
	}
	tempPath := dest + "." + hex.EncodeToString(suffix) + ".tmp"

	f, err := openNoFollow(tempPath, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0600)
	if err != nil {
		return nil, "", errors.NewInternal(fmt.Errorf("failed to create export file: %w", err))
	}
	return f, tempPath, nil
}

// finalizeExport moves a completed temp file onto dest.
func finalizeExport(tempPath, dest string) error {
	// Rename replaces a symlink planted at dest after validation, but the
	// caller asked for a regular file there.
	if info, err := os.Lstat(dest); err == nil && info.Mode()&os.ModeSymlink != 0 {
		return errors.NewInvalidRequest("export path is a symlink")
	}

	if err := os.Rename(tempPath, dest); err != nil {
		if runtime.GOOS == "windows" {
			if _, statErr := os.Stat(dest); statErr == nil {
				return errors.NewInvalidRequest("export destination already exists; choose a new path or delete the existing file")
			}
		}
		return errors.NewInternal(fmt.Errorf("failed to finalize export: %w", err))
	}
	return nil
}
