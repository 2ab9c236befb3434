package ops

import (
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"github.com/hpungsan/reblock/internal/config"
	"github.com/hpungsan/reblock/internal/errors"
)

// PathCheckMode indicates whether the path check is for reading or writing.
type PathCheckMode int

const (
	PathCheckRead  PathCheckMode = iota // import
	PathCheckWrite                      // export
)

// ValidatePath checks an import or export path.
//
// A path is accepted when it names a .jsonl file with no ".." component that
// sits directly in the exports directory or one of cfg.AllowedPaths. Only the
// last component is opened without following symlinks, so nested directories
// are refused. AllowUnsafePaths lifts the directory rule; symlinked files are
// refused regardless.
func ValidatePath(path string, mode PathCheckMode, cfg *config.Config) error {
	abs, err := exportFilePath(path)
	if err != nil {
		return err
	}

	if cfg == nil || !cfg.AllowUnsafePaths {
		if err := checkExportDir(filepath.Dir(abs), cfg); err != nil {
			return err
		}
	}

	info, err := os.Lstat(abs)
	switch {
	case os.IsNotExist(err):
		if mode == PathCheckRead {
			return errors.NewFileNotFound(path)
		}
	case err == nil && info.Mode()&os.ModeSymlink != 0:
		return errors.NewInvalidRequest("path must not be a symlink")
	}
	return nil
}

// exportFilePath validates the shape of path and returns it absolute.
func exportFilePath(path string) (string, error) {
	switch {
	case strings.TrimSpace(path) == "":
		return "", errors.NewInvalidRequest("path is required")
	case containsTraversal(path):
		return "", errors.NewInvalidRequest("path must not contain directory traversal (..)")
	case filepath.Ext(filepath.Clean(path)) != ".jsonl":
		return "", errors.NewInvalidRequest("path must have .jsonl extension")
	}
	abs, err := filepath.Abs(filepath.Clean(path))
	if err != nil {
		return "", errors.NewInvalidRequest(fmt.Sprintf("invalid path: %v", err))
	}
	return abs, nil
}

// checkExportDir requires dir to be one of the allowed directories itself,
// not a symlink to one and not beneath one.
func checkExportDir(dir string, cfg *config.Config) error {
	dirs, err := allowedDirs(cfg)
	if err != nil {
		return err
	}
	if !slices.Contains(dirs, filepath.Clean(dir)) {
		return errors.NewInvalidRequest(
			fmt.Sprintf("file must be directly in an allowed directory (no subdirectories); allowed: %v", dirs))
	}
	if info, err := os.Lstat(dir); err == nil && info.Mode()&os.ModeSymlink != 0 {
		return errors.NewInvalidRequest("parent directory must not be a symlink")
	}
	return nil
}

// ExportsDir returns the directory exports default to.
func ExportsDir(cfg *config.Config) (string, error) {
	if cfg != nil && cfg.ExportsDir != "" {
		return cfg.ExportsDir, nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", errors.NewInternal(fmt.Errorf("failed to get home directory: %w", err))
	}
	return filepath.Join(home, ".reblock", "exports"), nil
}

// allowedDirs returns the exports directory and the absolute entries of
// cfg.AllowedPaths, cleaned. Entries that are symlinks are replaced by their
// targets, so files are matched against real directories.
func allowedDirs(cfg *config.Config) ([]string, error) {
	exports, err := ExportsDir(cfg)
	if err != nil {
		return nil, err
	}
	candidates := []string{exports}
	if cfg != nil {
		for _, p := range cfg.AllowedPaths {
			if filepath.IsAbs(p) {
				candidates = append(candidates, p)
			}
		}
	}

	dirs := make([]string, 0, len(candidates))
	for _, c := range candidates {
		dir, err := filepath.Abs(filepath.Clean(c))
		if err != nil {
			return nil, errors.NewInvalidRequest(fmt.Sprintf("invalid allowed path: %v", err))
		}
		if info, err := os.Lstat(dir); err == nil && info.Mode()&os.ModeSymlink != 0 {
			if dir, err = filepath.EvalSymlinks(dir); err != nil {
				return nil, errors.NewInvalidRequest(fmt.Sprintf("cannot resolve symlink in allowed path: %v", err))
			}
		}
		dirs = append(dirs, dir)
	}
	return dirs, nil
}

// containsTraversal reports a ".." component under either separator.
func containsTraversal(path string) bool {
	return slices.Contains(strings.FieldsFunc(path, func(r rune) bool { return r == '/' || r == '\\' }), "..")
}
