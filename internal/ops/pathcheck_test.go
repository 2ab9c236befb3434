package ops

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/hpungsan/reblock/internal/config"
	"github.com/hpungsan/reblock/internal/errors"
)

func TestValidatePath_TraversalRejected(t *testing.T) {
	cfg := config.DefaultConfig()

	tests := []struct {
		name string
		path string
	}{
		{"parent traversal", "../backup.jsonl"},
		{"deep traversal", "../../etc/backup.jsonl"},
		{"mid-path traversal", "/tmp/../etc/backup.jsonl"},
		{"backslash traversal", `exports\..\backup.jsonl`},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			err := ValidatePath(tc.path, PathCheckWrite, cfg)
			if !errors.Is(err, errors.ErrInvalidRequest) {
				t.Errorf("expected ErrInvalidRequest, got: %v", err)
			}
		})
	}
}

func TestValidatePath_ExtensionRequired(t *testing.T) {
	cfg := config.DefaultConfig()
	cfg.AllowUnsafePaths = true

	for _, path := range []string{"/tmp/backup", "/tmp/backup.json", "/tmp/backup.txt"} {
		err := ValidatePath(path, PathCheckWrite, cfg)
		if !errors.Is(err, errors.ErrInvalidRequest) {
			t.Errorf("ValidatePath(%q) = %v, want ErrInvalidRequest", path, err)
		}
	}
}

func TestValidatePath_EmptyPath(t *testing.T) {
	if err := ValidatePath("", PathCheckWrite, nil); !errors.Is(err, errors.ErrInvalidRequest) {
		t.Errorf("expected ErrInvalidRequest, got: %v", err)
	}
}

func TestValidatePath_Directories(t *testing.T) {
	exportsDir := t.TempDir()
	extraDir := t.TempDir()
	otherDir := t.TempDir()

	cfg := config.DefaultConfig()
	cfg.ExportsDir = exportsDir
	cfg.AllowedPaths = []string{extraDir, "relative/ignored"}

	tests := []struct {
		name    string
		path    string
		wantErr bool
	}{
		{"exports dir", filepath.Join(exportsDir, "pages.jsonl"), false},
		{"allowed path", filepath.Join(extraDir, "pages.jsonl"), false},
		{"subdirectory of exports dir", filepath.Join(exportsDir, "nested", "pages.jsonl"), true},
		{"outside allowed dirs", filepath.Join(otherDir, "pages.jsonl"), true},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			err := ValidatePath(tc.path, PathCheckWrite, cfg)
			if tc.wantErr && !errors.Is(err, errors.ErrInvalidRequest) {
				t.Errorf("expected ErrInvalidRequest, got: %v", err)
			}
			if !tc.wantErr && err != nil {
				t.Errorf("unexpected error: %v", err)
			}
		})
	}

	cfg.AllowUnsafePaths = true
	if err := ValidatePath(filepath.Join(otherDir, "pages.jsonl"), PathCheckWrite, cfg); err != nil {
		t.Errorf("AllowUnsafePaths should lift directory checks: %v", err)
	}
}

func TestValidatePath_ReadMissingFile(t *testing.T) {
	cfg := config.DefaultConfig()
	cfg.ExportsDir = t.TempDir()

	err := ValidatePath(filepath.Join(cfg.ExportsDir, "missing.jsonl"), PathCheckRead, cfg)
	if !errors.Is(err, errors.ErrFileNotFound) {
		t.Errorf("expected ErrFileNotFound, got: %v", err)
	}
}

func TestValidatePath_SymlinkRejected(t *testing.T) {
	dir := t.TempDir()
	target := filepath.Join(dir, "target.jsonl")
	if err := os.WriteFile(target, []byte("{}\n"), 0600); err != nil {
		t.Fatal(err)
	}
	link := filepath.Join(dir, "link.jsonl")
	if err := os.Symlink(target, link); err != nil {
		t.Skipf("symlinks unavailable: %v", err)
	}

	cfg := config.DefaultConfig()
	cfg.ExportsDir = dir
	cfg.AllowUnsafePaths = true

	for _, mode := range []PathCheckMode{PathCheckRead, PathCheckWrite} {
		if err := ValidatePath(link, mode, cfg); !errors.Is(err, errors.ErrInvalidRequest) {
			t.Errorf("mode %d: expected ErrInvalidRequest, got: %v", mode, err)
		}
	}
}

func TestExportsDir(t *testing.T) {
	cfg := config.DefaultConfig()
	cfg.ExportsDir = "/data/exports"
	if got, _ := ExportsDir(cfg); got != "/data/exports" {
		t.Errorf("ExportsDir = %q, want configured dir", got)
	}

	got, err := ExportsDir(nil)
	if err != nil {
		t.Fatalf("ExportsDir(nil) failed: %v", err)
	}
	if filepath.Base(got) != "exports" || filepath.Base(filepath.Dir(got)) != ".reblock" {
		t.Errorf("ExportsDir(nil) = %q, want ~/.reblock/exports", got)
	}
}
