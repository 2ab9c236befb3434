package config

import (
	"os"
	"path/filepath"
	"reflect"
	"testing"
)

func writeConfig(t *testing.T, dir, body string) {
	t.Helper()
	if err := os.WriteFile(filepath.Join(dir, "config.json"), []byte(body), 0600); err != nil {
		t.Fatalf("WriteFile() error = %v", err)
	}
}

func TestLoad_DefaultWhenMissing(t *testing.T) {
	tmpDir := t.TempDir()

	cfg, err := Load(tmpDir)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if !reflect.DeepEqual(cfg, DefaultConfig()) {
		t.Fatalf("Load() = %+v, want defaults %+v", cfg, DefaultConfig())
	}
}

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()
	if cfg.FetchTimeoutSeconds != 10 {
		t.Errorf("FetchTimeoutSeconds = %d, want 10", cfg.FetchTimeoutSeconds)
	}
	if cfg.TextGenTimeoutSeconds != 120 {
		t.Errorf("TextGenTimeoutSeconds = %d, want 120", cfg.TextGenTimeoutSeconds)
	}
	if !reflect.DeepEqual(cfg.TextGenCommand, []string{"ollama", "run", "llama3"}) {
		t.Errorf("TextGenCommand = %v", cfg.TextGenCommand)
	}
	if cfg.ImageGenURL != "http://127.0.0.1:7860/sdapi/v1/img2img" {
		t.Errorf("ImageGenURL = %q", cfg.ImageGenURL)
	}
}

func TestLoad_OverridesFromFile(t *testing.T) {
	tmpDir := t.TempDir()
	writeConfig(t, tmpDir, `{"fetch_timeout_seconds": 3, "text_gen_command": ["llm", "-m", "mistral"], "log_level": "debug"}`)

	cfg, err := Load(tmpDir)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.FetchTimeoutSeconds != 3 {
		t.Errorf("FetchTimeoutSeconds = %d, want 3", cfg.FetchTimeoutSeconds)
	}
	if !reflect.DeepEqual(cfg.TextGenCommand, []string{"llm", "-m", "mistral"}) {
		t.Errorf("TextGenCommand = %v, want replaced argv", cfg.TextGenCommand)
	}
	if cfg.LogLevel != "debug" {
		t.Errorf("LogLevel = %q, want debug", cfg.LogLevel)
	}
	// Untouched values keep defaults.
	if cfg.TextGenTimeoutSeconds != 120 {
		t.Errorf("TextGenTimeoutSeconds = %d, want 120", cfg.TextGenTimeoutSeconds)
	}
}

func TestLoad_InvalidJSON(t *testing.T) {
	tmpDir := t.TempDir()
	writeConfig(t, tmpDir, `{not json}`)

	if _, err := Load(tmpDir); err == nil {
		t.Fatalf("Load() expected error, got nil")
	}
}

func TestLoad_DisabledTools(t *testing.T) {
	tmpDir := t.TempDir()
	writeConfig(t, tmpDir, `{"disabled_tools": ["page_clear", " page_delete ", "page_clear"]}`)

	cfg, err := Load(tmpDir)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	want := []string{"page_clear", "page_delete"}
	if !reflect.DeepEqual(cfg.DisabledTools, want) {
		t.Fatalf("DisabledTools = %v, want %v", cfg.DisabledTools, want)
	}
}

func TestLoad_EnvOverrides(t *testing.T) {
	tmpDir := t.TempDir()
	writeConfig(t, tmpDir, `{"image_gen_url": "http://file-value"}`)

	t.Setenv("REBLOCK_IMAGE_GEN_URL", "http://env-value/sdapi/v1/img2img")
	t.Setenv("REBLOCK_TEXT_GEN_TIMEOUT", "30")
	t.Setenv("REBLOCK_TEXT_GEN_COMMAND", "ollama run phi3")
	t.Setenv("REBLOCK_USER_AGENT", "tester/2")

	cfg, err := Load(tmpDir)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.ImageGenURL != "http://env-value/sdapi/v1/img2img" {
		t.Errorf("ImageGenURL = %q, env should win over file", cfg.ImageGenURL)
	}
	if cfg.TextGenTimeoutSeconds != 30 {
		t.Errorf("TextGenTimeoutSeconds = %d, want 30", cfg.TextGenTimeoutSeconds)
	}
	if !reflect.DeepEqual(cfg.TextGenCommand, []string{"ollama", "run", "phi3"}) {
		t.Errorf("TextGenCommand = %v", cfg.TextGenCommand)
	}
	if cfg.UserAgent != "tester/2" {
		t.Errorf("UserAgent = %q", cfg.UserAgent)
	}
}

func TestLoad_EnvInvalidInteger(t *testing.T) {
	t.Setenv("REBLOCK_FETCH_TIMEOUT", "soon")

	if _, err := Load(t.TempDir()); err == nil {
		t.Fatal("Load() expected error for non-integer timeout")
	}
}

func TestLoad_EnvNonPositiveTimeout(t *testing.T) {
	for _, key := range []string{"REBLOCK_FETCH_TIMEOUT", "REBLOCK_TEXT_GEN_TIMEOUT", "REBLOCK_IMAGE_GEN_TIMEOUT"} {
		for _, v := range []string{"0", "-5"} {
			t.Run(key+"="+v, func(t *testing.T) {
				t.Setenv(key, v)
				if _, err := Load(t.TempDir()); err == nil {
					t.Fatalf("Load() expected error for %s=%s", key, v)
				}
			})
		}
	}
}

func TestLoadEnvFiles_ExplicitFile(t *testing.T) {
	envPath := filepath.Join(t.TempDir(), "test.env")
	if err := os.WriteFile(envPath, []byte("REBLOCK_LOG_LEVEL=warn\n"), 0600); err != nil {
		t.Fatalf("WriteFile() error = %v", err)
	}

	t.Setenv("ENV_FILE", envPath)
	// Register cleanup for the variable godotenv is about to set.
	t.Setenv("REBLOCK_LOG_LEVEL", "")
	os.Unsetenv("REBLOCK_LOG_LEVEL")

	if err := LoadEnvFiles(); err != nil {
		t.Fatalf("LoadEnvFiles() error = %v", err)
	}
	if got := os.Getenv("REBLOCK_LOG_LEVEL"); got != "warn" {
		t.Errorf("REBLOCK_LOG_LEVEL = %q, want warn", got)
	}
}

func TestLoadEnvFiles_MissingFileIgnored(t *testing.T) {
	t.Setenv("ENV_FILE", filepath.Join(t.TempDir(), "does-not-exist.env"))

	if err := LoadEnvFiles(); err != nil {
		t.Fatalf("LoadEnvFiles() error = %v, want nil for missing file", err)
	}
}

func TestLoadWithRepo_BothPresent(t *testing.T) {
	globalDir := t.TempDir()
	repoRoot := t.TempDir()

	writeConfig(t, globalDir, `{"fetch_timeout_seconds": 20, "disabled_tools": ["page_clear"]}`)

	repoDir := filepath.Join(repoRoot, ".reblock")
	if err := os.MkdirAll(repoDir, 0755); err != nil {
		t.Fatalf("MkdirAll() error = %v", err)
	}
	writeConfig(t, repoDir, `{"fetch_timeout_seconds": 5, "disabled_tools": ["page_delete"]}`)

	nested := filepath.Join(repoRoot, "a", "b")
	if err := os.MkdirAll(nested, 0755); err != nil {
		t.Fatalf("MkdirAll() error = %v", err)
	}

	cfg, err := LoadWithRepo(globalDir, nested)
	if err != nil {
		t.Fatalf("LoadWithRepo() error = %v", err)
	}
	if cfg.FetchTimeoutSeconds != 5 {
		t.Errorf("FetchTimeoutSeconds = %d, want 5 (repo override)", cfg.FetchTimeoutSeconds)
	}
	want := []string{"page_clear", "page_delete"}
	if !reflect.DeepEqual(cfg.DisabledTools, want) {
		t.Errorf("DisabledTools = %v, want %v", cfg.DisabledTools, want)
	}
}

func TestLoadWithRepo_NeitherPresent(t *testing.T) {
	cfg, err := LoadWithRepo(t.TempDir(), t.TempDir())
	if err != nil {
		t.Fatalf("LoadWithRepo() error = %v", err)
	}
	if !reflect.DeepEqual(cfg, DefaultConfig()) {
		t.Errorf("LoadWithRepo() = %+v, want defaults", cfg)
	}
}

func TestMerge(t *testing.T) {
	base := DefaultConfig()
	overlay := &Config{ImageGenTimeoutSeconds: 45, DBMaxOpenConns: 1}

	got := Merge(base, overlay)
	if got.ImageGenTimeoutSeconds != 45 || got.DBMaxOpenConns != 1 {
		t.Errorf("overlay scalars not applied: %+v", got)
	}
	if got.UserAgent != base.UserAgent || got.ImageGenURL != base.ImageGenURL {
		t.Errorf("base strings lost: %+v", got)
	}
	if !reflect.DeepEqual(got.TextGenCommand, base.TextGenCommand) {
		t.Errorf("TextGenCommand = %v, want base", got.TextGenCommand)
	}
}

func TestMerge_ImportExportPaths(t *testing.T) {
	base := &Config{AllowedPaths: []string{"/data/a", " /data/b "}}
	overlay := &Config{AllowedPaths: []string{"/data/b"}, AllowUnsafePaths: true, ExportsDir: "/data/exports"}

	got := Merge(base, overlay)
	if !reflect.DeepEqual(got.AllowedPaths, []string{"/data/a", "/data/b"}) {
		t.Errorf("AllowedPaths = %v", got.AllowedPaths)
	}
	if !got.AllowUnsafePaths {
		t.Error("AllowUnsafePaths should stay true once set")
	}
	if got.ExportsDir != "/data/exports" {
		t.Errorf("ExportsDir = %q", got.ExportsDir)
	}
}
