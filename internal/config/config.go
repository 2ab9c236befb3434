package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

// Config holds application configuration.
type Config struct {
	// FetchTimeoutSeconds bounds page and image downloads
	FetchTimeoutSeconds int `json:"fetch_timeout_seconds"`

	// UserAgent is sent with every outbound page or image request
	UserAgent string `json:"user_agent,omitempty"`

	// TextGenCommand is the argv of the local text-generation process.
	// The instruction is appended as the final argument.
	TextGenCommand []string `json:"text_gen_command,omitempty"`

	// TextGenTimeoutSeconds bounds one text-generation run
	TextGenTimeoutSeconds int `json:"text_gen_timeout_seconds"`

	// ImageGenURL is the img2img endpoint of the local image service
	ImageGenURL string `json:"image_gen_url,omitempty"`

	// ImageGenTimeoutSeconds bounds one image-generation request
	ImageGenTimeoutSeconds int `json:"image_gen_timeout_seconds"`

	// ExportsDir is where export files go when no path is given.
	// Empty means <base dir>/exports.
	ExportsDir string `json:"exports_dir,omitempty"`

	// AllowedPaths is an allowlist of extra directories for import and export.
	// Paths should be absolute (relative paths are ignored).
	AllowedPaths []string `json:"allowed_paths,omitempty"`

	// AllowUnsafePaths disables directory restrictions for import and export.
	// Symlink and extension checks still apply.
	AllowUnsafePaths bool `json:"allow_unsafe_paths,omitempty"`

	// DBMaxOpenConns limits the maximum number of open database connections.
	// 0 means use sql.DB default (unlimited).
	DBMaxOpenConns int `json:"db_max_open_conns,omitempty"`

	// DBMaxIdleConns limits the maximum number of idle database connections.
	// 0 means use sql.DB default.
	DBMaxIdleConns int `json:"db_max_idle_conns,omitempty"`

	// LogLevel is one of debug, info, warn, error
	LogLevel string `json:"log_level,omitempty"`

	// DisabledTools is a list of MCP tool names to exclude from registration.
	// Unknown tool names are logged as warnings.
	DisabledTools []string `json:"disabled_tools,omitempty"`
}

// DefaultConfig returns the default configuration.
func DefaultConfig() *Config {
	return &Config{
		FetchTimeoutSeconds:    10,
		UserAgent:              "reblock/1.0",
		TextGenCommand:         []string{"ollama", "run", "llama3"},
		TextGenTimeoutSeconds:  120,
		ImageGenURL:            "http://127.0.0.1:7860/sdapi/v1/img2img",
		ImageGenTimeoutSeconds: 120,
		LogLevel:               "info",
	}
}

// Load loads configuration from baseDir/config.json and applies environment overrides.
// Returns default config if the file doesn't exist.
// The baseDir parameter allows tests to use t.TempDir() instead of ~/.reblock.
func Load(baseDir string) (*Config, error) {
	cfg, err := loadFile(filepath.Join(baseDir, "config.json"))
	if err != nil {
		return nil, err
	}
	if err := ApplyEnv(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// LoadWithRepo loads configuration from both global (~/.reblock) and project (.reblock) directories.
// Project config is found by walking upward from startDir to find the nearest .reblock/config.json.
// Project config takes precedence for scalar values; disabled tools are merged (deduplicated).
// Either or both configs may be missing. Environment overrides apply last.
func LoadWithRepo(globalDir, startDir string) (*Config, error) {
	global, err := loadFileRaw(filepath.Join(globalDir, "config.json"))
	if err != nil {
		return nil, err
	}

	repo, err := loadFileRaw(FindRepoConfig(startDir))
	if err != nil {
		return nil, err
	}

	cfg := Merge(Merge(DefaultConfig(), global), repo)
	if err := ApplyEnv(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// FindRepoConfig walks upward from startDir to find the nearest .reblock/config.json.
// Returns the path if found, or empty string if not found.
func FindRepoConfig(startDir string) string {
	if startDir == "" {
		return ""
	}
	dir := startDir
	for {
		configPath := filepath.Join(dir, ".reblock", "config.json")
		if _, err := os.Stat(configPath); err == nil {
			return configPath
		}

		parent := filepath.Dir(dir)
		if parent == dir {
			return ""
		}
		dir = parent
	}
}

// LoadEnvFiles loads .env files into the process environment.
// If ENV_FILE is set only that file is loaded; otherwise .env.local then .env.
// godotenv never overrides variables that are already set, so earlier files win.
func LoadEnvFiles() error {
	if envFile := os.Getenv("ENV_FILE"); envFile != "" {
		if err := godotenv.Load(envFile); err != nil && !os.IsNotExist(err) {
			return fmt.Errorf("load env file %s: %w", envFile, err)
		}
		return nil
	}

	for _, f := range []string{".env.local", ".env"} {
		if err := godotenv.Load(f); err != nil && !os.IsNotExist(err) {
			return fmt.Errorf("load %s: %w", f, err)
		}
	}
	return nil
}

// ApplyEnv overrides cfg with REBLOCK_* environment variables that are set.
func ApplyEnv(cfg *Config) error {
	ints := []struct {
		key string
		dst *int
	}{
		{"REBLOCK_FETCH_TIMEOUT", &cfg.FetchTimeoutSeconds},
		{"REBLOCK_TEXT_GEN_TIMEOUT", &cfg.TextGenTimeoutSeconds},
		{"REBLOCK_IMAGE_GEN_TIMEOUT", &cfg.ImageGenTimeoutSeconds},
	}
	for _, e := range ints {
		v, ok := os.LookupEnv(e.key)
		if !ok || strings.TrimSpace(v) == "" {
			continue
		}
		n, err := strconv.Atoi(strings.TrimSpace(v))
		if err != nil {
			return fmt.Errorf("%s must be an integer: %w", e.key, err)
		}
		if n <= 0 {
			return fmt.Errorf("%s must be a positive number of seconds, got %d", e.key, n)
		}
		*e.dst = n
	}

	if v := strings.TrimSpace(os.Getenv("REBLOCK_USER_AGENT")); v != "" {
		cfg.UserAgent = v
	}
	if v := strings.TrimSpace(os.Getenv("REBLOCK_IMAGE_GEN_URL")); v != "" {
		cfg.ImageGenURL = v
	}
	if v := strings.TrimSpace(os.Getenv("REBLOCK_LOG_LEVEL")); v != "" {
		cfg.LogLevel = v
	}
	if v := strings.Fields(os.Getenv("REBLOCK_TEXT_GEN_COMMAND")); len(v) > 0 {
		cfg.TextGenCommand = v
	}
	return nil
}

// loadFileRaw loads configuration from a specific file path.
// Returns zero-valued config if the file doesn't exist (not defaults).
func loadFileRaw(configPath string) (*Config, error) {
	if configPath == "" {
		return &Config{}, nil
	}
	data, err := os.ReadFile(configPath)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return &Config{}, nil
		}
		return nil, err
	}

	cfg := &Config{}
	if err := json.Unmarshal(data, cfg); err != nil {
		return nil, err
	}

	return cfg, nil
}

// loadFile loads configuration from a specific file path.
// Returns default config if the file doesn't exist.
func loadFile(configPath string) (*Config, error) {
	cfg, err := loadFileRaw(configPath)
	if err != nil {
		return nil, err
	}
	return Merge(DefaultConfig(), cfg), nil
}

// Merge combines base and overlay configs.
// Overlay values take precedence for scalars and the text-gen command;
// disabled tools are merged and deduplicated.
func Merge(base, overlay *Config) *Config {
	result := &Config{}

	result.FetchTimeoutSeconds = pickInt(overlay.FetchTimeoutSeconds, base.FetchTimeoutSeconds)
	result.TextGenTimeoutSeconds = pickInt(overlay.TextGenTimeoutSeconds, base.TextGenTimeoutSeconds)
	result.ImageGenTimeoutSeconds = pickInt(overlay.ImageGenTimeoutSeconds, base.ImageGenTimeoutSeconds)
	result.DBMaxOpenConns = pickInt(overlay.DBMaxOpenConns, base.DBMaxOpenConns)
	result.DBMaxIdleConns = pickInt(overlay.DBMaxIdleConns, base.DBMaxIdleConns)

	result.UserAgent = pickString(overlay.UserAgent, base.UserAgent)
	result.ImageGenURL = pickString(overlay.ImageGenURL, base.ImageGenURL)
	result.LogLevel = pickString(overlay.LogLevel, base.LogLevel)
	result.ExportsDir = pickString(overlay.ExportsDir, base.ExportsDir)

	result.AllowUnsafePaths = base.AllowUnsafePaths || overlay.AllowUnsafePaths

	// The command is an argv, not a set: replace wholesale.
	result.TextGenCommand = base.TextGenCommand
	if len(overlay.TextGenCommand) > 0 {
		result.TextGenCommand = overlay.TextGenCommand
	}

	result.AllowedPaths = mergeStringSlice(base.AllowedPaths, overlay.AllowedPaths)
	result.DisabledTools = mergeStringSlice(base.DisabledTools, overlay.DisabledTools)

	return result
}

func pickInt(overlay, base int) int {
	if overlay != 0 {
		return overlay
	}
	return base
}

func pickString(overlay, base string) string {
	if strings.TrimSpace(overlay) != "" {
		return overlay
	}
	return base
}

// mergeStringSlice combines two slices, trims whitespace, and removes duplicates.
func mergeStringSlice(a, b []string) []string {
	seen := make(map[string]bool)
	result := make([]string, 0, len(a)+len(b))

	for _, s := range append(append([]string{}, a...), b...) {
		s = strings.TrimSpace(s)
		if s != "" && !seen[s] {
			seen[s] = true
			result = append(result, s)
		}
	}

	if len(result) == 0 {
		return nil
	}
	return result
}
