package main

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/hpungsan/reblock/internal/config"
	"github.com/hpungsan/reblock/internal/db"
	"github.com/hpungsan/reblock/internal/fetch"
	"github.com/hpungsan/reblock/internal/logger"
	"github.com/hpungsan/reblock/internal/mcp"
	"github.com/hpungsan/reblock/internal/metrics"
	"github.com/hpungsan/reblock/internal/ops"
	"github.com/hpungsan/reblock/internal/transform"
)

// Version is set via -ldflags at build time.
var Version = "dev"

// cliCommands contains known CLI subcommands.
var cliCommands = map[string]bool{
	"serve": true, "scrape": true, "history": true, "show": true,
	"changed": true, "save": true, "transform": true, "img2img": true,
	"delete": true, "clear": true, "export": true, "import": true,
	"help": true,
}

// isCLIMode determines if we should run CLI vs MCP server.
func isCLIMode() bool {
	if len(os.Args) < 2 {
		return false // No args → MCP server
	}
	arg := os.Args[1]
	// Known subcommand → CLI
	if cliCommands[arg] {
		return true
	}
	// Global flags and --help or --version → CLI
	if arg == "--help" || arg == "-h" || arg == "--version" || arg == "-v" {
		return true
	}
	if arg == "--format" || arg == "-f" || strings.HasPrefix(arg, "--format=") {
		return true
	}
	return false // Default → MCP server
}

// isHelpOrVersion returns true if the user is requesting help or version info.
func isHelpOrVersion() bool {
	if len(os.Args) < 2 {
		return false
	}
	arg := os.Args[1]
	return arg == "--help" || arg == "-h" || arg == "--version" || arg == "-v" || arg == "help"
}

// isTerminal returns true if stdin is a terminal (not piped).
func isTerminal() bool {
	stat, _ := os.Stdin.Stat()
	return (stat.Mode() & os.ModeCharDevice) != 0
}

// printBanner displays a friendly banner when run interactively without args.
func printBanner() {
	fmt.Println(`
            _     _            _
   _ __ ___| |__ | | ___   ___| | __
  | '__/ _ \ '_ \| |/ _ \ / __| |/ /
  | | |  __/ |_) | | (_) | (__|   <
  |_|  \___|_.__/|_|\___/ \___|_|\_\

  Scrape a page, edit its blocks, keep both versions

  Usage: reblock <command> [options]
         reblock serve
         reblock --help

  MCP server mode requires piped input.`)
}

// baseDir resolves the data directory: REBLOCK_HOME, else ~/.reblock.
func baseDir() (string, error) {
	if dir := os.Getenv("REBLOCK_HOME"); dir != "" {
		return dir, nil
	}
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("could not determine home directory: %w", err)
	}
	return filepath.Join(homeDir, ".reblock"), nil
}

// newDeps wires the production collaborators for every operation.
func newDeps(database *sql.DB, cfg *config.Config, m *metrics.Metrics) *ops.Deps {
	pages := fetch.New(fetch.Options{
		Timeout:   time.Duration(cfg.FetchTimeoutSeconds) * time.Second,
		UserAgent: cfg.UserAgent,
	})
	return &ops.Deps{
		DB:      database,
		Config:  cfg,
		Pages:   pages,
		Images:  pages,
		Text:    transform.NewCommandGenerator(cfg.TextGenCommand, time.Duration(cfg.TextGenTimeoutSeconds)*time.Second),
		Img2Img: transform.NewImg2ImgClient(cfg.ImageGenURL, time.Duration(cfg.ImageGenTimeoutSeconds)*time.Second),
		Metrics: m,
	}
}

func fail(format string, args ...any) {
	fmt.Fprintf(os.Stderr, "error: "+format+"\n", args...)
	os.Exit(1)
}

func main() {
	// No args + interactive terminal → show banner and exit
	if len(os.Args) < 2 && isTerminal() {
		printBanner()
		return
	}

	// Handle --help/--version before DB init (no DB needed)
	if isHelpOrVersion() {
		app := newCLIApp(nil, nil)
		if err := app.Run(os.Args); err != nil {
			fail("%v", err)
		}
		return
	}

	if err := config.LoadEnvFiles(); err != nil {
		fail("%v", err)
	}

	dir, err := baseDir()
	if err != nil {
		fail("%v", err)
	}

	cwd, _ := os.Getwd()
	cfg, err := config.LoadWithRepo(dir, cwd)
	if err != nil {
		fail("failed to load config: %v", err)
	}
	if cfg.ExportsDir == "" {
		cfg.ExportsDir = filepath.Join(dir, "exports")
	}

	log, err := logger.New(logger.Config{Level: cfg.LogLevel})
	if err != nil {
		fail("failed to create logger: %v", err)
	}
	defer func() { _ = log.Sync() }()

	if unknown := mcp.ValidateDisabledTools(cfg.DisabledTools); len(unknown) > 0 {
		log.Warn("unknown tools in disabled_tools", logger.Strings("tools", unknown))
	}

	database, err := db.Init(dir)
	if err != nil {
		fail("failed to initialize database: %v", err)
	}
	defer database.Close()
	db.ConfigurePool(database, cfg)

	deps := newDeps(database, cfg, metrics.New(nil))

	// CLI mode: known subcommand
	if isCLIMode() {
		app := newCLIApp(deps, log)
		if err := app.Run(os.Args); err != nil {
			fmt.Fprintf(os.Stderr, "error: %v\n", err)
			os.Exit(1)
		}
		return
	}

	// Unknown argument + terminal → show error (don't start MCP server)
	if len(os.Args) >= 2 && isTerminal() {
		fmt.Fprintf(os.Stderr, "error: unknown command %q\n", os.Args[1])
		fmt.Fprintf(os.Stderr, "Run 'reblock --help' for usage.\n")
		os.Exit(1)
	}

	// MCP server mode (default)
	if err := mcp.Run(deps, log, Version); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}
