package main

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/rs/zerolog"

	"github.com/hpungsan/qet/internal/config"
	"github.com/hpungsan/qet/internal/db"
	"github.com/hpungsan/qet/internal/history"
	"github.com/hpungsan/qet/internal/logging"
	"github.com/hpungsan/qet/internal/mcp"
	"github.com/hpungsan/qet/internal/ops"
	"github.com/hpungsan/qet/internal/settings"
	"github.com/hpungsan/qet/internal/storage"
)

// Version is set via -ldflags at build time.
var Version = "dev"

// cliCommands contains known CLI subcommands.
var cliCommands = map[string]bool{
	"translate": true, "settings": true, "history": true, "serve": true,
	"help": true,
}

// isCLIMode determines if we should run CLI vs MCP server.
func isCLIMode() bool {
	if len(os.Args) < 2 {
		return false // No args → MCP server
	}
	arg := os.Args[1]
	if cliCommands[arg] {
		return true
	}
	// --help or --version → CLI
	if arg == "--help" || arg == "-h" || arg == "--version" || arg == "-v" {
		return true
	}
	// Global flags precede the subcommand.
	return arg == "-f" || arg == "--format" || strings.HasPrefix(arg, "--format=")
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
    __ _  ___| |_
   / _' |/ _ \ __|
  | (_| |  __/ |_
   \__, |\___|\__|
      |_|

  Quick English translation (DeepL, Google, OpenAI)

  Usage: qet <command> [options]
         qet --help

  MCP server mode requires piped input.`)
}

// appEnv is everything commands need at run time.
type appEnv struct {
	orch     *ops.Orchestrator
	broker   *ops.Broker
	notifier *mcp.ClientNotifier
	cfg      *config.Config
	logger   zerolog.Logger
}

// newAppEnv wires storage areas and the orchestrator. Settings live in the
// sync area (Postgres when configured, SQLite otherwise); history always
// lives in the local SQLite area.
func newAppEnv(ctx context.Context, database *sql.DB, cfg *config.Config, logger zerolog.Logger, exportsDir string) (*appEnv, func(), error) {
	cleanup := func() {}

	var syncArea storage.Area = db.NewSQLiteArea(database, storage.AreaSync)
	if cfg.SyncDatabaseURL != "" {
		gdb, err := db.OpenPostgres(ctx, cfg)
		if err != nil {
			return nil, cleanup, fmt.Errorf("failed to open sync database: %w", err)
		}
		if sqlDB, err := gdb.DB(); err == nil {
			cleanup = func() { sqlDB.Close() }
		}
		syncArea = db.NewPostgresArea(gdb, storage.AreaSync)
		logger.Info().Msg("settings sync backed by postgres")
	}

	broker := ops.NewBroker()
	notifier := &mcp.ClientNotifier{}

	orch := ops.NewOrchestrator(ops.Deps{
		Settings:   settings.NewStore(syncArea, logger.With().Str("component", "settings").Logger()),
		History:    history.NewStore(db.NewSQLiteArea(database, storage.AreaLocal), logger.With().Str("component", "history").Logger()),
		Config:     cfg,
		Logger:     logger,
		Notifier:   ops.MultiNotifier{broker, notifier},
		ExportsDir: exportsDir,
	})
	if err := orch.EnsureDefaults(ctx); err != nil {
		cleanup()
		return nil, func() {}, fmt.Errorf("failed to install default settings: %w", err)
	}

	return &appEnv{
		orch:     orch,
		broker:   broker,
		notifier: notifier,
		cfg:      cfg,
		logger:   logger,
	}, cleanup, nil
}

func fatal(format string, args ...any) {
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
		app := newCLIApp(nil)
		if err := app.Run(os.Args); err != nil {
			fatal("%v", err)
		}
		return
	}

	homeDir, err := os.UserHomeDir()
	if err != nil {
		fatal("could not determine home directory: %v", err)
	}
	baseDir := filepath.Join(homeDir, ".qet")

	cfg, err := config.LoadWithEnv(baseDir)
	if err != nil {
		fatal("failed to load config: %v", err)
	}

	logger, err := logging.New(cfg.Environment, cfg.LogLevel, os.Stderr)
	if err != nil {
		fatal("%v", err)
	}

	database, err := db.Init(baseDir)
	if err != nil {
		fatal("failed to initialize database: %v", err)
	}
	defer database.Close()
	db.ConfigurePool(database, cfg)

	ctx := context.Background()
	env, cleanup, err := newAppEnv(ctx, database, cfg, logger, filepath.Join(baseDir, "exports"))
	if err != nil {
		database.Close()
		fatal("%v", err)
	}
	defer cleanup()

	// CLI mode: known subcommand
	if isCLIMode() {
		app := newCLIApp(env)
		if err := app.Run(os.Args); err != nil {
			cleanup()
			database.Close()
			fatal("%v", err)
		}
		return
	}

	// Unknown argument + terminal → show error (don't start MCP server)
	if len(os.Args) >= 2 && isTerminal() {
		cleanup()
		database.Close()
		fatal("unknown command %q\nRun 'qet --help' for usage.", os.Args[1])
	}

	if unknown := mcp.ValidateDisabledTools(cfg.DisabledTools); len(unknown) > 0 {
		logger.Warn().Strs("tools", unknown).Msg("ignoring unknown disabled_tools entries")
	}

	// MCP server mode (default)
	if err := mcp.Run(env.orch, cfg, Version, env.notifier, logger); err != nil {
		cleanup()
		database.Close()
		fatal("%v", err)
	}
}
