package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/wevote/wevoteserver/internal/config"
	"github.com/wevote/wevoteserver/internal/storage"
	"github.com/wevote/wevoteserver/migrations"
)

// env is the state shared by every subcommand, filled in by the root
// command's PersistentPreRunE.
type env struct {
	configPath string
	cfg        config.Config
	file       fileSettings
	logger     *slog.Logger
}

func newRootCmd() *cobra.Command {
	e := &env{}
	root := &cobra.Command{
		Use:           "wevotectl",
		Short:         "Operator tasks for the We Vote server",
		Version:       version,
		SilenceUsage: true,
		PersistentPreRunE: func(*cobra.Command, []string) error {
			return e.load()
		},
	}
	root.PersistentFlags().StringVarP(&e.configPath, "config", "c", "",
		"ini file whose [database], [civic] and [import] sections override the environment")

	root.AddCommand(
		newImportPollingLocationsCmd(e),
		newCreateBatchCmd(e),
		newProcessNextCmd(e),
		newAPIKeyCmd(e),
		newVoterCmd(e),
		newGenKeyCmd(),
	)
	return root
}

func (e *env) load() error {
	// Load .env if present.
	_ = godotenv.Load()

	fs, err := applyConfigFile(e.configPath)
	if err != nil {
		return err
	}
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	e.cfg = cfg
	e.file = fs

	level := slog.LevelInfo
	if strings.EqualFold(cfg.LogLevel, "debug") {
		level = slog.LevelDebug
	}
	e.logger = slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
	return nil
}

// openDB connects to Postgres and applies the embedded migrations unless
// they are skipped by config. Callers close the returned DB.
func (e *env) openDB(ctx context.Context) (*storage.DB, error) {
	db, err := storage.New(ctx, e.cfg.DatabaseURL, e.cfg.WeVoteIDPrefix, e.logger)
	if err != nil {
		return nil, fmt.Errorf("storage: %w", err)
	}
	if e.cfg.SkipEmbeddedMigrations {
		return db, nil
	}
	if err := db.RunMigrations(ctx, migrations.FS); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrations: %w", err)
	}
	return db, nil
}
