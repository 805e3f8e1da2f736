package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/spec-kit/complaint-service/internal/config"
	"github.com/spec-kit/complaint-service/internal/observability"
	"github.com/spec-kit/complaint-service/internal/persistence"
)

var (
	flagMigrationsDir string

	cfg    *config.Config
	logger *zap.Logger
	pg     *persistence.Postgres
)

var rootCmd = &cobra.Command{
	Use:   "complaintctl",
	Short: "Operator tooling for the complaint service",
	Long: `complaintctl runs maintenance tasks against the complaint service database.

Examples:
  complaintctl migrate                 Apply pending SQL migrations
  complaintctl promote ops@example.com Grant the admin role
  complaintctl demote ops@example.com  Revoke the admin role`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		var err error
		cfg, err = config.Load()
		if err != nil {
			return fmt.Errorf("loading config: %w", err)
		}
		if flagMigrationsDir != "" {
			cfg.Postgres.MigrationsDir = flagMigrationsDir
		}
		logger, err = observability.NewLogger(cfg.Logger, "complaintctl")
		if err != nil {
			return fmt.Errorf("init logger: %w", err)
		}
		pg, err = persistence.NewPostgres(cmd.Context(), cfg.Postgres, logger)
		if err != nil {
			return fmt.Errorf("connecting postgres: %w", err)
		}
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		pg.Close()
		if logger != nil {
			_ = logger.Sync()
		}
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&flagMigrationsDir, "migrations", "", "Directory holding *.sql migrations (default: POSTGRES_MIGRATIONS_DIR)")
}

// Execute runs the root command.
func Execute() error {
	if err := rootCmd.ExecuteContext(context.Background()); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		return err
	}
	return nil
}
