package cli

import (
	"fmt"

	"study-session/internal/infra/postgres"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

// NewMigrateCmd applies database migrations for the postgres ledger backend.
func NewMigrateCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Run database migrations",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(opts)
			if err != nil {
				return err
			}
			if cfg.Postgres.URL == "" {
				return fmt.Errorf("postgres url not configured")
			}
			log, err := newLogger(cfg, cmd.ErrOrStderr())
			if err != nil {
				return err
			}
			defer log.Sync()

			applied, err := postgres.RunMigrations(cmd.Context(), cfg.Postgres.URL)
			if err != nil {
				return err
			}
			if len(applied) == 0 {
				log.Info("no new migrations")
				return nil
			}
			log.Info("migrations applied", zap.Strings("migrations", applied))
			return nil
		},
	}
}
