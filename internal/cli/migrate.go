package cli

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"

	"automatization-bot/internal/config"
	pgstore "automatization-bot/internal/infra/postgres"
	pgmigrations "automatization-bot/internal/infra/postgres/migrations"
	"github.com/spf13/cobra"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/pgdialect"
	"github.com/uptrace/bun/driver/pgdriver"
	"github.com/uptrace/bun/migrate"
)

// NewMigrateCmd applies database migrations and optionally seeds the configured bank.
func NewMigrateCmd(configPath *string) *cobra.Command {
	var seed bool
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Run database migrations",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(*configPath)
			if err != nil {
				return err
			}
			return runMigrations(cmd.Context(), cfg, seed)
		},
	}
	cmd.Flags().BoolVar(&seed, "seed", false, "store the quiz section of the config as question bank quiz.bank_id")
	return cmd
}

func runMigrations(ctx context.Context, cfg config.Config, seed bool) error {
	if cfg.Postgres.URL == "" {
		return fmt.Errorf("postgres url not configured")
	}

	sqldb := sql.OpenDB(pgdriver.NewConnector(pgdriver.WithDSN(cfg.Postgres.URL)))
	db := bun.NewDB(sqldb, pgdialect.New())
	defer db.Close()

	migrator := migrate.NewMigrator(db, pgmigrations.Migrations)
	if err := migrator.Init(ctx); err != nil {
		return err
	}
	group, err := migrator.Migrate(ctx)
	if err != nil {
		return err
	}
	if group.IsZero() {
		slog.Info("no new migrations")
	} else {
		slog.Info("migrations applied", "group", group.String())
	}

	if !seed {
		return nil
	}
	bank := cfg.Bank()
	if err := bank.Validate(); err != nil {
		return err
	}
	if err := pgstore.UpsertBank(ctx, db, bank); err != nil {
		return err
	}
	slog.Info("question bank seeded", "bank_id", bank.ID, "questions", len(bank.Questions))
	return nil
}
