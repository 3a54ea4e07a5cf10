package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/storefront/ecommerce-api/internal/infrastructure/config"
	"github.com/storefront/ecommerce-api/internal/infrastructure/db/mongo"
	"github.com/storefront/ecommerce-api/internal/infrastructure/db/postgres"
	"github.com/storefront/ecommerce-api/pkg/logger"
)

// NewMigrateCmd creates the migrate subcommand.
func NewMigrateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Prepare the configured store",
		Long: `Apply pending PostgreSQL migrations when STORE_DRIVER=postgres, or
create the MongoDB indexes when STORE_DRIVER=mongo.`,
		RunE: runMigrate,
	}
}

func runMigrate(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()

	cfg, err := config.Load(ctx)
	if err != nil {
		return err
	}
	log := logger.Init(logger.Options{
		Level:   cfg.LogLevel,
		Pretty:  cfg.LogPretty,
		Service: serviceName,
		Env:     cfg.Env,
	})

	if err := migrateStore(ctx, cfg); err != nil {
		log.Error().Err(err).Str("driver", cfg.Store.Driver).Msg("migration failed")
		return err
	}
	cmd.Printf("%s store is up to date\n", cfg.Store.Driver)
	return nil
}

func migrateStore(ctx context.Context, cfg *config.Config) error {
	switch cfg.Store.Driver {
	case config.StorePostgres:
		pool, err := postgres.Connect(ctx, postgres.Config{DSN: cfg.Postgres.DSN})
		if err != nil {
			return err
		}
		defer pool.Close()
		return postgres.Migrate(ctx, pool, logger.Named("migrate"))

	case config.StoreMongo:
		client, db, err := mongo.Connect(ctx, mongoConfig(cfg))
		if err != nil {
			return err
		}
		defer func() { _ = client.Disconnect(context.WithoutCancel(ctx)) }()
		return mongo.NewAuthRepository(db).EnsureIndexes(ctx)
	}
	return fmt.Errorf("unknown store driver %q", cfg.Store.Driver)
}
