package cli

import (
	"context"
	"fmt"
	"os"

	"github.com/MakeNowJust/heredoc"
	"github.com/goto/salt/log"
	"github.com/goto/sieve/core/validator"
	"github.com/goto/sieve/core/view"
	"github.com/goto/sieve/internal/store/postgres"
	"github.com/goto/sieve/internal/store/redis"
	"github.com/goto/sieve/internal/store/sqlite"
	"github.com/spf13/cobra"
)

const (
	driverSQLite   = "sqlite"
	driverPostgres = "postgres"
	driverRedis    = "redis"
	driverMemory   = "memory"
)

func storeCommand(cfg *Config) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "store <command>",
		Short: "Manage the view configuration store",
		Example: heredoc.Doc(`
			$ sieve store migrate
			$ sieve store migrate --down`),
	}
	cmd.AddCommand(storeMigrateCommand(cfg))
	return cmd
}

func storeMigrateCommand(cfg *Config) *cobra.Command {
	var down bool

	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Run postgres migrations",
		Example: heredoc.Doc(`
			$ sieve store migrate
		`),
		Args: cobra.NoArgs,
		Annotations: map[string]string{
			"group": "core",
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(cmd, cfg)
			if err != nil {
				return err
			}
			logger := initLogger(cfg.LogLevel)
			logger.Info("sieve is migrating", "version", Version)

			pgClient, err := postgres.NewClient(cmd.Context(), cfg.DB)
			if err != nil {
				logger.Error("failed to prepare migration", "error", err)
				return err
			}
			defer pgClient.Close()

			var ver uint
			if down {
				ver, err = pgClient.MigrateDown()
			} else {
				ver, err = pgClient.Migrate()
			}
			if err != nil {
				return fmt.Errorf("problem with migration: %w", err)
			}

			logger.Info("migration done", "version", ver)
			return nil
		},
	}
	cmd.Flags().BoolVar(&down, "down", false, "Revert the most recent migration")
	return cmd
}

func initLogger(logLevel string) *log.Logrus {
	return log.NewLogrus(
		log.LogrusWithLevel(logLevel),
		log.LogrusWithWriter(os.Stderr),
	)
}

// openRepository connects the configured store driver. The memory driver has
// no repository, so the returned Repository is nil.
func openRepository(ctx context.Context, cfg *Config, logger log.Logger) (view.Repository, func(), error) {
	if err := validator.ValidateOneOf(cfg.Store.Driver, driverSQLite, driverPostgres, driverRedis, driverMemory); err != nil {
		return nil, noOp, fmt.Errorf("store driver: %w", err)
	}

	switch cfg.Store.Driver {
	case driverPostgres:
		pgClient, err := postgres.NewClient(ctx, cfg.DB)
		if err != nil {
			return nil, noOp, err
		}
		repo, err := postgres.NewViewRepository(pgClient)
		if err != nil {
			pgClient.Close()
			return nil, noOp, err
		}
		return repo, closeWith(logger, "postgres", pgClient.Close), nil

	case driverRedis:
		rdb, err := redis.NewClient(ctx, cfg.Redis)
		if err != nil {
			return nil, noOp, err
		}
		return redis.NewViewRepository(rdb, cfg.Redis.Prefix), closeWith(logger, "redis", rdb.Close), nil

	case driverMemory:
		return nil, noOp, nil

	default:
		repo, err := sqlite.Open(ctx, cfg.SQLite)
		if err != nil {
			return nil, noOp, err
		}
		return repo, closeWith(logger, "sqlite", repo.Close), nil
	}
}

func closeWith(logger log.Logger, name string, closeFn func() error) func() {
	return func() {
		if err := closeFn(); err != nil {
			logger.Warn("close store", "driver", name, "err", err)
		}
	}
}

func noOp() {}
