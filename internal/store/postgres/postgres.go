package postgres

import (
	"context"
	"database/sql"
	"embed"
	"errors"
	"fmt"

	"github.com/golang-migrate/migrate/v4"
	migratepg "github.com/golang-migrate/migrate/v4/database/postgres"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	"github.com/jackc/pgconn"
	"github.com/jackc/pgerrcode"
	_ "github.com/jackc/pgx/v4/stdlib" // register pgx driver
	"github.com/jmoiron/sqlx"
	"go.nhat.io/otelsql"
	semconv "go.opentelemetry.io/otel/semconv/v1.20.0"
)

//go:embed migrations/*.sql
var fs embed.FS

const (
	driverName   = "pgx"
	instanceName = "sieve"
)

// Client is a wrapper over sqlx holding the view configuration database.
type Client struct {
	db   *sqlx.DB
	name string
}

// NewClient opens an instrumented connection pool and verifies it.
func NewClient(ctx context.Context, cfg Config) (*Client, error) {
	otelDriver, err := otelsql.Register(
		driverName,
		otelsql.TraceQueryWithoutArgs(),
		otelsql.TraceRowsClose(),
		otelsql.TraceRowsAffected(),
		otelsql.WithSystem(semconv.DBSystemPostgreSQL),
		otelsql.WithInstanceName(instanceName),
	)
	if err != nil {
		return nil, fmt.Errorf("new postgres client: register driver: %w", err)
	}

	sqlDB, err := sql.Open(otelDriver, cfg.ConnectionURL().String())
	if err != nil {
		return nil, fmt.Errorf("new postgres client: %w", err)
	}
	if err := sqlDB.PingContext(ctx); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("new postgres client: %w", err)
	}

	if err := otelsql.RecordStats(
		sqlDB,
		otelsql.WithSystem(semconv.DBSystemPostgreSQL),
		otelsql.WithInstanceName(instanceName),
	); err != nil {
		_ = sqlDB.Close()
		return nil, err
	}

	if cfg.MaxOpenConns > 0 {
		sqlDB.SetMaxOpenConns(cfg.MaxOpenConns)
	}
	if cfg.MaxIdleConns > 0 {
		sqlDB.SetMaxIdleConns(cfg.MaxIdleConns)
	}
	sqlDB.SetConnMaxLifetime(cfg.ConnMaxLifetime)

	client := NewClientWithDB(sqlDB)
	client.name = cfg.Name
	return client, nil
}

// NewClientWithDB wraps an already opened database.
func NewClientWithDB(db *sql.DB) *Client {
	return &Client{db: sqlx.NewDb(db, driverName), name: "postgres"}
}

func (c *Client) GetContext(ctx context.Context, dest interface{}, query string, args ...interface{}) error {
	return c.db.GetContext(ctx, dest, query, args...)
}

func (c *Client) ExecContext(ctx context.Context, query string, args ...interface{}) (sql.Result, error) {
	return c.db.ExecContext(ctx, query, args...)
}

// Migrate applies every pending migration and returns the resulting version.
func (c *Client) Migrate() (ver uint, err error) {
	m, err := c.initMigration()
	if err != nil {
		return 0, fmt.Errorf("migration failed: %w", err)
	}
	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return 0, fmt.Errorf("migration failed: %w", err)
	}
	if ver, _, err = m.Version(); err != nil {
		return ver, err
	}
	return ver, nil
}

// MigrateDown reverts the most recent migration.
func (c *Client) MigrateDown() (ver uint, err error) {
	m, err := c.initMigration()
	if err != nil {
		return 0, fmt.Errorf("migration failed: %w", err)
	}
	if err := m.Steps(-1); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return 0, fmt.Errorf("migration failed: %w", err)
	}
	ver, _, err = m.Version()
	if errors.Is(err, migrate.ErrNilVersion) {
		return 0, nil
	}
	return ver, err
}

// ExecQueries is used for executing list of db query
func (c *Client) ExecQueries(ctx context.Context, queries []string) error {
	for _, query := range queries {
		if _, err := c.db.ExecContext(ctx, query); err != nil {
			return err
		}
	}
	return nil
}

func (c *Client) Close() error {
	return c.db.Close()
}

func (c *Client) initMigration() (*migrate.Migrate, error) {
	src, err := iofs.New(fs, "migrations")
	if err != nil {
		return nil, fmt.Errorf("load migrations: %w", err)
	}
	driver, err := migratepg.WithInstance(c.db.DB, &migratepg.Config{})
	if err != nil {
		return nil, fmt.Errorf("initiate migration driver with db connection: %w", err)
	}
	return migrate.NewWithInstance("iofs", src, c.name, driver)
}

func checkPostgresError(err error) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case pgerrcode.UniqueViolation:
			return fmt.Errorf("%w [%s]", errDuplicateKey, pgErr.Detail)
		case pgerrcode.CheckViolation:
			return fmt.Errorf("%w [%s]", errCheckViolation, pgErr.Detail)
		case pgerrcode.UndefinedTable:
			return fmt.Errorf("%w: %s", errMissingSchema, pgErr.Message)
		}
	}
	return err
}
