package testutils

import (
	"context"
	"database/sql"
	"fmt"
	"strconv"
	"testing"
	"time"

	"github.com/goto/salt/log"
	"github.com/goto/sieve/internal/store/postgres"
	"github.com/ory/dockertest/v3"
)

const (
	PGHost     = "localhost"
	PGUsername = "test_user"
	PGPassword = "test_pass"
	PGName     = "test_db"
)

// RunTestPG starts a throwaway postgres container and returns its host port.
func RunTestPG(t *testing.T, logger log.Logger) (int, error) {
	t.Helper()

	pool, err := newPool()
	if err != nil {
		return 0, fmt.Errorf("new test PG: %w", err)
	}

	resource, err := runContainer(t, pool, &dockertest.RunOptions{
		Repository: "postgres",
		Tag:        "13",
		Env: []string{
			"POSTGRES_PASSWORD=" + PGPassword,
			"POSTGRES_USER=" + PGUsername,
			"POSTGRES_DB=" + PGName,
		},
	}, logger)
	if err != nil {
		return 0, fmt.Errorf("new test PG: %w", err)
	}

	port, err := strconv.Atoi(resource.GetPort("5432/tcp"))
	if err != nil {
		return 0, fmt.Errorf("new test PG: parse external port of container to int: %w", err)
	}

	// exponential backoff-retry, because the application in the container might not be ready to accept connections yet
	pool.MaxWait = 60 * time.Second

	if err := pool.Retry(func() error {
		db, err := sql.Open("pgx", fmt.Sprintf(
			"dbname=%s user=%s password='%s' host=%s port=%d sslmode=disable",
			PGName, PGUsername, PGPassword, PGHost, port,
		))
		if err != nil {
			return err
		}
		defer db.Close()

		return db.Ping()
	}); err != nil {
		return 0, fmt.Errorf("could not connect to docker: %w", err)
	}

	return port, nil
}

// NewTestPGClient starts postgres, connects to it and runs the migrations.
func NewTestPGClient(t *testing.T, logger log.Logger) (*postgres.Client, error) {
	t.Helper()

	port, err := RunTestPG(t, logger)
	if err != nil {
		return nil, err
	}

	pgClient, err := postgres.NewClient(context.Background(), postgres.Config{
		Host:     PGHost,
		Port:     port,
		Name:     PGName,
		User:     PGUsername,
		Password: PGPassword,
	})
	if err != nil {
		return nil, err
	}
	t.Cleanup(func() {
		if err := pgClient.Close(); err != nil {
			t.Fatal(err)
		}
	})

	if err := RunMigrationsWithClient(t, pgClient); err != nil {
		return nil, err
	}
	return pgClient, nil
}

// RunMigrationsWithClient recreates the public schema and migrates it up.
func RunMigrationsWithClient(t *testing.T, pgClient *postgres.Client) error {
	t.Helper()

	queries := []string{
		"DROP SCHEMA public CASCADE",
		"CREATE SCHEMA public",
	}
	if err := pgClient.ExecQueries(context.Background(), queries); err != nil {
		return err
	}

	_, err := pgClient.Migrate()
	return err
}
