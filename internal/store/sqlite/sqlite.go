package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/google/uuid"
	"github.com/goto/sieve/core/view"
	"github.com/jmoiron/sqlx"
	_ "modernc.org/sqlite" // register sqlite driver
)

const (
	driverName      = "sqlite"
	viewConfigTable = "view_configurations"
)

const schema = `
CREATE TABLE IF NOT EXISTS view_configurations (
	key        TEXT PRIMARY KEY,
	revision   TEXT NOT NULL,
	blob       BLOB NOT NULL,
	updated_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
);
`

type Config struct {
	Path string `yaml:"path" mapstructure:"path" default:"sieve.db"`
}

// ViewRepository stores view configuration blobs in a local SQLite file.
type ViewRepository struct {
	db  *sqlx.DB
	now func() time.Time
}

// Open creates the database file and its schema when missing.
func Open(ctx context.Context, cfg Config) (*ViewRepository, error) {
	if cfg.Path == "" {
		return nil, errors.New("sqlite path is empty")
	}
	if dir := filepath.Dir(cfg.Path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create sqlite directory: %w", err)
		}
	}

	db, err := sqlx.Open(driverName, cfg.Path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}
	// single writer, the file is not shared between connections
	db.SetMaxOpenConns(1)

	if _, err := db.ExecContext(ctx, schema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("create sqlite schema: %w", err)
	}

	return &ViewRepository{db: db, now: time.Now}, nil
}

func (r *ViewRepository) Get(ctx context.Context, key string) ([]byte, error) {
	query, args, err := sq.Select("blob").From(viewConfigTable).
		Where(sq.Eq{"key": key}).ToSql()
	if err != nil {
		return nil, fmt.Errorf("build get view configuration query: %w", err)
	}

	var blob []byte
	if err := r.db.GetContext(ctx, &blob, query, args...); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, view.ErrNotFound
		}
		return nil, fmt.Errorf("get view configuration %q: %w", key, err)
	}
	return blob, nil
}

func (r *ViewRepository) Put(ctx context.Context, key string, blob []byte) error {
	query, args, err := sq.Insert(viewConfigTable).
		Columns("key", "revision", "blob", "updated_at").
		Values(key, uuid.NewString(), blob, r.now().UTC()).
		Suffix(`ON CONFLICT (key) DO UPDATE SET
			revision = excluded.revision,
			blob = excluded.blob,
			updated_at = excluded.updated_at`).
		ToSql()
	if err != nil {
		return fmt.Errorf("build put view configuration query: %w", err)
	}

	if _, err := r.db.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("put view configuration %q: %w", key, err)
	}
	return nil
}

// Revision returns the revision id of the last write to key.
func (r *ViewRepository) Revision(ctx context.Context, key string) (string, error) {
	query, args, err := sq.Select("revision").From(viewConfigTable).
		Where(sq.Eq{"key": key}).ToSql()
	if err != nil {
		return "", err
	}

	var rev string
	if err := r.db.GetContext(ctx, &rev, query, args...); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return "", view.ErrNotFound
		}
		return "", err
	}
	return rev, nil
}

func (r *ViewRepository) Close() error {
	return r.db.Close()
}
