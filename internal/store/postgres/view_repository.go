package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/google/uuid"
	"github.com/goto/sieve/core/view"
)

const viewConfigTable = "view_configurations"

// ViewRepository stores view configuration blobs in postgres, one row per key.
type ViewRepository struct {
	client *Client
	now    func() time.Time
}

func NewViewRepository(c *Client) (*ViewRepository, error) {
	if c == nil {
		return nil, errNilPostgresClient
	}
	return &ViewRepository{
		client: c,
		now:    time.Now,
	}, nil
}

func (r *ViewRepository) Get(ctx context.Context, key string) ([]byte, error) {
	query, args, err := sq.Select("blob").From(viewConfigTable).
		Where(sq.Eq{"key": key}).
		PlaceholderFormat(sq.Dollar).ToSql()
	if err != nil {
		return nil, fmt.Errorf("build get view configuration query: %w", err)
	}

	var blob []byte
	if err := r.client.GetContext(ctx, &blob, query, args...); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, view.ErrNotFound
		}
		return nil, fmt.Errorf("get view configuration %q: %w", key, checkPostgresError(err))
	}
	return blob, nil
}

// Put upserts blob under key. Every write gets a fresh revision.
func (r *ViewRepository) Put(ctx context.Context, key string, blob []byte) error {
	query, args, err := sq.Insert(viewConfigTable).
		Columns("key", "revision", "blob", "updated_at").
		Values(key, uuid.New(), blob, r.now().UTC()).
		Suffix(`ON CONFLICT (key) DO UPDATE SET
			revision = EXCLUDED.revision,
			blob = EXCLUDED.blob,
			updated_at = EXCLUDED.updated_at`).
		PlaceholderFormat(sq.Dollar).ToSql()
	if err != nil {
		return fmt.Errorf("build put view configuration query: %w", err)
	}

	if _, err := r.client.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("put view configuration %q: %w", key, checkPostgresError(err))
	}
	return nil
}

// Revision returns the revision id of the last write to key.
func (r *ViewRepository) Revision(ctx context.Context, key string) (string, error) {
	query, args, err := sq.Select("revision").From(viewConfigTable).
		Where(sq.Eq{"key": key}).
		PlaceholderFormat(sq.Dollar).ToSql()
	if err != nil {
		return "", fmt.Errorf("build get revision query: %w", err)
	}

	var rev uuid.UUID
	if err := r.client.GetContext(ctx, &rev, query, args...); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return "", view.ErrNotFound
		}
		return "", checkPostgresError(err)
	}
	return rev.String(), nil
}
