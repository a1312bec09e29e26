package view

import "context"

// DefaultKey is the well-known key the last used configuration is kept under.
const DefaultKey = "last-sort-config"

// Repository is the durable key-value store behind a Store. Get returns
// ErrNotFound when the key was never written.
//
//go:generate mockery --name=Repository -r --case underscore --with-expecter --structname Repository --filename repository.go --output=./mocks
type Repository interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Put(ctx context.Context, key string, blob []byte) error
}
