package postgres

import "errors"

var (
	errNilPostgresClient = errors.New("postgres client is nil")
	errDuplicateKey      = errors.New("duplicate key")
	errCheckViolation    = errors.New("check constraint violation")
	errMissingSchema     = errors.New("view tables are missing, run migrations")
)
