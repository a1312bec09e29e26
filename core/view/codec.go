package view

import (
	"fmt"
	"time"

	"github.com/Masterminds/semver/v3"
	"github.com/bytedance/sonic"
)

// SchemaVersion is written into every encoded configuration.
const SchemaVersion = "1.0.0"

var supportedSchema = mustConstraint("^1")

type storedConfiguration struct {
	Version          string      `json:"version"`
	Sort             SortState   `json:"sort"`
	Filter           FilterState `json:"filter"`
	RememberLastSort bool        `json:"remember_last_sort"`
	CreatedAt        time.Time   `json:"created_at"`
}

// EncodeConfiguration serializes cfg into a versioned JSON blob. Comparators
// and predicates are written by name, so every predicate must be named.
func EncodeConfiguration(cfg Configuration) ([]byte, error) {
	for _, p := range cfg.Filter.Predicates() {
		if p.Name == "" {
			return nil, ErrUnnamedPredicate
		}
	}
	stored := storedConfiguration{
		Version:          SchemaVersion,
		Sort:             cfg.Sort.State(),
		Filter:           cfg.Filter.State(),
		RememberLastSort: cfg.RememberLastSort,
		CreatedAt:        cfg.CreatedAt,
	}

	blob, err := sonic.Marshal(stored)
	if err != nil {
		return nil, fmt.Errorf("encode view configuration: %w", err)
	}
	return blob, nil
}

// DecodeConfiguration parses a blob written by EncodeConfiguration. Named
// comparators and predicates are resolved through reg.
func DecodeConfiguration(blob []byte, reg *Registry) (Configuration, error) {
	var stored storedConfiguration
	if err := sonic.Unmarshal(blob, &stored); err != nil {
		return Configuration{}, fmt.Errorf("decode view configuration: %w", err)
	}

	v, err := semver.NewVersion(stored.Version)
	if err != nil {
		return Configuration{}, fmt.Errorf("%w: %q", ErrUnsupportedVersion, stored.Version)
	}
	if !supportedSchema.Check(v) {
		return Configuration{}, fmt.Errorf("%w: %s", ErrUnsupportedVersion, v)
	}

	sort, err := stored.Sort.Criteria(reg)
	if err != nil {
		return Configuration{}, err
	}
	filter, err := stored.Filter.Criteria(reg)
	if err != nil {
		return Configuration{}, err
	}

	return Configuration{
		Sort:             sort,
		Filter:           filter,
		RememberLastSort: stored.RememberLastSort,
		CreatedAt:        stored.CreatedAt,
	}, nil
}

func mustConstraint(c string) *semver.Constraints {
	constraint, err := semver.NewConstraint(c)
	if err != nil {
		panic(err)
	}
	return constraint
}
