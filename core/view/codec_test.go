package view_test

import (
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/goto/sieve/core/view"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testRegistry(t *testing.T) *view.Registry {
	t.Helper()
	reg := view.NewRegistry()
	require.NoError(t, reg.RegisterComparator("text-length", byTextLength))
	require.NoError(t, reg.RegisterPredicate(view.Predicate{
		Name:  "has-text",
		Match: func(r view.Record) bool { return r.GetText() != "" },
	}))
	return reg
}

func TestConfigurationCodec_RoundTrip(t *testing.T) {
	reg := testRegistry(t)
	custom, err := reg.CustomSort("text-length", view.Descending)
	require.NoError(t, err)
	hasText, _ := reg.Predicate("has-text")

	cases := []struct {
		Description string
		Config      view.Configuration
	}{
		{
			Description: "default",
			Config:      view.DefaultConfiguration(),
		},
		{
			Description: "created at descending with text",
			Config: view.NewConfiguration(fixedClock(t0),
				mustSort(view.NewSortCriteria(view.SortByCreatedAt, view.Descending)),
				view.NewFilterCriteria(view.WithText("capital")),
				true),
		},
		{
			Description: "custom sort with range and predicate",
			Config: view.NewConfiguration(fixedClock(t3),
				custom,
				view.NewFilterCriteria(
					view.WithDateRange(mustRange(view.NewDateRange(t0, t2))),
					view.WithPredicates(hasText),
				),
				false),
		},
	}
	for _, tc := range cases {
		t.Run(tc.Description, func(t *testing.T) {
			blob, err := view.EncodeConfiguration(tc.Config)
			require.NoError(t, err)

			got, err := view.DecodeConfiguration(blob, reg)
			require.NoError(t, err)
			if diff := cmp.Diff(tc.Config, got); diff != "" {
				t.Errorf("round trip mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestDecodeConfiguration_Errors(t *testing.T) {
	reg := testRegistry(t)

	cases := []struct {
		Description string
		Blob        string
		Err         error
	}{
		{
			Description: "future major version",
			Blob:        `{"version":"2.0.0","sort":{"field":"title","direction":"asc"},"filter":{}}`,
			Err:         view.ErrUnsupportedVersion,
		},
		{
			Description: "missing version",
			Blob:        `{"sort":{"field":"title","direction":"asc"},"filter":{}}`,
			Err:         view.ErrUnsupportedVersion,
		},
		{
			Description: "unknown field",
			Blob:        `{"version":"1.0.0","sort":{"field":"popularity","direction":"asc"},"filter":{}}`,
			Err:         view.ErrUnknownSortField,
		},
		{
			Description: "unknown direction",
			Blob:        `{"version":"1.0.0","sort":{"field":"title","direction":"up"},"filter":{}}`,
			Err:         view.ErrUnknownDirection,
		},
	}
	for _, tc := range cases {
		t.Run(tc.Description, func(t *testing.T) {
			_, err := view.DecodeConfiguration([]byte(tc.Blob), reg)
			assert.ErrorIs(t, err, tc.Err)
		})
	}

	t.Run("not json", func(t *testing.T) {
		_, err := view.DecodeConfiguration([]byte("{not json"), reg)
		assert.Error(t, err)
	})

	t.Run("unregistered comparator", func(t *testing.T) {
		blob := `{"version":"1.2.0","sort":{"field":"custom","direction":"asc","comparator":"nope"},"filter":{}}`
		_, err := view.DecodeConfiguration([]byte(blob), reg)
		var unregistered view.UnregisteredError
		require.ErrorAs(t, err, &unregistered)
		assert.Equal(t, view.UnregisteredError{Kind: "comparator", Name: "nope"}, unregistered)
	})

	t.Run("unregistered predicate", func(t *testing.T) {
		blob := `{"version":"1.0.0","sort":{"field":"title","direction":"asc"},"filter":{"predicates":["nope"]}}`
		_, err := view.DecodeConfiguration([]byte(blob), nil)
		var unregistered view.UnregisteredError
		require.ErrorAs(t, err, &unregistered)
		assert.Equal(t, "predicate", unregistered.Kind)
	})
}

func TestDecodeConfiguration_OpenEndedRange(t *testing.T) {
	blob := `{"version":"1.0.0","sort":{"field":"title","direction":"asc"},"filter":{"from":"2024-03-01T10:00:00Z"}}`
	cfg, err := view.DecodeConfiguration([]byte(blob), nil)
	require.NoError(t, err)

	r, ok := cfg.Filter.DateRange()
	require.True(t, ok)
	assert.True(t, r.Start().Equal(t0))
	assert.True(t, r.Contains(t0.AddDate(500, 0, 0)))
	assert.False(t, r.Contains(t0.Add(-1)))
}

func TestEncodeConfiguration_UnnamedPredicate(t *testing.T) {
	cfg := view.DefaultConfiguration()
	cfg.Filter = view.NewFilterCriteria(view.WithPredicates(view.Predicate{
		Match: func(view.Record) bool { return true },
	}))
	_, err := view.EncodeConfiguration(cfg)
	assert.ErrorIs(t, err, view.ErrUnnamedPredicate)
}
