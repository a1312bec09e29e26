package view_test

import (
	"time"

	"github.com/goto/sieve/core/view"
)

type item struct {
	title   string
	text    string
	created time.Time
}

func (i *item) GetTitle() string        { return i.title }
func (i *item) GetText() string         { return i.text }
func (i *item) GetCreatedAt() time.Time { return i.created }

var (
	t0 = time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC)
	t1 = t0.Add(time.Hour)
	t2 = t0.Add(2 * time.Hour)
	t3 = t0.Add(3 * time.Hour)
)

func fixedClock(t time.Time) view.Clock {
	return view.ClockFunc(func() time.Time { return t })
}

func titles(rs []*item) []string {
	out := make([]string, len(rs))
	for i, r := range rs {
		out[i] = r.title
	}
	return out
}

func mustSort(c view.SortCriteria, err error) view.SortCriteria {
	if err != nil {
		panic(err)
	}
	return c
}

func mustRange(r view.DateRange, err error) view.DateRange {
	if err != nil {
		panic(err)
	}
	return r
}

// byTextLength orders records by the length of their text.
func byTextLength(a, b view.Record) int {
	return len(a.GetText()) - len(b.GetText())
}
