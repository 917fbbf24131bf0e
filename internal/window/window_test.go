package window

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"nudge/internal/domain"
)

func TestBounds(t *testing.T) {
	t.Parallel()

	loc := time.FixedZone("UTC+3", 3*60*60)
	cases := []struct {
		name string
		now  time.Time
	}{
		{"wednesday afternoon", time.Date(2026, time.October, 14, 15, 30, 0, 0, loc)},
		{"sunday midnight", time.Date(2026, time.October, 11, 0, 0, 0, 0, loc)},
		{"saturday last ms", time.Date(2026, time.October, 17, 23, 59, 59, int(999*time.Millisecond), loc)},
	}

	wantStart := time.Date(2026, time.October, 11, 0, 0, 0, 0, loc)
	wantEnd := time.Date(2026, time.October, 17, 23, 59, 59, int(999*time.Millisecond), loc)
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			w := Bounds(tc.now)
			assert.True(t, wantStart.Equal(w.Start), "start %s", w.Start)
			assert.True(t, wantEnd.Equal(w.End), "end %s", w.End)
			assert.Equal(t, time.Sunday, w.Start.Weekday())
			assert.Equal(t, "2026-10-11", w.Key())
		})
	}
}

func TestBoundsCrossesMonth(t *testing.T) {
	t.Parallel()

	w := Bounds(time.Date(2026, time.March, 2, 9, 0, 0, 0, time.UTC))
	assert.Equal(t, time.Date(2026, time.March, 1, 0, 0, 0, 0, time.UTC), w.Start)

	w = Bounds(time.Date(2026, time.January, 1, 9, 0, 0, 0, time.UTC))
	assert.Equal(t, time.Date(2025, time.December, 28, 0, 0, 0, 0, time.UTC), w.Start)
	assert.Equal(t, 3, w.End.Day())
}

func TestFilterBoundaryInclusive(t *testing.T) {
	t.Parallel()

	now := time.Date(2026, time.October, 14, 12, 0, 0, 0, time.UTC)
	w := Bounds(now)

	items := []domain.Item{
		{ID: "before", CreatedAt: w.Start.Add(-time.Microsecond)},
		{ID: "start", CreatedAt: w.Start},
		{ID: "mid", CreatedAt: now},
		{ID: "end", CreatedAt: w.End},
		{ID: "after", CreatedAt: w.End.Add(time.Microsecond)},
	}

	week, got := Filter(items, now)
	require.Equal(t, w, week)

	ids := make([]string, 0, len(got))
	for _, it := range got {
		ids = append(ids, it.ID)
	}
	assert.Equal(t, []string{"start", "mid", "end"}, ids)
}

func TestFilterEmpty(t *testing.T) {
	t.Parallel()

	_, got := Filter(nil, time.Now())
	assert.Empty(t, got)
}
