// Package window selects the items that belong to the current calendar week.
package window

import (
	"time"

	"nudge/internal/domain"
)

// Week is an inclusive [Start, End] interval running Sunday through Saturday.
type Week struct {
	Start time.Time
	End   time.Time
}

// Bounds returns the week containing now, evaluated in now's location.
func Bounds(now time.Time) Week {
	loc := now.Location()
	y, m, d := now.Date()
	midnight := time.Date(y, m, d, 0, 0, 0, 0, loc)
	start := midnight.AddDate(0, 0, -int(midnight.Weekday()))
	end := time.Date(start.Year(), start.Month(), start.Day()+6, 23, 59, 59, int(999*time.Millisecond), loc)
	return Week{Start: start, End: end}
}

// Contains reports whether t falls inside the week, both ends included.
func (w Week) Contains(t time.Time) bool {
	return !t.Before(w.Start) && !t.After(w.End)
}

// Key is the Sunday start date, used to identify a published week.
func (w Week) Key() string {
	return w.Start.Format("2006-01-02")
}

// Filter returns the items created inside the week of now, keeping their order.
// It is recomputed on every call.
func Filter(items []domain.Item, now time.Time) (Week, []domain.Item) {
	w := Bounds(now)
	out := make([]domain.Item, 0, len(items))
	for _, it := range items {
		if w.Contains(it.CreatedAt) {
			out = append(out, it)
		}
	}
	return w, out
}
