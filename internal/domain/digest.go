package domain

import "time"

// Topic is one labelled group of the weekly digest.
type Topic struct {
	Label   string   `json:"label"`
	Items   []Item   `json:"items"`
	Bullets []string `json:"bullets"`
	Sources []string `json:"sources"`
}

// WeeklyDigest is derived from the item list and content cache; never persisted.
type WeeklyDigest struct {
	WeekStart   time.Time `json:"week_start"`
	WeekEnd     time.Time `json:"week_end"`
	Topics      []Topic   `json:"topics"`
	InProgress  []Item    `json:"in_progress"`
	NeedsText   []Item    `json:"needs_text"`
	GeneratedAt time.Time `json:"generated_at"`
}

// Empty reports whether no topic was produced.
func (d WeeklyDigest) Empty() bool {
	return len(d.Topics) == 0
}

// WeekKey identifies the digest week by its Sunday start date.
func (d WeeklyDigest) WeekKey() string {
	return d.WeekStart.Format("2006-01-02")
}

// PublishedDigest records a digest that was sent out.
type PublishedDigest struct {
	WeekKey     string    `json:"week_key"`
	Topics      int       `json:"topics"`
	Items       int       `json:"items"`
	PublishedAt time.Time `json:"published_at"`
}
