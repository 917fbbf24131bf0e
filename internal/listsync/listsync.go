// Package listsync keeps the local item list in step with the backend and polls
// while any item is still being processed.
package listsync

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"nudge/internal/apperr"
	"nudge/internal/clock"
	"nudge/internal/domain"
)

const (
	DefaultPollInterval = 1500 * time.Millisecond
	DefaultPageSize     = 50
	DefaultTimeout      = 15 * time.Second
	maxPages            = 1000
)

// Lister is the part of the backend the synchronizer needs.
type Lister interface {
	ListItems(ctx context.Context, limit int, cursor string) (domain.ListPage, error)
}

// Snapshot is an immutable view of the synchronizer state.
type Snapshot struct {
	Items       []domain.Item
	Refreshing  bool
	Polling     bool
	Err         string
	LastRefresh time.Time
}

// InProgress reports whether any item is queued or processing.
func (s Snapshot) InProgress() bool {
	return hasInProgress(s.Items)
}

// Find returns the item with the given id.
func (s Snapshot) Find(id string) (domain.Item, bool) {
	for _, it := range s.Items {
		if it.ID == id {
			return it, true
		}
	}
	return domain.Item{}, false
}

// Options configure a Synchronizer.
type Options struct {
	Clock        clock.Clock
	PollInterval time.Duration
	PageSize     int
	Timeout      time.Duration
	Logger       *slog.Logger

	// OnChange receives every new snapshot. It is called without locks held.
	OnChange func(Snapshot)
}

// Synchronizer owns the local item list.
type Synchronizer struct {
	lister Lister
	opts   Options
	logger *slog.Logger

	mu          sync.Mutex
	items       []domain.Item
	err         string
	lastRefresh time.Time
	manual      int
	inflight    int
	started     uint64
	applied     uint64
	poll        clock.Timer
	closed      bool
}

// New builds an empty synchronizer. Nothing is fetched until Refresh.
func New(lister Lister, opts Options) *Synchronizer {
	if opts.Clock == nil {
		opts.Clock = clock.Real{}
	}
	if opts.PollInterval <= 0 {
		opts.PollInterval = DefaultPollInterval
	}
	if opts.PageSize <= 0 {
		opts.PageSize = DefaultPageSize
	}
	if opts.Timeout <= 0 {
		opts.Timeout = DefaultTimeout
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Synchronizer{lister: lister, opts: opts, logger: logger}
}

// Snapshot returns the current state.
func (s *Synchronizer) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snapshotLocked()
}

// Refresh fetches every page of the collection and replaces the local list.
// manual only controls the Refreshing indicator. On failure the previous list is
// kept and the error is exposed as a banner.
func (s *Synchronizer) Refresh(ctx context.Context, manual bool) error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil
	}
	s.started++
	seq := s.started
	s.inflight++
	if manual {
		s.manual++
	}
	snap := s.snapshotLocked()
	s.mu.Unlock()

	if manual {
		s.notify(snap)
	}

	items, err := s.fetchAll(ctx)

	s.mu.Lock()
	s.inflight--
	if manual {
		s.manual--
	}
	switch {
	case err != nil:
		s.err = apperr.Message(err)
	case seq < s.applied:
		s.logger.Debug("dropping stale refresh", "seq", seq, "applied", s.applied)
	default:
		s.applied = seq
		s.items = items
		s.err = ""
		s.lastRefresh = s.opts.Clock.Now()
	}
	s.reconcilePollLocked()
	snap = s.snapshotLocked()
	s.mu.Unlock()

	if err != nil {
		s.logger.Warn("refresh failed", "manual", manual, "error", err)
	}
	s.notify(snap)
	return err
}

// Insert adds a just-created item, replacing any entry with the same id.
func (s *Synchronizer) Insert(item domain.Item) {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	next := make([]domain.Item, 0, len(s.items)+1)
	next = append(next, item)
	for _, it := range s.items {
		if it.ID != item.ID {
			next = append(next, it)
		}
	}
	s.items = next
	s.reconcilePollLocked()
	snap := s.snapshotLocked()
	s.mu.Unlock()

	s.notify(snap)
}

// DismissError hides the banner.
func (s *Synchronizer) DismissError() {
	s.mu.Lock()
	s.err = ""
	snap := s.snapshotLocked()
	s.mu.Unlock()

	s.notify(snap)
}

// Close cancels the poll timer. Refreshes already running finish normally but
// never arm a new timer.
func (s *Synchronizer) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	if s.poll != nil {
		s.poll.Stop()
		s.poll = nil
	}
}

func (s *Synchronizer) fetchAll(ctx context.Context) ([]domain.Item, error) {
	var (
		items  []domain.Item
		cursor string
	)
	for page := 0; page < maxPages; page++ {
		res, err := s.lister.ListItems(ctx, s.opts.PageSize, cursor)
		if err != nil {
			return nil, fmt.Errorf("list items: %w", err)
		}
		items = append(items, res.Items...)
		if res.NextCursor == "" || res.NextCursor == cursor {
			return items, nil
		}
		cursor = res.NextCursor
	}
	return items, nil
}

func (s *Synchronizer) reconcilePollLocked() {
	if s.closed {
		return
	}
	if hasInProgress(s.items) {
		if s.poll == nil {
			s.poll = s.opts.Clock.AfterFunc(s.opts.PollInterval, s.tick)
		}
		return
	}
	if s.poll != nil {
		s.poll.Stop()
		s.poll = nil
	}
}

func (s *Synchronizer) tick() {
	s.mu.Lock()
	s.poll = nil
	if s.closed || s.inflight > 0 {
		s.mu.Unlock()
		return
	}
	s.mu.Unlock()

	ctx, cancel := context.WithTimeout(context.Background(), s.opts.Timeout)
	defer cancel()
	_ = s.Refresh(ctx, false)
}

func (s *Synchronizer) snapshotLocked() Snapshot {
	items := make([]domain.Item, len(s.items))
	copy(items, s.items)
	return Snapshot{
		Items:       items,
		Refreshing:  s.manual > 0,
		Polling:     s.poll != nil,
		Err:         s.err,
		LastRefresh: s.lastRefresh,
	}
}

func (s *Synchronizer) notify(snap Snapshot) {
	if s.opts.OnChange != nil {
		s.opts.OnChange(snap)
	}
}

func hasInProgress(items []domain.Item) bool {
	for _, it := range items {
		if it.Status.InProgress() {
			return true
		}
	}
	return false
}
