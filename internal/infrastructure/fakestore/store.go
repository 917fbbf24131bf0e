// Package fakestore is an in-memory backend reproducing the server-side item
// lifecycle (queued, processing, then succeeded or needs_user_text) with fixed
// delays. It is used for standalone operation and in tests.
package fakestore

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"sort"
	"strings"
	"sync"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"

	"nudge/internal/apperr"
	"nudge/internal/clock"
	"nudge/internal/domain"
	"nudge/internal/ports"
	"nudge/internal/validate"
)

const (
	DefaultQueueDelay   = 800 * time.Millisecond
	DefaultProcessDelay = 1600 * time.Millisecond
	DefaultMinTextLen   = 600
	DefaultMaxTextLen   = 200_000
	DefaultMaxAttempts  = 2

	defaultListLimit = 20
	maxListLimit     = 100

	detailQueued     = "Waiting for a worker."
	detailProcessing = "Fetching and extracting the page."
	detailNeedsText  = "We couldn't read this link. Please open it and paste the article text here."
)

// Options configure a Store.
type Options struct {
	Clock        clock.Clock
	QueueDelay   time.Duration
	ProcessDelay time.Duration
	// Extractor enables live page fetching; nil uses the deterministic outcome rule.
	Extractor  ports.Extractor
	MinTextLen int
	MaxTextLen int
	// MaxAttempts bounds processing runs per item when fetches fail with a retryable error.
	MaxAttempts int
	Logger      *slog.Logger
}

type record struct {
	item     domain.Item
	content  domain.ItemContent
	attempts int
}

// outcome is how one processing run ended.
type outcome struct {
	title string
	text  string
	ok    bool
	err   error
}

// Store implements ports.ItemsAPI in memory.
type Store struct {
	opts   Options
	logger *slog.Logger

	mu      sync.Mutex
	records map[string]*record
	timers  map[clock.Timer]struct{}
	closed  bool
}

var _ ports.ItemsAPI = (*Store)(nil)

// New builds an empty store.
func New(opts Options) *Store {
	if opts.Clock == nil {
		opts.Clock = clock.Real{}
	}
	if opts.QueueDelay <= 0 {
		opts.QueueDelay = DefaultQueueDelay
	}
	if opts.ProcessDelay <= 0 {
		opts.ProcessDelay = DefaultProcessDelay
	}
	if opts.MinTextLen <= 0 {
		opts.MinTextLen = DefaultMinTextLen
	}
	if opts.MaxTextLen <= 0 {
		opts.MaxTextLen = DefaultMaxTextLen
	}
	if opts.MaxAttempts <= 0 {
		opts.MaxAttempts = DefaultMaxAttempts
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Store{
		opts:    opts,
		logger:  logger,
		records: map[string]*record{},
		timers:  map[clock.Timer]struct{}{},
	}
}

// Close stops the lifecycle timers. Items stay where they are.
func (s *Store) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	for t := range s.timers {
		t.Stop()
	}
	s.timers = map[clock.Timer]struct{}{}
}

func (s *Store) CreateItem(_ context.Context, req domain.CreateRequest) (domain.CreatedItem, error) {
	rawURL, hasURL := validate.NonEmptyTrimmed(req.URL)
	_, hasText := validate.NonEmptyTrimmed(req.PastedText)
	text := req.PastedText

	if !hasURL && !hasText {
		return domain.CreatedItem{}, unprocessable("Provide url or pasted_text.")
	}
	if hasURL && !validate.IsValidURL(rawURL) {
		return domain.CreatedItem{}, unprocessable("url: must be an absolute URL.")
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return domain.CreatedItem{}, apperr.Network("create item", fmt.Errorf("store is closed"))
	}

	now := s.opts.Clock.Now()
	rec := &record{item: domain.Item{
		ID:        uuid.NewString(),
		CreatedAt: now,
		UpdatedAt: now,
	}}

	if hasText && (req.PreferPastedText || !hasURL) {
		rec.item.Status = domain.StatusSucceeded
		rec.item.SourceType = domain.SourcePastedText
		rec.item.FinalTextSource = domain.TextFromUserPasted
		rec.content = domain.ItemContent{CanonicalText: text, UserPastedText: text, UpdatedAt: now}
		s.records[rec.item.ID] = rec
		return domain.CreatedItem{ID: rec.item.ID, Status: rec.item.Status}, nil
	}

	rec.item.Status = domain.StatusQueued
	rec.item.StatusDetail = detailQueued
	rec.item.SourceType = domain.SourceURL
	rec.item.RequestedURL = rawURL
	if hasText {
		rec.content.UserPastedText = text
	}
	s.records[rec.item.ID] = rec

	id := rec.item.ID
	s.afterLocked(s.opts.QueueDelay, func() { s.startProcessing(id) })

	return domain.CreatedItem{ID: id, Status: rec.item.Status}, nil
}

func (s *Store) ListItems(_ context.Context, limit int, cursor string) (domain.ListPage, error) {
	if limit == 0 {
		limit = defaultListLimit
	}
	if limit < 1 || limit > maxListLimit {
		return domain.ListPage{}, unprocessable(fmt.Sprintf("limit: must be between 1 and %d.", maxListLimit))
	}

	var (
		after    time.Time
		afterID  string
		hasAfter bool
	)
	if cursor != "" {
		ts, id, ok := strings.Cut(cursor, "|")
		t, err := time.Parse(time.RFC3339Nano, ts)
		if !ok || err != nil || id == "" {
			return domain.ListPage{}, unprocessable("cursor: malformed.")
		}
		after, afterID, hasAfter = t, id, true
	}

	s.mu.Lock()
	items := make([]domain.Item, 0, len(s.records))
	for _, rec := range s.records {
		items = append(items, rec.item)
	}
	s.mu.Unlock()

	sort.Slice(items, func(i, j int) bool {
		if items[i].CreatedAt.Equal(items[j].CreatedAt) {
			return items[i].ID > items[j].ID
		}
		return items[i].CreatedAt.After(items[j].CreatedAt)
	})

	page := make([]domain.Item, 0, limit)
	for _, it := range items {
		if hasAfter && !olderThan(it, after, afterID) {
			continue
		}
		if len(page) == limit {
			last := page[len(page)-1]
			return domain.ListPage{Items: page, NextCursor: encodeCursor(last)}, nil
		}
		page = append(page, it)
	}
	return domain.ListPage{Items: page}, nil
}

func (s *Store) GetItem(_ context.Context, id string, includeContent bool) (domain.ItemDetail, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	rec, ok := s.records[id]
	if !ok {
		return domain.ItemDetail{}, notFound()
	}
	return detailOf(rec, includeContent), nil
}

func (s *Store) PatchItemText(_ context.Context, id string, pastedText string) (domain.ItemDetail, error) {
	if _, ok := validate.NonEmptyTrimmed(pastedText); !ok {
		return domain.ItemDetail{}, unprocessable("pasted_text: must not be empty.")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	rec, found := s.records[id]
	if !found {
		return domain.ItemDetail{}, notFound()
	}
	if rec.item.Status != domain.StatusNeedsUserText {
		return domain.ItemDetail{}, &apperr.HTTPError{
			StatusCode: http.StatusConflict,
			Detail:     fmt.Sprintf("Item is %s, not waiting for pasted text.", rec.item.Status),
		}
	}

	now := s.opts.Clock.Now()
	rec.item.Status = domain.StatusSucceeded
	rec.item.StatusDetail = ""
	rec.item.FinalTextSource = domain.TextFromUserPasted
	rec.item.UpdatedAt = now
	rec.content.UserPastedText = pastedText
	rec.content.CanonicalText = pastedText
	rec.content.UpdatedAt = now

	return detailOf(rec, true), nil
}

func (s *Store) startProcessing(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	rec, ok := s.records[id]
	if !ok || s.closed || rec.item.Status != domain.StatusQueued {
		return
	}
	rec.attempts++
	rec.item.Status = domain.StatusProcessing
	rec.item.StatusDetail = detailProcessing
	rec.item.UpdatedAt = s.opts.Clock.Now()

	s.afterLocked(s.opts.ProcessDelay, func() { s.finish(id) })
}

func (s *Store) finish(id string) {
	s.mu.Lock()
	rec, ok := s.records[id]
	if !ok || s.closed || rec.item.Status != domain.StatusProcessing {
		s.mu.Unlock()
		return
	}
	pageURL := rec.item.RequestedURL
	s.mu.Unlock()

	res := s.process(pageURL)

	s.mu.Lock()
	defer s.mu.Unlock()
	if rec.item.Status != domain.StatusProcessing {
		return
	}
	now := s.opts.Clock.Now()
	rec.item.UpdatedAt = now

	if apperr.Retryable(res.err) && rec.attempts < s.opts.MaxAttempts {
		rec.item.Status = domain.StatusQueued
		rec.item.StatusDetail = "retrying: " + errorCode(res.err)
		s.logger.Warn("requeued after retryable failure", "id", id, "attempt", rec.attempts, "error", res.err)
		s.afterLocked(s.opts.QueueDelay, func() { s.startProcessing(id) })
		return
	}

	if res.title != "" {
		rec.item.Title = res.title
	}
	if !res.ok {
		rec.item.Status = domain.StatusNeedsUserText
		rec.item.StatusDetail = detailNeedsText
		if res.text != "" {
			rec.content.ExtractedText = res.text
			rec.content.UpdatedAt = now
		}
		return
	}
	rec.item.Status = domain.StatusSucceeded
	rec.item.StatusDetail = ""
	rec.item.FinalTextSource = domain.TextFromURL
	rec.content.ExtractedText = res.text
	rec.content.CanonicalText = res.text
	rec.content.UpdatedAt = now
}

// process runs one extraction of pageURL.
func (s *Store) process(pageURL string) outcome {
	if s.opts.Extractor == nil {
		title, text, ok := simulatedOutcome(pageURL)
		return outcome{title: title, text: text, ok: ok}
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	ext, err := s.opts.Extractor.Extract(ctx, pageURL)
	if err != nil {
		s.logger.Warn("extraction failed", "url", pageURL, "error", err)
		return outcome{err: err}
	}

	text := strings.TrimSpace(ext.Text)
	if utf8.RuneCountInString(text) > s.opts.MaxTextLen {
		text = string([]rune(text)[:s.opts.MaxTextLen])
	}
	if utf8.RuneCountInString(text) < s.opts.MinTextLen {
		s.logger.Info("extracted text too short", "url", pageURL, "runes", utf8.RuneCountInString(text))
		return outcome{title: ext.Title, text: text}
	}
	return outcome{title: ext.Title, text: text, ok: true}
}

// errorCode names a fetch failure for status_detail.
func errorCode(err error) string {
	switch code := apperr.StatusCode(err); {
	case code == http.StatusRequestTimeout:
		return "timeout"
	case code != 0:
		return fmt.Sprintf("http_%d", code)
	case errors.Is(err, context.DeadlineExceeded):
		return "timeout"
	default:
		return "connection_error"
	}
}

func (s *Store) afterLocked(d time.Duration, fn func()) {
	if s.closed {
		return
	}
	var t clock.Timer
	t = s.opts.Clock.AfterFunc(d, func() {
		s.mu.Lock()
		delete(s.timers, t)
		s.mu.Unlock()
		fn()
	})
	s.timers[t] = struct{}{}
}

// simulatedOutcome sends paths mentioning "paywall" or "nope" to
// needs_user_text and succeeds everything else with a generated body.
func simulatedOutcome(pageURL string) (string, string, bool) {
	u, err := url.Parse(pageURL)
	if err != nil {
		return "", "", false
	}
	path := strings.ToLower(u.Path)
	if strings.Contains(path, "paywall") || strings.Contains(path, "nope") {
		return "", "", false
	}

	title := titleFromPath(u.Path)
	host := strings.TrimPrefix(strings.ToLower(u.Hostname()), "www.")
	subject := title
	if subject == "" {
		subject = "This page"
	}
	text := fmt.Sprintf("%s was saved from %s for later reading. "+
		"The article walks through the main idea and the reasoning behind it. "+
		"It closes with practical notes that are worth revisiting this week.", subject, host)
	return title, text, true
}

func titleFromPath(p string) string {
	segs := strings.FieldsFunc(p, func(r rune) bool { return r == '/' })
	if len(segs) == 0 {
		return ""
	}
	last := segs[len(segs)-1]
	if i := strings.LastIndex(last, "."); i > 0 {
		last = last[:i]
	}
	words := strings.FieldsFunc(last, func(r rune) bool { return r == '-' || r == '_' || r == '+' })
	if len(words) == 0 {
		return ""
	}
	title := strings.Join(words, " ")
	r, size := utf8.DecodeRuneInString(title)
	return strings.ToUpper(string(r)) + title[size:]
}

func detailOf(rec *record, includeContent bool) domain.ItemDetail {
	d := domain.ItemDetail{Item: rec.item}
	if includeContent {
		c := rec.content
		d.Content = &c
	}
	return d
}

func olderThan(it domain.Item, at time.Time, id string) bool {
	if it.CreatedAt.Equal(at) {
		return it.ID < id
	}
	return it.CreatedAt.Before(at)
}

func encodeCursor(it domain.Item) string {
	return it.CreatedAt.UTC().Format(time.RFC3339Nano) + "|" + it.ID
}

func unprocessable(msg string) error {
	return &apperr.HTTPError{StatusCode: http.StatusUnprocessableEntity, Detail: msg}
}

func notFound() error {
	return &apperr.HTTPError{StatusCode: http.StatusNotFound, Detail: "Item not found."}
}
