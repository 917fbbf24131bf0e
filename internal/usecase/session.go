package usecase

import (
	"context"
	"fmt"
	"log/slog"
	"maps"
	"sync"
	"time"

	"nudge/internal/apperr"
	"nudge/internal/autosave"
	"nudge/internal/clock"
	"nudge/internal/digest"
	"nudge/internal/domain"
	"nudge/internal/listsync"
	"nudge/internal/ports"
	"nudge/internal/window"
	"nudge/internal/workpool"
)

// SessionConfig carries the timing knobs of one interactive session.
type SessionConfig struct {
	Debounce     time.Duration
	SavedDecay   time.Duration
	PollInterval time.Duration
	PageSize     int
	FetchLimit   int
	Timeout      time.Duration
	Location     *time.Location
}

// SessionDeps wires the backend and strategies into a session.
type SessionDeps struct {
	API       ports.ItemsAPI
	Assembler *digest.Assembler
	Clock     clock.Clock
	Logger    *slog.Logger
	Config    SessionConfig
}

// View is an immutable snapshot of everything a front end renders.
type View struct {
	Mode        domain.InputMode
	URL         domain.AutosaveStatus
	Text        domain.AutosaveStatus
	List        listsync.Snapshot
	Contents    map[string]domain.ItemContent
	Drafts      map[string]string
	Submitting  map[string]bool
	Digest      *domain.WeeklyDigest
	Summarizing bool
	Banner      string
	Notice      string
	// Clears counts saves per mode after which the input must be emptied and refocused.
	Clears map[domain.InputMode]uint64
}

// Autosave returns the status of the given mode.
func (v View) Autosave(mode domain.InputMode) domain.AutosaveStatus {
	if mode == domain.ModeText {
		return v.Text
	}
	return v.URL
}

// Session is the client engine behind one view: autosave per mode, the synced
// list, the content cache, drafts and the last digest.
type Session struct {
	api       ports.ItemsAPI
	assembler *digest.Assembler
	clock     clock.Clock
	logger    *slog.Logger
	cfg       SessionConfig

	list        *listsync.Synchronizer
	controllers map[domain.InputMode]*autosave.Controller
	changes     chan struct{}

	mu          sync.Mutex
	mode        domain.InputMode
	contents    map[string]domain.ItemContent
	drafts      map[string]string
	submitting  map[string]bool
	digest      *domain.WeeklyDigest
	summarizing bool
	digestErr   string
	notice      string
	clears      map[domain.InputMode]uint64
}

// NewSession builds an idle session in URL mode.
func NewSession(deps SessionDeps) *Session {
	cfg := deps.Config
	if cfg.FetchLimit <= 0 {
		cfg.FetchLimit = workpool.DefaultLimit
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = autosave.DefaultTimeout
	}
	if cfg.Location == nil {
		cfg.Location = time.Local
	}
	clk := deps.Clock
	if clk == nil {
		clk = clock.Real{}
	}
	logger := deps.Logger
	if logger == nil {
		logger = slog.Default()
	}
	assembler := deps.Assembler
	if assembler == nil {
		assembler = digest.NewAssembler(nil, nil, logger)
	}

	s := &Session{
		api:        deps.API,
		assembler:  assembler,
		clock:      clk,
		logger:     logger,
		cfg:        cfg,
		changes:    make(chan struct{}, 1),
		mode:       domain.ModeURL,
		contents:   map[string]domain.ItemContent{},
		drafts:     map[string]string{},
		submitting: map[string]bool{},
		clears:     map[domain.InputMode]uint64{},
	}

	s.list = listsync.New(deps.API, listsync.Options{
		Clock:        clk,
		PollInterval: cfg.PollInterval,
		PageSize:     cfg.PageSize,
		Timeout:      cfg.Timeout,
		Logger:       logger.With("component", "listsync"),
		OnChange:     func(listsync.Snapshot) { s.signal() },
	})

	s.controllers = map[domain.InputMode]*autosave.Controller{
		domain.ModeURL: autosave.New(autosave.Options{
			Mode:       domain.ModeURL,
			Submitter:  autosave.SubmitFunc(s.createFromURL),
			Clock:      clk,
			Debounce:   cfg.Debounce,
			SavedDecay: cfg.SavedDecay,
			Timeout:    cfg.Timeout,
			Logger:     logger.With("component", "autosave"),
			OnChange:   func(domain.AutosaveStatus) { s.signal() },
			OnSaved:    s.onSaved,
		}),
		domain.ModeText: autosave.New(autosave.Options{
			Mode:       domain.ModeText,
			Submitter:  autosave.SubmitFunc(s.createFromText),
			Clock:      clk,
			Debounce:   cfg.Debounce,
			SavedDecay: cfg.SavedDecay,
			Timeout:    cfg.Timeout,
			Logger:     logger.With("component", "autosave"),
			OnChange:   func(domain.AutosaveStatus) { s.signal() },
			OnSaved:    s.onSaved,
		}),
	}

	return s
}

// Start performs the initial list load.
func (s *Session) Start(ctx context.Context) error {
	return s.list.Refresh(ctx, false)
}

// Close cancels every timer owned by the session. In-flight calls are not
// cancelled; their results are applied if they arrive.
func (s *Session) Close() {
	for _, c := range s.controllers {
		c.Close()
	}
	s.list.Close()
}

// Changes delivers a coalesced signal whenever the view should re-render.
func (s *Session) Changes() <-chan struct{} {
	return s.changes
}

// Mode returns the active input mode.
func (s *Session) Mode() domain.InputMode {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.mode
}

// SwitchMode activates mode and resets the controller being left.
func (s *Session) SwitchMode(mode domain.InputMode) {
	s.mu.Lock()
	prev := s.mode
	if prev == mode || s.controllers[mode] == nil {
		s.mu.Unlock()
		return
	}
	s.mode = mode
	s.mu.Unlock()

	s.controllers[prev].Deactivate()
	s.signal()
}

// SetInput feeds a keystroke-level value change for mode.
func (s *Session) SetInput(mode domain.InputMode, value string) {
	if c := s.controllers[mode]; c != nil {
		c.Change(value)
	}
}

// Refresh reloads the list; manual shows the refreshing indicator.
func (s *Session) Refresh(ctx context.Context, manual bool) error {
	return s.list.Refresh(ctx, manual)
}

// DismissError hides the banner.
func (s *Session) DismissError() {
	s.mu.Lock()
	s.digestErr = ""
	s.mu.Unlock()
	s.list.DismissError()
}

// DismissNotice hides the patch notice.
func (s *Session) DismissNotice() {
	s.mu.Lock()
	s.notice = ""
	s.mu.Unlock()
	s.signal()
}

// SetDraft stores the pending pasted text of an item.
func (s *Session) SetDraft(id, text string) {
	s.mu.Lock()
	next := maps.Clone(s.drafts)
	if text == "" {
		delete(next, id)
	} else {
		next[id] = text
	}
	s.drafts = next
	s.mu.Unlock()
	s.signal()
}

// Summarize fetches content for this week's succeeded items, merges it into the
// cache and rebuilds the digest. Fetch failures surface as a banner; the digest
// is still built from whatever content is available.
func (s *Session) Summarize(ctx context.Context) (domain.WeeklyDigest, error) {
	s.mu.Lock()
	s.summarizing = true
	s.mu.Unlock()
	s.signal()

	now := s.now()
	_, inWindow := window.Filter(s.list.Snapshot().Items, now)
	fresh, err := fetchContents(ctx, s.api, succeededIDs(inWindow, nil), s.cfg.FetchLimit)

	s.mu.Lock()
	s.contents = mergeContents(s.contents, fresh)
	contents := s.contents
	s.mu.Unlock()

	d := s.assembler.Assemble(ctx, now, s.list.Snapshot().Items, contents)

	s.mu.Lock()
	s.digest = &d
	s.summarizing = false
	if err != nil {
		s.digestErr = fmt.Sprintf("Could not load %d item(s): %s", countFailures(err), apperr.Message(err))
	} else {
		s.digestErr = ""
	}
	s.mu.Unlock()
	s.signal()

	if err != nil {
		s.logger.Warn("digest content fetch incomplete", "error", err)
	}
	return d, err
}

// View returns a snapshot for rendering.
func (s *Session) View() View {
	list := s.list.Snapshot()
	url := s.controllers[domain.ModeURL].Status()
	text := s.controllers[domain.ModeText].Status()

	s.mu.Lock()
	defer s.mu.Unlock()

	banner := s.digestErr
	if banner == "" {
		banner = list.Err
	}
	return View{
		Mode:        s.mode,
		URL:         url,
		Text:        text,
		List:        list,
		Contents:    s.contents,
		Drafts:      s.drafts,
		Submitting:  s.submitting,
		Digest:      s.digest,
		Summarizing: s.summarizing,
		Banner:      banner,
		Notice:      s.notice,
		Clears:      maps.Clone(s.clears),
	}
}

func (s *Session) createFromURL(ctx context.Context, value string) (domain.CreatedItem, error) {
	return s.api.CreateItem(ctx, domain.CreateRequest{URL: value})
}

func (s *Session) createFromText(ctx context.Context, value string) (domain.CreatedItem, error) {
	return s.api.CreateItem(ctx, domain.CreateRequest{PastedText: value, PreferPastedText: true})
}

func (s *Session) onSaved(saved autosave.Saved) {
	now := s.clock.Now()
	entry := domain.Item{
		ID:        saved.Item.ID,
		Status:    saved.Item.Status,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if saved.Mode == domain.ModeURL {
		entry.SourceType = domain.SourceURL
		entry.RequestedURL = saved.Value
	} else {
		entry.SourceType = domain.SourcePastedText
	}
	s.list.Insert(entry)

	if saved.ClearInput {
		s.mu.Lock()
		next := maps.Clone(s.clears)
		next[saved.Mode]++
		s.clears = next
		s.mu.Unlock()
		s.signal()
	}

	ctx, cancel := context.WithTimeout(context.Background(), s.cfg.Timeout)
	defer cancel()
	_ = s.list.Refresh(ctx, false)
}

func (s *Session) now() time.Time {
	return s.clock.Now().In(s.cfg.Location)
}

func (s *Session) signal() {
	select {
	case s.changes <- struct{}{}:
	default:
	}
}
