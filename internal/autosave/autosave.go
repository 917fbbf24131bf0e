// Package autosave turns keystrokes into debounced, deduplicated create calls.
//
// One Controller exists per input mode. Every change cancels the pending timers;
// a save is issued only after the input has been quiet for the debounce window.
package autosave

import (
	"context"
	"log/slog"
	"strings"
	"sync"
	"time"

	"nudge/internal/apperr"
	"nudge/internal/clock"
	"nudge/internal/domain"
	"nudge/internal/validate"
)

const (
	DefaultDebounce   = 700 * time.Millisecond
	DefaultSavedDecay = 2000 * time.Millisecond
	DefaultTimeout    = 15 * time.Second
)

// Submitter issues the create call for a settled value.
type Submitter interface {
	Submit(ctx context.Context, value string) (domain.CreatedItem, error)
}

// SubmitFunc adapts a function to Submitter.
type SubmitFunc func(ctx context.Context, value string) (domain.CreatedItem, error)

func (f SubmitFunc) Submit(ctx context.Context, value string) (domain.CreatedItem, error) {
	return f(ctx, value)
}

// Saved is reported after every successful create. ClearInput is false when the
// user kept typing while the call was in flight; the view must then leave the
// newer input alone.
type Saved struct {
	Mode       domain.InputMode
	Value      string
	Item       domain.CreatedItem
	ClearInput bool
}

// Options configure a Controller.
type Options struct {
	Mode       domain.InputMode
	Submitter  Submitter
	Clock      clock.Clock
	Debounce   time.Duration
	SavedDecay time.Duration
	Timeout    time.Duration
	Logger     *slog.Logger

	// OnChange receives every new status. It is called without locks held.
	OnChange func(domain.AutosaveStatus)
	// OnSaved receives successful saves. It is called without locks held.
	OnSaved func(Saved)
}

// Controller is the debounce state machine of one input mode.
type Controller struct {
	opts   Options
	logger *slog.Logger

	mu        sync.Mutex
	status    domain.AutosaveStatus
	lastSaved string
	gen       uint64
	debounce  clock.Timer
	decay     clock.Timer
	closed    bool
}

// New builds a controller in the idle state.
func New(opts Options) *Controller {
	if opts.Clock == nil {
		opts.Clock = clock.Real{}
	}
	if opts.Debounce <= 0 {
		opts.Debounce = DefaultDebounce
	}
	if opts.SavedDecay <= 0 {
		opts.SavedDecay = DefaultSavedDecay
	}
	if opts.Timeout <= 0 {
		opts.Timeout = DefaultTimeout
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}

	return &Controller{
		opts:   opts,
		logger: logger.With("mode", string(opts.Mode)),
		status: domain.AutosaveStatus{Mode: opts.Mode, State: domain.AutosaveIdle},
	}
}

// Mode returns the input mode the controller serves.
func (c *Controller) Mode() domain.InputMode {
	return c.opts.Mode
}

// Status returns the current status.
func (c *Controller) Status() domain.AutosaveStatus {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.status
}

// Change feeds the latest input value.
func (c *Controller) Change(value string) {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}
	c.gen++
	c.stopTimersLocked()

	next := domain.AutosaveStatus{Mode: c.opts.Mode, Value: value, LastSaved: c.lastSaved}
	switch {
	case strings.TrimSpace(value) == "":
		next.State = domain.AutosaveIdle
	case value == c.lastSaved:
		next.State = domain.AutosaveSaved
	case c.opts.Mode == domain.ModeURL && !validate.IsValidURL(value):
		next.State = domain.AutosaveInvalid
	default:
		next.State = domain.AutosaveTyping
		gen := c.gen
		c.debounce = c.opts.Clock.AfterFunc(c.opts.Debounce, func() { c.fire(gen) })
	}
	c.status = next
	c.mu.Unlock()

	c.notify(next)
}

// Deactivate resets the controller when its mode is switched away from.
func (c *Controller) Deactivate() {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}
	c.gen++
	c.stopTimersLocked()
	c.status = domain.AutosaveStatus{Mode: c.opts.Mode, State: domain.AutosaveIdle, LastSaved: c.lastSaved}
	st := c.status
	c.mu.Unlock()

	c.notify(st)
}

// Close cancels every timer. A save already in flight still records its result
// but no longer notifies.
func (c *Controller) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.closed = true
	c.gen++
	c.stopTimersLocked()
}

func (c *Controller) fire(gen uint64) {
	c.mu.Lock()
	if c.closed || gen != c.gen {
		c.mu.Unlock()
		return
	}
	c.debounce = nil
	value := c.status.Value
	c.status.State = domain.AutosaveSaving
	c.status.Err = ""
	st := c.status
	c.mu.Unlock()

	c.notify(st)

	ctx, cancel := context.WithTimeout(context.Background(), c.opts.Timeout)
	created, err := c.opts.Submitter.Submit(ctx, value)
	cancel()

	c.mu.Lock()
	if err == nil {
		c.lastSaved = value
	}
	if c.closed || gen != c.gen {
		closed := c.closed
		c.mu.Unlock()
		if err != nil {
			c.logger.Warn("autosave failed after input changed", "error", err)
			return
		}
		c.logger.Info("autosave stored superseded value", "id", created.ID)
		if !closed {
			c.saved(Saved{Mode: c.opts.Mode, Value: value, Item: created})
		}
		return
	}

	if err != nil {
		c.status.State = domain.AutosaveError
		c.status.Err = apperr.Message(err)
		st = c.status
		c.mu.Unlock()

		c.logger.Warn("autosave failed", "error", err)
		c.notify(st)
		return
	}

	c.status = domain.AutosaveStatus{Mode: c.opts.Mode, State: domain.AutosaveSaved, LastSaved: value}
	c.decay = c.opts.Clock.AfterFunc(c.opts.SavedDecay, func() { c.expire(gen) })
	st = c.status
	c.mu.Unlock()

	c.logger.Info("autosave stored", "id", created.ID, "status", created.Status)
	c.notify(st)
	c.saved(Saved{Mode: c.opts.Mode, Value: value, Item: created, ClearInput: true})
}

func (c *Controller) expire(gen uint64) {
	c.mu.Lock()
	if c.closed || gen != c.gen || c.status.State != domain.AutosaveSaved {
		c.mu.Unlock()
		return
	}
	c.decay = nil
	c.status.State = domain.AutosaveIdle
	st := c.status
	c.mu.Unlock()

	c.notify(st)
}

func (c *Controller) stopTimersLocked() {
	if c.debounce != nil {
		c.debounce.Stop()
		c.debounce = nil
	}
	if c.decay != nil {
		c.decay.Stop()
		c.decay = nil
	}
}

func (c *Controller) notify(st domain.AutosaveStatus) {
	if c.opts.OnChange != nil {
		c.opts.OnChange(st)
	}
}

func (c *Controller) saved(s Saved) {
	if c.opts.OnSaved != nil {
		c.opts.OnSaved(s)
	}
}
