// Package editor keeps the note open in the editor consistent across the
// content view, the note store and the vault.
//
// All state lives on a single controller goroutine. Public methods submit
// work to it and wait for the result; timer fires are forwarded to it and
// validated there, so a save can never race a note switch.
package editor

import (
	"context"
	"errors"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/jonboulle/clockwork"

	"github.com/starford/quire/internal/apperr"
	"github.com/starford/quire/internal/bridge"
	"github.com/starford/quire/internal/timer"
)

const (
	keyAutosave timer.Key = "autosave"
	keyConfirm  timer.Key = "back-confirm"
	keyResolve  timer.Key = "resolve-identity"
)

// Config holds the editor's timing and presentation policy.
type Config struct {
	AutosaveDelay     time.Duration
	ConfirmWindow     time.Duration
	ResolveRetryDelay time.Duration
	// A save refreshes the notes list while the body is shorter than
	// RefreshTextLimit characters or fewer than RefreshMinSaves saves have
	// completed in the session.
	RefreshTextLimit int
	RefreshMinSaves  int
	NoMenu           bool
	Tablet           bool
}

// DefaultConfig returns the stock editor policy.
func DefaultConfig() Config {
	return Config{
		AutosaveDelay:     500 * time.Millisecond,
		ConfirmWindow:     3 * time.Second,
		ResolveRetryDelay: 500 * time.Millisecond,
		RefreshTextLimit:  200,
		RefreshMinSaves:   2,
	}
}

// Deps are the collaborators a Controller drives. Editing, Clock and Logger
// are optional.
type Deps struct {
	Store     Store
	Vault     Vault
	Transport bridge.Transport
	Notifier  Notifier
	Navigator Navigator
	Refresher Refresher
	Editing   *Editing
	Clock     clockwork.Clock
	Logger    *slog.Logger
}

type request struct {
	ctx  context.Context
	fn   func(ctx context.Context) error
	done chan error
}

// Controller is the editor lifecycle state machine.
type Controller struct {
	cfg       Config
	store     Store
	vault     Vault
	transport bridge.Transport
	notifier  Notifier
	nav       Navigator
	refresher Refresher
	editing   *Editing
	timers    *timer.Set
	log       *slog.Logger

	// Owned by the loop goroutine.
	state State
	sess  session
	theme map[string]string

	baseCtx context.Context
	cancel  context.CancelFunc
	reqCh   chan request
	stopCh  chan struct{}
	stopped chan struct{}
	closed  atomic.Bool
}

// New creates a Controller and starts its loop.
func New(cfg Config, deps Deps) *Controller {
	if deps.Editing == nil {
		deps.Editing = NewEditing()
	}
	if deps.Logger == nil {
		deps.Logger = slog.Default()
	}
	ctx, cancel := context.WithCancel(context.Background())
	c := &Controller{
		cfg:       cfg,
		store:     deps.Store,
		vault:     deps.Vault,
		transport: deps.Transport,
		notifier:  deps.Notifier,
		nav:       deps.Navigator,
		refresher: deps.Refresher,
		editing:   deps.Editing,
		timers:    timer.NewSet(deps.Clock),
		log:       deps.Logger.With(slog.String("component", "editor")),
		baseCtx:   ctx,
		cancel:    cancel,
		reqCh:     make(chan request),
		stopCh:    make(chan struct{}),
		stopped:   make(chan struct{}),
	}
	go c.run()
	return c
}

func (c *Controller) run() {
	defer close(c.stopped)
	for {
		select {
		case <-c.stopCh:
			c.timers.Stop()
			c.sess = session{}
			c.state = StateIdle
			return
		case req := <-c.reqCh:
			err := req.fn(req.ctx)
			if req.done != nil {
				req.done <- err
			} else if err != nil {
				c.log.Warn("background step failed", slog.String("error", err.Error()))
			}
		}
	}
}

// do runs fn on the loop and waits for it to finish.
func (c *Controller) do(ctx context.Context, fn func(ctx context.Context) error) error {
	if c.closed.Load() {
		return apperr.ErrClosed
	}
	done := make(chan error, 1)
	select {
	case c.reqCh <- request{ctx: ctx, fn: fn, done: done}:
	case <-c.stopped:
		return apperr.ErrClosed
	case <-ctx.Done():
		return ctx.Err()
	}
	select {
	case err := <-done:
		return err
	case <-c.stopped:
		select {
		case err := <-done:
			return err
		default:
			return apperr.ErrClosed
		}
	}
}

// post queues fn on the loop without waiting. It is used from timer
// goroutines.
func (c *Controller) post(fn func(ctx context.Context) error) {
	select {
	case c.reqCh <- request{ctx: c.baseCtx, fn: fn}:
	case <-c.stopped:
	}
}

// after arms key and runs fn on the loop when it fires, unless the key was
// cancelled or re-armed in between.
func (c *Controller) after(key timer.Key, d time.Duration, fn func(ctx context.Context) error) {
	c.timers.Schedule(key, d, func(gen uint64) {
		c.post(func(ctx context.Context) error {
			if !c.timers.Claim(key, gen) {
				return nil
			}
			return fn(ctx)
		})
	})
}

// Close stops the loop. Pending timers are dropped without saving; call
// Flush first to keep unsaved edits.
func (c *Controller) Close() {
	if c.closed.CompareAndSwap(false, true) {
		close(c.stopCh)
	}
	<-c.stopped
	c.cancel()
}

// Flush persists unsaved edits of the live session now, cancelling the
// pending autosave.
func (c *Controller) Flush(ctx context.Context) error {
	return c.do(ctx, c.flush)
}

// State returns a snapshot of the editor.
func (c *Controller) State(ctx context.Context) (Snapshot, error) {
	var snap Snapshot
	err := c.do(ctx, func(context.Context) error {
		s := &c.sess
		snap = Snapshot{
			State:         c.state,
			ID:            s.id,
			Title:         s.title,
			HasContent:    s.content != nil,
			SaveCounter:   s.saveCounter,
			TapCount:      s.tapCount,
			CanSave:       s.canSave,
			Dirty:         s.dirty,
			SavePending:   c.timers.Pending(keyAutosave),
			Fullscreen:    c.editing.Fullscreen(),
			PendingAction: c.editing.ActionAfterFirstSave(),
		}
		if s.content != nil {
			snap.Text = s.content.Text
		}
		if s.note != nil {
			snap.DateEdited = s.note.DateEdited
		}
		return nil
	})
	return snap, err
}

// send pushes commands to the view in order. Delivery failures are logged;
// the view resynchronizes on its next ready signal.
func (c *Controller) send(ctx context.Context, cmds ...bridge.Command) {
	for _, cmd := range cmds {
		if err := c.transport.Send(ctx, cmd); err != nil {
			c.log.Warn("bridge send failed",
				slog.String("type", string(cmd.CommandType())),
				slog.String("error", err.Error()))
			if errors.Is(err, context.Canceled) {
				return
			}
		}
	}
}

// resetSession drops the live session and every timer tied to it.
func (c *Controller) resetSession() {
	c.timers.Cancel(keyAutosave)
	c.timers.Cancel(keyConfirm)
	c.timers.Cancel(keyResolve)
	c.sess = session{}
	c.state = StateIdle
}
