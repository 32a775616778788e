package editor

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/starford/quire/internal/apperr"
	"github.com/starford/quire/internal/bridge"
	"github.com/starford/quire/internal/models"
)

// BackResult tells the host what a back press did.
type BackResult int

const (
	// BackPrompted means the first press armed the exit confirmation.
	BackPrompted BackResult = iota
	// BackExited means the press confirmed the exit and the editor closed.
	BackExited
	// BackFullscreenPrompt means the host should offer to leave fullscreen.
	BackFullscreenPrompt
	// BackUnhandled means the host should apply its default back behavior.
	BackUnhandled
)

func (r BackResult) String() string {
	switch r {
	case BackPrompted:
		return "prompted"
	case BackExited:
		return "exited"
	case BackFullscreenPrompt:
		return "fullscreen_prompt"
	case BackUnhandled:
		return "unhandled"
	}
	return "unknown"
}

// MarshalText renders the result name in JSON.
func (r BackResult) MarshalText() ([]byte, error) {
	return []byte(r.String()), nil
}

const (
	msgNoteSaved   = "Note saved"
	msgConfirmExit = "Press back again to exit editor"
)

// LoadNote opens an existing note. Unsaved edits of the previous session are
// written first; if that write fails the switch is abandoned and the
// previous session stays live.
func (c *Controller) LoadNote(ctx context.Context, note models.Note) error {
	if note.ID == "" {
		return errors.New("editor: load note: missing id")
	}
	return c.do(ctx, func(ctx context.Context) error {
		if err := c.flush(ctx); err != nil {
			return fmt.Errorf("editor: load note: %w", err)
		}
		c.disableMenuGesture()
		c.resetSession()
		c.state = StateLoading

		content := note.Content.Clone()
		if !note.Locked {
			delta, err := c.store.Delta(ctx, note.ID)
			switch {
			case err == nil:
				content.Delta = delta
			case errors.Is(err, apperr.ErrNotFound):
			default:
				c.state = StateIdle
				return fmt.Errorf("editor: load note %s: %w", note.ID, err)
			}
		}
		loaded := note
		loaded.Content = content
		c.sess = session{
			title:   note.Title,
			content: &content,
			id:      note.ID,
			note:    &loaded,
		}

		c.render(ctx, c.sess.title, c.sess.content)
		c.sess.canSave = true
		c.state = StateEditing
		c.nav.CurrentNote(note.ID)
		c.log.Debug("note loaded", slog.String("note_id", note.ID), slog.Bool("locked", note.Locked))
		return nil
	})
}

// NewNote clears the editor, keeping whatever was typed before, and starts
// an empty session that gets an identity on its first save.
func (c *Controller) NewNote(ctx context.Context) error {
	return c.do(ctx, func(ctx context.Context) error {
		c.disableMenuGesture()
		if err := c.clear(ctx); err != nil {
			return fmt.Errorf("editor: new note: %w", err)
		}
		c.send(ctx, bridge.FocusTitle{})
		c.sess.canSave = true
		c.state = StateEditing
		c.log.Debug("new note started")
		return nil
	})
}

// Clear saves the live session and empties the editor.
func (c *Controller) Clear(ctx context.Context) error {
	return c.do(ctx, func(ctx context.Context) error {
		if err := c.clear(ctx); err != nil {
			return fmt.Errorf("editor: clear: %w", err)
		}
		return nil
	})
}

// Exit saves the live session, closes the editor and hands navigation back
// to the host.
func (c *Controller) Exit(ctx context.Context) error {
	return c.do(ctx, func(ctx context.Context) error {
		if err := c.exit(ctx); err != nil {
			return fmt.Errorf("editor: exit: %w", err)
		}
		return nil
	})
}

// ExternalClear abandons the session without saving, e.g. after the note was
// deleted elsewhere. A non-empty id only clears the editor when that note is
// the one open. It reports whether the editor was cleared.
func (c *Controller) ExternalClear(ctx context.Context, id string) (bool, error) {
	var cleared bool
	err := c.do(ctx, func(ctx context.Context) error {
		if id != "" && id != c.sess.id {
			return nil
		}
		c.resetSession()
		c.nav.ExitEditor()
		c.send(ctx, bridge.ClearEditor{}, bridge.ClearTitle{}, bridge.Blur{})
		cleared = true
		c.log.Debug("editor cleared externally", slog.String("note_id", id))
		return nil
	})
	return cleared, err
}

// SetFullscreen enters or leaves fullscreen. Session and persistence are
// unaffected.
func (c *Controller) SetFullscreen(ctx context.Context, on bool) error {
	return c.do(ctx, func(ctx context.Context) error {
		c.editing.SetFullscreen(on)
		if on {
			c.send(ctx, bridge.NoMenu{Value: false})
		}
		c.nav.Fullscreen(on)
		return nil
	})
}

// BackPress handles the hardware back button.
//
// On phones the first press arms a confirmation that expires after
// ConfirmWindow; a second press inside the window exits the editor. Tablets
// with a side menu ask the host to prompt for leaving fullscreen instead.
func (c *Controller) BackPress(ctx context.Context) (BackResult, error) {
	var res BackResult
	err := c.do(ctx, func(ctx context.Context) error {
		switch {
		case c.cfg.Tablet && !c.cfg.NoMenu:
			c.editing.SetFullscreen(false)
			c.nav.PromptExitFullscreen()
			res = BackFullscreenPrompt
			return nil
		case c.cfg.Tablet:
			res = BackUnhandled
			return nil
		}

		if c.sess.tapCount > 0 {
			if err := c.exit(ctx); err != nil {
				return fmt.Errorf("editor: back: %w", err)
			}
			res = BackExited
			return nil
		}
		c.sess.tapCount = 1
		c.after(keyConfirm, c.cfg.ConfirmWindow, func(context.Context) error {
			c.sess.tapCount = 0
			return nil
		})
		c.notifier.ShowToast(ToastSuccess, msgConfirmExit)
		res = BackPrompted
		return nil
	})
	return res, err
}

// QueueAction records a metadata operation for the note being edited. For a
// note without an identity it is held until the first save; otherwise it is
// applied right away.
func (c *Controller) QueueAction(ctx context.Context, a models.DeferredAction) error {
	if err := a.Validate(); err != nil {
		return fmt.Errorf("editor: queue action: %w", err)
	}
	return c.do(ctx, func(ctx context.Context) error {
		c.editing.SetActionAfterFirstSave(a)
		if c.sess.id != "" {
			c.replayDeferred(ctx, c.sess.id)
		}
		return nil
	})
}

// clear flushes and drops the session, then blanks the view.
func (c *Controller) clear(ctx context.Context) error {
	if err := c.flush(ctx); err != nil {
		return err
	}
	c.resetSession()
	c.send(ctx, bridge.ClearEditor{}, bridge.ClearTitle{}, bridge.Blur{})
	return nil
}

func (c *Controller) exit(ctx context.Context) error {
	if err := c.flush(ctx); err != nil {
		return err
	}
	saved := c.sess.id != ""
	c.nav.ExitEditor()
	if saved {
		c.notifier.ShowToast(ToastSuccess, msgNoteSaved)
	}
	if err := c.clear(ctx); err != nil {
		return err
	}
	if !c.cfg.NoMenu {
		if c.cfg.Tablet {
			c.nav.OpenMenu()
		}
		c.nav.SetMenuGesture(true)
	}
	return nil
}

func (c *Controller) disableMenuGesture() {
	if !c.cfg.NoMenu {
		c.nav.SetMenuGesture(false)
	}
}
