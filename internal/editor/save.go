package editor

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"unicode/utf8"

	"github.com/starford/quire/internal/apperr"
	"github.com/starford/quire/internal/models"
)

// armAutosave (re)starts the debounce window for the live session.
func (c *Controller) armAutosave() {
	c.after(keyAutosave, c.cfg.AutosaveDelay, func(ctx context.Context) error {
		c.persist(ctx)
		return nil
	})
}

// persist saves the session and surfaces failures to the user. The session
// keeps its in-memory edits and stays dirty, so the next debounce cycle
// retries the write.
func (c *Controller) persist(ctx context.Context) error {
	err := c.saveNote(ctx)
	if err != nil {
		c.log.Warn("save failed",
			slog.String("note_id", c.sess.id),
			slog.String("error", err.Error()))
		c.notifier.ShowToast(ToastError, "Could not save note")
	}
	return err
}

// flush cancels the pending autosave and writes any unsaved edits now.
// Every transition that replaces or drops the session calls it first.
func (c *Controller) flush(ctx context.Context) error {
	pending := c.timers.Cancel(keyAutosave)
	if !pending && !c.sess.dirty {
		return nil
	}
	return c.persist(ctx)
}

// saveNote routes the session to the vault or the plain store.
func (c *Controller) saveNote(ctx context.Context) error {
	s := &c.sess
	if !s.canSave {
		return nil
	}
	if s.empty() {
		s.dirty = false
		return nil
	}
	if s.content == nil {
		s.content = &models.Content{Delta: models.EmptyDelta}
	}

	locked, err := c.lockedNow(ctx, s.id)
	if err != nil {
		return err
	}
	in := models.NoteInput{ID: s.id, Title: s.title, Content: s.content.Clone()}

	if locked {
		if err := c.vault.Save(ctx, in); err != nil {
			return fmt.Errorf("editor: vault save: %w", err)
		}
		s.dirty = false
		c.log.Debug("saved to vault", slog.String("note_id", s.id))
		return nil
	}

	id, err := c.store.AddOrUpdate(ctx, in)
	if err != nil {
		return fmt.Errorf("editor: save note: %w", err)
	}
	s.dirty = false
	if id != s.id {
		c.adoptIdentity(ctx, id)
	}
	if s.id != "" {
		c.replayDeferred(ctx, s.id)
		c.nav.CurrentNote(s.id)
	}

	if utf8.RuneCountInString(s.content.Text) < c.cfg.RefreshTextLimit || s.saveCounter < c.cfg.RefreshMinSaves {
		c.refresher.RefreshNotes()
	}
	s.saveCounter++
	c.log.Debug("saved note", slog.String("note_id", s.id), slog.Int("save_counter", s.saveCounter))
	return nil
}

// lockedNow looks the lock flag up fresh from the store. A note without an
// identity, or one the store no longer knows, is treated as unlocked.
func (c *Controller) lockedNow(ctx context.Context, id string) (bool, error) {
	if id == "" {
		return false, nil
	}
	note, err := c.store.NoteByID(ctx, id)
	switch {
	case errors.Is(err, apperr.ErrNotFound):
		return false, nil
	case err != nil:
		return false, fmt.Errorf("editor: lock state of %s: %w", id, err)
	}
	return note.Locked, nil
}

// adoptIdentity switches the session to the identity the store assigned and
// re-resolves the note. A note that is not yet visible is looked up once more
// after ResolveRetryDelay.
func (c *Controller) adoptIdentity(ctx context.Context, id string) {
	c.sess.id = id
	note, err := c.store.NoteByID(ctx, id)
	if err == nil {
		c.sess.note = note
		return
	}
	c.log.Debug("note not visible yet, retrying lookup",
		slog.String("note_id", id),
		slog.String("error", err.Error()))
	c.after(keyResolve, c.cfg.ResolveRetryDelay, func(ctx context.Context) error {
		if c.sess.id != id {
			return nil
		}
		note, err := c.store.NoteByID(ctx, id)
		if err != nil {
			return fmt.Errorf("editor: resolve note %s: %w", id, err)
		}
		c.sess.note = note
		return nil
	})
}

// replayDeferred applies the action queued before the note had an identity.
// The action is cleared before it runs, so a failure is never replayed.
func (c *Controller) replayDeferred(ctx context.Context, id string) {
	a := c.editing.take()
	if a.IsZero() {
		return
	}
	var err error
	switch a.Kind {
	case models.ActionTopic:
		err = c.store.Move(ctx, models.Destination{Notebook: a.Container, Topic: a.Target}, id)
	case models.ActionTag:
		err = c.store.Tag(ctx, id, a.Target)
	case models.ActionColor:
		err = c.store.Color(ctx, id, a.Target)
	default:
		err = fmt.Errorf("unknown action kind %q", a.Kind)
	}
	if err != nil {
		c.log.Warn("deferred action failed",
			slog.String("note_id", id),
			slog.String("kind", string(a.Kind)),
			slog.String("error", err.Error()))
		c.notifier.ShowToast(ToastError, "Could not apply "+string(a.Kind)+" to note")
		return
	}
	c.log.Debug("deferred action applied", slog.String("note_id", id), slog.String("kind", string(a.Kind)))
}
