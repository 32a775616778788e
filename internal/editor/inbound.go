package editor

import (
	"context"
	"errors"
	"log/slog"
	"maps"

	"github.com/starford/quire/internal/bridge"
	"github.com/starford/quire/internal/models"
)

// HandleMessage processes one raw payload from the content view.
//
// Empty and malformed payloads are ignored: they return nil and leave the
// session and the pending autosave untouched.
func (c *Controller) HandleMessage(ctx context.Context, raw string) error {
	msg, err := bridge.ParseMessage(raw)
	if errors.Is(err, bridge.ErrEmptyPayload) {
		return nil
	}
	if err != nil {
		c.log.Warn("ignoring malformed inbound payload", slog.String("error", err.Error()))
		return nil
	}
	return c.do(ctx, func(ctx context.Context) error {
		switch m := msg.(type) {
		case bridge.Ready:
			c.onViewReady(ctx)
		case bridge.TitleUpdate:
			c.timers.Cancel(keyAutosave)
			c.sess.title = m.Value
			c.sess.dirty = true
			c.armAutosave()
		case bridge.ContentUpdate:
			c.timers.Cancel(keyAutosave)
			c.sess.content = &models.Content{Text: m.Text, Delta: m.Delta}
			c.sess.dirty = true
			c.armAutosave()
		}
		return nil
	})
}

// onViewReady brings a freshly booted view up to date.
func (c *Controller) onViewReady(ctx context.Context) {
	c.send(ctx, bridge.NoMenu{Value: c.cfg.NoMenu})
	if c.sess.id != "" {
		c.render(ctx, c.sess.title, c.sess.content)
	} else {
		c.send(ctx, bridge.FocusTitle{})
	}
	c.send(ctx, bridge.Theme{Colors: c.theme})
}

// render pushes a title and body to the view.
func (c *Controller) render(ctx context.Context, title string, content *models.Content) {
	if title != "" {
		c.send(ctx, bridge.Title{Value: title})
	} else {
		c.send(ctx, bridge.ClearTitle{}, bridge.ClearEditor{}, bridge.FocusTitle{})
	}
	switch {
	case content == nil || (content.Text == "" && content.Delta == nil):
		c.send(ctx, bridge.ClearEditor{})
	case content.Delta != nil:
		c.send(ctx, bridge.Delta{Value: content.Delta})
	default:
		c.send(ctx, bridge.Text{Value: content.Text})
	}
}

// SetTheme stores the palette and pushes it to the view.
func (c *Controller) SetTheme(ctx context.Context, colors map[string]string) error {
	colors = maps.Clone(colors)
	return c.do(ctx, func(ctx context.Context) error {
		c.theme = colors
		c.send(ctx, bridge.Theme{Colors: colors})
		return nil
	})
}

// SetNoMenu switches no-menu mode and tells the view.
func (c *Controller) SetNoMenu(ctx context.Context, on bool) error {
	return c.do(ctx, func(ctx context.Context) error {
		c.cfg.NoMenu = on
		c.send(ctx, bridge.NoMenu{Value: on})
		return nil
	})
}
