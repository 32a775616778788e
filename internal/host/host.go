// Package host publishes editor signals to the host UI as SSE events.
package host

import (
	"log/slog"

	"github.com/starford/quire/internal/editor"
	"github.com/starford/quire/internal/sse"
)

// Event types emitted to the host UI.
const (
	EventToast          = "toast"
	EventRefresh        = "notes.refresh"
	EventMenuGesture    = "nav.gesture"
	EventOpenMenu       = "nav.menu"
	EventExitEditor     = "nav.exit"
	EventFullscreen     = "nav.fullscreen"
	EventPromptFullExit = "nav.prompt"
	EventCurrentNote    = "editor.current"
)

// StickyTypes lists the host events a late subscriber should see on connect.
func StickyTypes() []string {
	return []string{EventMenuGesture, EventFullscreen, EventCurrentNote}
}

// Toast is the payload of a toast event.
type Toast struct {
	Kind    editor.ToastKind `json:"kind"`
	Message string           `json:"message"`
}

type flag struct {
	Enabled bool `json:"enabled"`
}

type current struct {
	ID string `json:"id"`
}

// Publisher implements editor.Notifier, editor.Navigator and editor.Refresher
// on top of an SSE broker.
type Publisher struct {
	broker *sse.Broker
	log    *slog.Logger
}

// NewPublisher wraps broker.
func NewPublisher(broker *sse.Broker, logger *slog.Logger) *Publisher {
	if logger == nil {
		logger = slog.Default()
	}
	return &Publisher{broker: broker, log: logger}
}

func (p *Publisher) ShowToast(kind editor.ToastKind, message string) {
	p.publish(EventToast, Toast{Kind: kind, Message: message})
}

func (p *Publisher) RefreshNotes()               { p.publish(EventRefresh, struct{}{}) }
func (p *Publisher) SetMenuGesture(enabled bool) { p.publish(EventMenuGesture, flag{Enabled: enabled}) }
func (p *Publisher) OpenMenu()                   { p.publish(EventOpenMenu, struct{}{}) }
func (p *Publisher) ExitEditor()                 { p.publish(EventExitEditor, struct{}{}) }
func (p *Publisher) Fullscreen(on bool)          { p.publish(EventFullscreen, flag{Enabled: on}) }
func (p *Publisher) PromptExitFullscreen()       { p.publish(EventPromptFullExit, struct{}{}) }
func (p *Publisher) CurrentNote(id string)       { p.publish(EventCurrentNote, current{ID: id}) }

func (p *Publisher) publish(typ string, data any) {
	p.log.Debug("host event", slog.String("type", typ))
	p.broker.Publish(sse.Event{Type: typ, Data: data})
}

var (
	_ editor.Notifier  = (*Publisher)(nil)
	_ editor.Navigator = (*Publisher)(nil)
	_ editor.Refresher = (*Publisher)(nil)
)
