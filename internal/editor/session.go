package editor

import (
	"strings"
	"sync"
	"time"

	"github.com/starford/quire/internal/models"
)

// State is the lifecycle state of the editor.
type State int

const (
	StateIdle State = iota
	StateLoading
	StateEditing
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateLoading:
		return "loading"
	case StateEditing:
		return "editing"
	}
	return "unknown"
}

// MarshalText renders the state name in JSON.
func (s State) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// session is the note currently open in the editor. It is owned by the
// controller loop and replaced wholesale on every note switch.
type session struct {
	title   string
	content *models.Content
	id      string
	note    *models.Note

	saveCounter int
	tapCount    int
	canSave     bool
	dirty       bool
}

// empty reports whether there is nothing worth persisting.
func (s *session) empty() bool {
	text := ""
	if s.content != nil {
		text = s.content.Text
	}
	return strings.TrimSpace(s.title) == "" && text == ""
}

// Snapshot is a read-only copy of the editor state.
type Snapshot struct {
	State         State                 `json:"state"`
	ID            string                `json:"id,omitempty"`
	Title         string                `json:"title"`
	Text          string                `json:"text"`
	HasContent    bool                  `json:"has_content"`
	DateEdited    time.Time             `json:"date_edited,omitzero"`
	SaveCounter   int                   `json:"save_counter"`
	TapCount      int                   `json:"tap_count"`
	CanSave       bool                  `json:"can_save"`
	Dirty         bool                  `json:"dirty"`
	SavePending   bool                  `json:"save_pending"`
	Fullscreen    bool                  `json:"fullscreen"`
	PendingAction models.DeferredAction `json:"pending_action"`
}

// Editing is the process-wide editing context. It outlives individual
// sessions and holds the action to replay after a new note's first save.
type Editing struct {
	mu         sync.Mutex
	action     models.DeferredAction
	fullscreen bool
}

// NewEditing returns an empty editing context.
func NewEditing() *Editing {
	return &Editing{}
}

// SetActionAfterFirstSave replaces the pending action.
func (e *Editing) SetActionAfterFirstSave(a models.DeferredAction) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.action = a
}

// ActionAfterFirstSave returns the pending action without consuming it.
func (e *Editing) ActionAfterFirstSave() models.DeferredAction {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.action
}

// take returns the pending action and clears it.
func (e *Editing) take() models.DeferredAction {
	e.mu.Lock()
	defer e.mu.Unlock()
	a := e.action
	e.action = models.DeferredAction{}
	return a
}

// SetFullscreen records whether the editor is shown fullscreen.
func (e *Editing) SetFullscreen(on bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.fullscreen = on
}

// Fullscreen reports whether the editor is shown fullscreen.
func (e *Editing) Fullscreen() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.fullscreen
}
