package editor

import (
	"context"
	"encoding/json"

	"github.com/starford/quire/internal/models"
)

// Store is the plain note store the editor persists through.
// NoteByID and Delta return apperr.ErrNotFound for unknown ids.
type Store interface {
	NoteByID(ctx context.Context, id string) (*models.Note, error)
	// AddOrUpdate writes the note and returns its identity, assigning a
	// fresh one when in.ID is empty.
	AddOrUpdate(ctx context.Context, in models.NoteInput) (string, error)
	Move(ctx context.Context, dest models.Destination, id string) error
	Tag(ctx context.Context, id, tag string) error
	Color(ctx context.Context, id, color string) error
	Delta(ctx context.Context, id string) (json.RawMessage, error)
}

// Vault is the encrypted write path for locked notes.
type Vault interface {
	Save(ctx context.Context, in models.NoteInput) error
}

// ToastKind selects how the host styles a transient notification.
type ToastKind string

const (
	ToastSuccess ToastKind = "success"
	ToastError   ToastKind = "error"
)

// Notifier shows transient notifications to the user.
type Notifier interface {
	ShowToast(kind ToastKind, message string)
}

// Navigator receives navigation and chrome signals from the editor.
type Navigator interface {
	SetMenuGesture(enabled bool)
	OpenMenu()
	ExitEditor()
	Fullscreen(on bool)
	PromptExitFullscreen()
	// CurrentNote reports the identity of the note open in the editor.
	CurrentNote(id string)
}

// Refresher asks the notes list to re-query.
type Refresher interface {
	RefreshNotes()
}
