package api

import (
	validation "github.com/go-ozzo/ozzo-validation/v4"

	"github.com/starford/quire/internal/editor"
	"github.com/starford/quire/internal/models"
	"github.com/starford/quire/internal/store"
)

// LoadRequest opens a note by id, or starts a new note when Type is "new".
type LoadRequest struct {
	ID   string `json:"id,omitempty" example:"6f1c2a8e-..."`
	Type string `json:"type,omitempty" example:"new"`
}

const loadTypeNew = "new"

func (r LoadRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Type, validation.In(loadTypeNew)),
		validation.Field(&r.ID, validation.When(r.Type == "", validation.Required)),
	)
}

// FullscreenRequest enters or leaves fullscreen.
type FullscreenRequest struct {
	On bool `json:"on"`
}

// ActionRequest queues a topic, tag or color action for the open note.
type ActionRequest = models.DeferredAction

// UnlockRequest unlocks the vault.
type UnlockRequest struct {
	Password string `json:"password" validate:"required"`
}

func (r UnlockRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Password, validation.Required),
	)
}

// BackResponse reports what a back press did.
type BackResponse struct {
	Result editor.BackResult `json:"result" example:"prompted"`
}

// StateResponse is the editor snapshot.
type StateResponse = editor.Snapshot

// NoteListResponse wraps paginated note listings.
type NoteListResponse struct {
	Notes []models.NoteSummary `json:"notes" validate:"required"`
	Total int                  `json:"total" example:"42" validate:"required"`
}

// SearchResponse wraps search results.
type SearchResponse struct {
	Results []store.SearchResult `json:"results" validate:"required"`
}

// ExportResponse names the written Markdown file.
type ExportResponse struct {
	Path string `json:"path" example:"groceries-6f1c2a8e.md"`
}

// ImportResponse carries the id of the imported note.
type ImportResponse struct {
	ID string `json:"id"`
}
