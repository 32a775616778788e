// Package notes coordinates the note store, the vault and Markdown export
// for the HTTP and MCP surfaces.
package notes

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/starford/quire/internal/export"
	"github.com/starford/quire/internal/models"
	"github.com/starford/quire/internal/store"
)

// Store is the subset of the note store the service uses.
type Store interface {
	NoteByID(ctx context.Context, id string) (*models.Note, error)
	AddOrUpdate(ctx context.Context, in models.NoteInput) (string, error)
	Tag(ctx context.Context, id, tag string) error
	Color(ctx context.Context, id, color string) error
	Move(ctx context.Context, dest models.Destination, id string) error
	Delete(ctx context.Context, id string) error
	List(ctx context.Context, limit, offset int, tag string) ([]models.NoteSummary, int, error)
	Search(ctx context.Context, query string, limit int) ([]store.SearchResult, error)
}

// Vault opens and locks encrypted notes.
type Vault interface {
	Unlock(ctx context.Context, password string) error
	Lock(ctx context.Context, id string) error
	Open(ctx context.Context, id string) (models.Note, error)
}

// EditorHook is told when a note disappears underneath the editor.
type EditorHook interface {
	ExternalClear(ctx context.Context, id string) (bool, error)
}

// Refresher asks the notes list to re-query.
type Refresher interface {
	RefreshNotes()
}

// ErrEmptyDocument is returned when importing Markdown with neither title
// nor body.
var ErrEmptyDocument = errors.New("document has no title or body")

// Service coordinates storage, vault and export operations.
type Service struct {
	store     Store
	vault     Vault
	dir       *export.Dir
	editor    EditorHook
	refresher Refresher
	log       *slog.Logger
}

// Option configures a Service.
type Option func(*Service)

// WithEditor routes deletions of the open note to the editor.
func WithEditor(e EditorHook) Option {
	return func(s *Service) { s.editor = e }
}

// WithRefresher notifies the notes list after imports and deletions.
func WithRefresher(r Refresher) Option {
	return func(s *Service) { s.refresher = r }
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(s *Service) { s.log = l }
}

// NewService creates a new notes service.
func NewService(st Store, v Vault, dir *export.Dir, opts ...Option) *Service {
	s := &Service{store: st, vault: v, dir: dir, log: slog.Default()}
	for _, o := range opts {
		o(s)
	}
	return s
}

// List returns paginated note summaries with an optional tag filter.
func (s *Service) List(ctx context.Context, limit, offset int, tag string) ([]models.NoteSummary, int, error) {
	return s.store.List(ctx, limit, offset, tag)
}

// Search runs a full-text search.
func (s *Service) Search(ctx context.Context, query string, limit int) ([]store.SearchResult, error) {
	return s.store.Search(ctx, query, limit)
}

// Open returns a note ready for editing. Locked notes are decrypted and
// need an unlocked vault.
func (s *Service) Open(ctx context.Context, id string) (models.Note, error) {
	n, err := s.store.NoteByID(ctx, id)
	if err != nil {
		return models.Note{}, err
	}
	if !n.Locked {
		return *n, nil
	}
	return s.vault.Open(ctx, id)
}

// Delete removes a note. If it is open in the editor, the editor is cleared
// without saving before the row goes, so a pending autosave cannot write the
// note back.
func (s *Service) Delete(ctx context.Context, id string) error {
	if s.editor != nil {
		cleared, err := s.editor.ExternalClear(ctx, id)
		if err != nil {
			s.log.Warn("editor clear before delete failed", slog.String("note_id", id), slog.String("error", err.Error()))
		} else if cleared {
			s.log.Info("cleared editor for deleted note", slog.String("note_id", id))
		}
	}
	if err := s.store.Delete(ctx, id); err != nil {
		return err
	}
	s.refresh()
	return nil
}

// Lock moves a note into the vault.
func (s *Service) Lock(ctx context.Context, id string) error {
	if err := s.vault.Lock(ctx, id); err != nil {
		return err
	}
	s.refresh()
	return nil
}

// Unlock unlocks the vault.
func (s *Service) Unlock(ctx context.Context, password string) error {
	return s.vault.Unlock(ctx, password)
}

// Export writes a note to the export directory and returns the path
// relative to it.
func (s *Service) Export(ctx context.Context, id string) (string, error) {
	n, err := s.Open(ctx, id)
	if err != nil {
		return "", err
	}
	data, err := export.Render(n)
	if err != nil {
		return "", err
	}
	name := export.FileName(n)
	if err := s.dir.Write(name, data); err != nil {
		return "", err
	}
	s.log.Info("note exported", slog.String("note_id", id), slog.String("path", name))
	return name, nil
}

// Import creates a note from Markdown and returns its id. Frontmatter
// color and notebook/topic are applied after the note exists.
func (s *Service) Import(ctx context.Context, data []byte) (string, error) {
	doc, err := export.Parse(data)
	if err != nil {
		return "", err
	}
	if doc.Title == "" && strings.TrimSpace(doc.Body) == "" {
		return "", fmt.Errorf("notes: import: %w", ErrEmptyDocument)
	}
	id, err := s.store.AddOrUpdate(ctx, models.NoteInput{
		Title:   doc.Title,
		Content: models.Content{Text: doc.Body},
	})
	if err != nil {
		return "", err
	}
	for _, tag := range doc.Tags {
		if err := s.store.Tag(ctx, id, tag); err != nil {
			return id, err
		}
	}
	fm := doc.Frontmatter
	if fm.Color != "" {
		if err := s.store.Color(ctx, id, fm.Color); err != nil {
			return id, err
		}
	}
	if fm.Notebook != "" && fm.Topic != "" {
		if err := s.store.Move(ctx, models.Destination{Notebook: fm.Notebook, Topic: fm.Topic}, id); err != nil {
			return id, err
		}
	}
	s.refresh()
	return id, nil
}

// ImportDir imports every Markdown file of the export directory and reports
// how many notes were created.
func (s *Service) ImportDir(ctx context.Context) (int, error) {
	paths, err := s.dir.List()
	if err != nil {
		return 0, err
	}
	n := 0
	for _, p := range paths {
		data, err := s.dir.Read(p)
		if err != nil {
			return n, err
		}
		if _, err := s.Import(ctx, data); err != nil {
			if errors.Is(err, ErrEmptyDocument) {
				s.log.Warn("skipping empty document", slog.String("path", p))
				continue
			}
			return n, fmt.Errorf("notes: import %s: %w", p, err)
		}
		n++
	}
	return n, nil
}

func (s *Service) refresh() {
	if s.refresher != nil {
		s.refresher.RefreshNotes()
	}
}
