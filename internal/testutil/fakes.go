package testutil

import (
	"context"
	"encoding/json"
	"fmt"
	"slices"
	"sync"

	"github.com/starford/quire/internal/apperr"
	"github.com/starford/quire/internal/bridge"
	"github.com/starford/quire/internal/editor"
	"github.com/starford/quire/internal/models"
)

// MemStore is an in-memory editor.Store that records every call.
type MemStore struct {
	mu      sync.Mutex
	notes   map[string]*models.Note
	nextID  int
	hidden  map[string]int
	lookups map[string]int
	saveErr error

	Writes []models.NoteInput
	Moves  []string
	Tags   []string
	Colors []string
}

// NewMemStore returns an empty store.
func NewMemStore() *MemStore {
	return &MemStore{
		notes:   make(map[string]*models.Note),
		hidden:  make(map[string]int),
		lookups: make(map[string]int),
	}
}

// Put inserts or replaces a note directly.
func (s *MemStore) Put(n models.Note) {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := n
	cp.Content = n.Content.Clone()
	s.notes[n.ID] = &cp
}

// SetLocked flips the lock flag of a stored note.
func (s *MemStore) SetLocked(id string, locked bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if n, ok := s.notes[id]; ok {
		n.Locked = locked
	}
}

// FailSaves makes AddOrUpdate return err until called again with nil.
func (s *MemStore) FailSaves(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.saveErr = err
}

// HideNewNotes makes the next created note invisible to the first n lookups.
func (s *MemStore) HideNewNotes(n int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.hidden[""] = n
}

func (s *MemStore) NoteByID(_ context.Context, id string) (*models.Note, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.lookups[id]++
	if s.hidden[id] > 0 {
		s.hidden[id]--
		return nil, apperr.ErrNotFound
	}
	n, ok := s.notes[id]
	if !ok {
		return nil, apperr.ErrNotFound
	}
	cp := *n
	cp.Content = n.Content.Clone()
	return &cp, nil
}

func (s *MemStore) AddOrUpdate(_ context.Context, in models.NoteInput) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.saveErr != nil {
		return "", s.saveErr
	}
	id := in.ID
	if id == "" {
		s.nextID++
		id = fmt.Sprintf("note-%d", s.nextID)
		if n, ok := s.hidden[""]; ok {
			s.hidden[id] = n
			delete(s.hidden, "")
		}
	}
	if n, ok := s.notes[id]; ok && n.Locked {
		return "", apperr.ErrLocked
	}
	s.Writes = append(s.Writes, in)
	s.notes[id] = &models.Note{ID: id, Title: in.Title, Content: in.Content.Clone()}
	return id, nil
}

func (s *MemStore) Move(_ context.Context, dest models.Destination, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.notes[id]; !ok {
		return apperr.ErrNotFound
	}
	s.Moves = append(s.Moves, id+"->"+dest.Notebook+"/"+dest.Topic)
	return nil
}

func (s *MemStore) Tag(_ context.Context, id, tag string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.notes[id]; !ok {
		return apperr.ErrNotFound
	}
	s.Tags = append(s.Tags, id+":"+tag)
	return nil
}

func (s *MemStore) Color(_ context.Context, id, color string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.notes[id]; !ok {
		return apperr.ErrNotFound
	}
	s.Colors = append(s.Colors, id+":"+color)
	return nil
}

func (s *MemStore) Delta(_ context.Context, id string) (json.RawMessage, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	n, ok := s.notes[id]
	if !ok {
		return nil, apperr.ErrNotFound
	}
	return slices.Clone(n.Content.Delta), nil
}

// Lookups returns how often NoteByID was called for id.
func (s *MemStore) Lookups(id string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lookups[id]
}

// WriteCount returns the number of plain-store writes.
func (s *MemStore) WriteCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.Writes)
}

// LastWrite returns the latest plain-store write.
func (s *MemStore) LastWrite() (models.NoteInput, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.Writes) == 0 {
		return models.NoteInput{}, false
	}
	return s.Writes[len(s.Writes)-1], true
}

// Applied returns copies of the recorded moves, tags and colors.
func (s *MemStore) Applied() (moves, tags, colors []string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return slices.Clone(s.Moves), slices.Clone(s.Tags), slices.Clone(s.Colors)
}

// MemVault records vault writes.
type MemVault struct {
	mu    sync.Mutex
	err   error
	Saves []models.NoteInput
}

// Fail makes Save return err until called again with nil.
func (v *MemVault) Fail(err error) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.err = err
}

func (v *MemVault) Save(_ context.Context, in models.NoteInput) error {
	v.mu.Lock()
	defer v.mu.Unlock()
	if v.err != nil {
		return v.err
	}
	v.Saves = append(v.Saves, in)
	return nil
}

// SaveCount returns the number of vault writes.
func (v *MemVault) SaveCount() int {
	v.mu.Lock()
	defer v.mu.Unlock()
	return len(v.Saves)
}

// LastSave returns the latest vault write.
func (v *MemVault) LastSave() (models.NoteInput, bool) {
	v.mu.Lock()
	defer v.mu.Unlock()
	if len(v.Saves) == 0 {
		return models.NoteInput{}, false
	}
	return v.Saves[len(v.Saves)-1], true
}

// Transport records commands sent to the view.
type Transport struct {
	mu   sync.Mutex
	cmds []bridge.Command
}

func (t *Transport) Send(ctx context.Context, cmd bridge.Command) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	t.cmds = append(t.cmds, cmd)
	return nil
}

// Commands returns the recorded commands.
func (t *Transport) Commands() []bridge.Command {
	t.mu.Lock()
	defer t.mu.Unlock()
	return slices.Clone(t.cmds)
}

// Types returns the recorded command types in order.
func (t *Transport) Types() []bridge.CommandType {
	t.mu.Lock()
	defer t.mu.Unlock()
	out := make([]bridge.CommandType, len(t.cmds))
	for i, c := range t.cmds {
		out[i] = c.CommandType()
	}
	return out
}

// Reset drops the recorded commands.
func (t *Transport) Reset() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.cmds = nil
}

// Toast is one recorded notification.
type Toast struct {
	Kind    editor.ToastKind
	Message string
}

// Host records notifications, navigation signals and list refreshes.
type Host struct {
	mu        sync.Mutex
	toasts    []Toast
	signals   []string
	refreshes int
}

func (h *Host) ShowToast(kind editor.ToastKind, message string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.toasts = append(h.toasts, Toast{Kind: kind, Message: message})
}

func (h *Host) RefreshNotes() {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.refreshes++
}

func (h *Host) SetMenuGesture(enabled bool) { h.signal(fmt.Sprintf("gesture:%t", enabled)) }
func (h *Host) OpenMenu()                   { h.signal("menu") }
func (h *Host) ExitEditor()                 { h.signal("exit") }
func (h *Host) Fullscreen(on bool)          { h.signal(fmt.Sprintf("fullscreen:%t", on)) }
func (h *Host) PromptExitFullscreen()       { h.signal("prompt") }
func (h *Host) CurrentNote(id string)       { h.signal("current:" + id) }

func (h *Host) signal(s string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.signals = append(h.signals, s)
}

// Toasts returns the recorded notifications.
func (h *Host) Toasts() []Toast {
	h.mu.Lock()
	defer h.mu.Unlock()
	return slices.Clone(h.toasts)
}

// Signals returns the recorded navigation signals.
func (h *Host) Signals() []string {
	h.mu.Lock()
	defer h.mu.Unlock()
	return slices.Clone(h.signals)
}

// Refreshes returns how often the notes list was asked to refresh.
func (h *Host) Refreshes() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.refreshes
}
