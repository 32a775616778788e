// Package models defines the domain types for Quire.
package models

import (
	"encoding/json"
	"time"
)

// Note is a persisted note as the store sees it.
type Note struct {
	ID          string    `json:"id"`
	Title       string    `json:"title"`
	Content     Content   `json:"content"`
	Locked      bool      `json:"locked"`
	Color       string    `json:"color,omitempty"`
	Notebook    string    `json:"notebook,omitempty"`
	Topic       string    `json:"topic,omitempty"`
	Tags        []string  `json:"tags"`
	DateCreated time.Time `json:"date_created"`
	DateEdited  time.Time `json:"date_edited"`
}

// Content is the editor body: plain text plus the view's structured document.
// Delta is opaque to everything but the content view.
type Content struct {
	Text  string          `json:"text"`
	Delta json.RawMessage `json:"delta,omitempty"`
}

// EmptyDelta is the structured body written for notes saved without a body.
var EmptyDelta = json.RawMessage(`{"ops":[]}`)

// Clone returns a deep copy of c.
func (c Content) Clone() Content {
	out := Content{Text: c.Text}
	if c.Delta != nil {
		out.Delta = append(json.RawMessage(nil), c.Delta...)
	}
	return out
}

// NoteInput is the payload of a write. An empty ID asks the store to assign one.
type NoteInput struct {
	ID      string  `json:"id,omitempty"`
	Title   string  `json:"title"`
	Content Content `json:"content"`
}

// Destination is a notebook/topic pair a note can be moved into.
type Destination struct {
	Notebook string `json:"notebook"`
	Topic    string `json:"topic"`
}

// NoteSummary is the lightweight row returned by list operations.
type NoteSummary struct {
	ID         string    `json:"id"`
	Title      string    `json:"title"`
	Headline   string    `json:"headline"`
	Locked     bool      `json:"locked"`
	Color      string    `json:"color,omitempty"`
	Tags       []string  `json:"tags"`
	DateEdited time.Time `json:"date_edited"`
}
