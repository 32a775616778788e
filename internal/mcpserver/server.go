// Package mcpserver provides an MCP (Model Context Protocol) server that
// lets an agent browse notes and drive the editor over stdio.
package mcpserver

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/starford/quire/internal/bridge"
	"github.com/starford/quire/internal/editor"
	"github.com/starford/quire/internal/models"
	"github.com/starford/quire/internal/store"
)

const formatURI = "quire://note-format"

// Editor is the part of the editor controller the tools drive.
type Editor interface {
	HandleMessage(ctx context.Context, raw string) error
	LoadNote(ctx context.Context, note models.Note) error
	NewNote(ctx context.Context) error
	Exit(ctx context.Context) error
	QueueAction(ctx context.Context, a models.DeferredAction) error
	State(ctx context.Context) (editor.Snapshot, error)
}

// Notes is the read side of the notes service plus import.
type Notes interface {
	List(ctx context.Context, limit, offset int, tag string) ([]models.NoteSummary, int, error)
	Search(ctx context.Context, query string, limit int) ([]store.SearchResult, error)
	Open(ctx context.Context, id string) (models.Note, error)
	Import(ctx context.Context, data []byte) (string, error)
}

// Server wraps the MCP server with Quire tools.
type Server struct {
	mcp    *server.MCPServer
	editor Editor
	notes  Notes
}

// New creates a new MCP server with all Quire tools registered.
func New(ed Editor, n Notes) *Server {
	s := &Server{editor: ed, notes: n}

	s.mcp = server.NewMCPServer(
		"Quire",
		"1.0.0",
		server.WithToolCapabilities(false),
		server.WithResourceCapabilities(false, false),
	)

	s.mcp.AddTool(mcp.NewTool("list_notes",
		mcp.WithDescription("List notes, most recently edited first. With query, runs a full-text search instead."),
		mcp.WithString("query", mcp.Description("Optional search query")),
		mcp.WithString("tag", mcp.Description("Optional tag filter")),
		mcp.WithNumber("limit", mcp.Description("Page size (default 50)")),
		mcp.WithNumber("offset", mcp.Description("Page offset")),
	), s.listNotes)

	s.mcp.AddTool(mcp.NewTool("read_note",
		mcp.WithDescription("Read a note by id. Locked notes need an unlocked vault."),
		mcp.WithString("id", mcp.Required(), mcp.Description("Note id")),
	), s.readNote)

	s.mcp.AddTool(mcp.NewTool("open_note",
		mcp.WithDescription("Open a note in the editor. Unsaved edits of the current note are saved first."),
		mcp.WithString("id", mcp.Required(), mcp.Description("Note id")),
	), s.openNote)

	s.mcp.AddTool(mcp.NewTool("new_note",
		mcp.WithDescription("Start a new, empty note in the editor. It gets an id on its first save."),
	), s.newNote)

	s.mcp.AddTool(mcp.NewTool("type_title",
		mcp.WithDescription("Replace the title of the note in the editor. Saved after the autosave delay."),
		mcp.WithString("title", mcp.Required(), mcp.Description("Full title")),
	), s.typeTitle)

	s.mcp.AddTool(mcp.NewTool("type_body",
		mcp.WithDescription("Replace the body text of the note in the editor. Saved after the autosave delay."),
		mcp.WithString("text", mcp.Required(), mcp.Description("Full body text")),
	), s.typeBody)

	s.mcp.AddTool(mcp.NewTool("close_note",
		mcp.WithDescription("Save the note in the editor and close it."),
	), s.closeNote)

	s.mcp.AddTool(mcp.NewTool("editor_state",
		mcp.WithDescription("Describe the editor: lifecycle state, note id, title, unsaved changes."),
	), s.editorState)

	s.mcp.AddTool(mcp.NewTool("queue_action",
		mcp.WithDescription("Move, tag or color the note in the editor. For a note that was never saved the action runs after its first save."),
		mcp.WithString("kind", mcp.Required(), mcp.Enum("topic", "tag", "color"), mcp.Description("Action kind")),
		mcp.WithString("target", mcp.Required(), mcp.Description("Topic, tag or color id")),
		mcp.WithString("container", mcp.Description("Notebook of the topic (kind=topic only)")),
	), s.queueAction)

	s.mcp.AddTool(mcp.NewTool("import_note",
		mcp.WithDescription("Create a note from Markdown. Read the format via get_note_contract or the "+formatURI+" resource first."),
		mcp.WithString("content", mcp.Required(), mcp.Description("Markdown document")),
	), s.importNote)

	s.mcp.AddTool(mcp.NewTool("get_note_contract",
		mcp.WithDescription("Returns the Markdown format accepted by import_note."),
	), s.getNoteContract)

	s.mcp.AddResource(
		mcp.NewResource(formatURI, "Note Import Format",
			mcp.WithResourceDescription("Markdown format accepted by import_note."),
			mcp.WithMIMEType("text/markdown"),
		),
		s.readNoteFormatResource,
	)

	return s
}

// ServeStdio starts the MCP server on stdin/stdout.
func (s *Server) ServeStdio() error {
	return server.ServeStdio(s.mcp)
}

// MCPServer returns the underlying server for testing.
func (s *Server) MCPServer() *server.MCPServer {
	return s.mcp
}

func jsonResult(v any) (*mcp.CallToolResult, error) {
	out, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return mcp.NewToolResultText(string(out)), nil
}

func (s *Server) listNotes(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	limit := req.GetInt("limit", 0)
	if query := req.GetString("query", ""); query != "" {
		results, err := s.notes.Search(ctx, query, limit)
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
		return jsonResult(results)
	}
	items, total, err := s.notes.List(ctx, limit, req.GetInt("offset", 0), req.GetString("tag", ""))
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return jsonResult(map[string]any{"notes": items, "total": total})
}

func (s *Server) readNote(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	id, err := req.RequireString("id")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	note, err := s.notes.Open(ctx, id)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("read %s: %v", id, err)), nil
	}
	return jsonResult(note)
}

func (s *Server) openNote(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	id, err := req.RequireString("id")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	note, err := s.notes.Open(ctx, id)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("open %s: %v", id, err)), nil
	}
	if err := s.editor.LoadNote(ctx, note); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return mcp.NewToolResultText(fmt.Sprintf("opened: %s", id)), nil
}

func (s *Server) newNote(ctx context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	if err := s.editor.NewNote(ctx); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return mcp.NewToolResultText("new note started"), nil
}

func (s *Server) typeTitle(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	title, err := req.RequireString("title")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return s.deliver(ctx, bridge.TitleUpdate{Value: title})
}

func (s *Server) typeBody(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	text, err := req.RequireString("text")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return s.deliver(ctx, bridge.ContentUpdate{Text: text})
}

// deliver feeds msg through the same inbound path the view uses.
func (s *Server) deliver(ctx context.Context, msg bridge.Message) (*mcp.CallToolResult, error) {
	raw, err := bridge.EncodeMessage(msg)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	if err := s.editor.HandleMessage(ctx, raw); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return mcp.NewToolResultText("ok"), nil
}

func (s *Server) closeNote(ctx context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	if err := s.editor.Exit(ctx); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return mcp.NewToolResultText("closed"), nil
}

func (s *Server) editorState(ctx context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	snap, err := s.editor.State(ctx)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return jsonResult(snap)
}

func (s *Server) queueAction(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	kind, err := req.RequireString("kind")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	target, err := req.RequireString("target")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	a := models.DeferredAction{
		Kind:      models.ActionKind(kind),
		Target:    target,
		Container: req.GetString("container", ""),
	}
	if err := s.editor.QueueAction(ctx, a); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return mcp.NewToolResultText(fmt.Sprintf("queued %s %s", kind, target)), nil
}

func (s *Server) importNote(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	content, err := req.RequireString("content")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	id, err := s.notes.Import(ctx, []byte(content))
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return mcp.NewToolResultText(fmt.Sprintf("imported: %s", id)), nil
}

func (s *Server) getNoteContract(_ context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return mcp.NewToolResultText(NoteFormatContract), nil
}

func (s *Server) readNoteFormatResource(_ context.Context, _ mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
	return []mcp.ResourceContents{
		mcp.TextResourceContents{
			URI:      formatURI,
			MIMEType: "text/markdown",
			Text:     NoteFormatContract,
		},
	}, nil
}
