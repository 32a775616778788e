package api

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"

	"github.com/starford/quire/internal/editor"
	"github.com/starford/quire/internal/export"
	"github.com/starford/quire/internal/models"
	"github.com/starford/quire/internal/notes"
	"github.com/starford/quire/internal/store"
	"github.com/starford/quire/internal/testutil"
	"github.com/starford/quire/internal/vault"
)

type testEnv struct {
	router http.Handler
	db     *store.DB
	vault  *vault.Vault
	ctl    *editor.Controller
	view   *testutil.Transport
	host   *testutil.Host
}

// newEnv wires a real store, vault, notes service and editor controller
// behind the router. A non-empty token enables auth.
func newEnv(t *testing.T, token string) *testEnv {
	t.Helper()
	return newEnvWithStreams(t, token, Streams{})
}

func newEnvWithStreams(t *testing.T, token string, streams Streams) *testEnv {
	t.Helper()
	dir := t.TempDir()
	db, err := store.Open(filepath.Join(dir, "quire.db"))
	if err != nil {
		t.Fatalf("store.Open: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	exp, err := export.NewDir(filepath.Join(dir, "export"))
	if err != nil {
		t.Fatalf("export.NewDir: %v", err)
	}
	v := vault.New(db, vault.WithKDF(1, 1024))

	env := &testEnv{db: db, vault: v, view: &testutil.Transport{}, host: &testutil.Host{}}
	env.ctl = editor.New(editor.DefaultConfig(), editor.Deps{
		Store:     db,
		Vault:     v,
		Transport: env.view,
		Notifier:  env.host,
		Navigator: env.host,
		Refresher: env.host,
		Editing:   editor.NewEditing(),
		Clock:     clockwork.NewFakeClock(),
		Logger:    testutil.Logger(),
	})
	t.Cleanup(env.ctl.Close)

	svc := notes.NewService(db, v, exp, notes.WithEditor(env.ctl), notes.WithRefresher(env.host))
	env.router = NewRouter(env.ctl, svc, streams, token != "", token)
	return env
}

func (e *testEnv) do(t *testing.T, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	w := httptest.NewRecorder()
	e.router.ServeHTTP(w, req)
	return w
}

func (e *testEnv) state(t *testing.T) editor.Snapshot {
	t.Helper()
	w := e.do(t, http.MethodGet, "/api/editor/state", "")
	if w.Code != http.StatusOK {
		t.Fatalf("state = %d, body = %s", w.Code, w.Body.String())
	}
	var snap struct {
		State string `json:"state"`
		ID    string `json:"id"`
		Title string `json:"title"`
		Dirty bool   `json:"dirty"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &snap); err != nil {
		t.Fatalf("decode state: %v", err)
	}
	out := editor.Snapshot{ID: snap.ID, Title: snap.Title, Dirty: snap.Dirty}
	switch snap.State {
	case "editing":
		out.State = editor.StateEditing
	case "loading":
		out.State = editor.StateLoading
	default:
		out.State = editor.StateIdle
	}
	return out
}

func (e *testEnv) put(t *testing.T, title, body string) string {
	t.Helper()
	id, err := e.db.AddOrUpdate(context.Background(), models.NoteInput{
		Title:   title,
		Content: models.Content{Text: body},
	})
	if err != nil {
		t.Fatalf("AddOrUpdate: %v", err)
	}
	return id
}

func TestNewNote_TypeAndExit(t *testing.T) {
	env := newEnv(t, "")

	w := env.do(t, http.MethodPost, "/api/editor/load", `{"type":"new"}`)
	if w.Code != http.StatusOK {
		t.Fatalf("new = %d, body = %s", w.Code, w.Body.String())
	}
	if s := env.state(t); s.State != editor.StateEditing || s.ID != "" {
		t.Fatalf("state after new = %+v", s)
	}

	for _, msg := range []string{`{"type":"title","value":"Groceries"}`, `{"type":"content","text":"milk, eggs"}`} {
		if w := env.do(t, http.MethodPost, "/bridge/messages", msg); w.Code != http.StatusNoContent {
			t.Fatalf("message %s = %d, body = %s", msg, w.Code, w.Body.String())
		}
	}
	if s := env.state(t); !s.Dirty {
		t.Error("session should be dirty before exit")
	}

	if w := env.do(t, http.MethodPost, "/api/editor/exit", ""); w.Code != http.StatusNoContent {
		t.Fatalf("exit = %d, body = %s", w.Code, w.Body.String())
	}

	w = env.do(t, http.MethodGet, "/api/notes", "")
	var list NoteListResponse
	_ = json.Unmarshal(w.Body.Bytes(), &list)
	if list.Total != 1 || list.Notes[0].Title != "Groceries" {
		t.Fatalf("list = %+v", list)
	}
	if list.Notes[0].Headline != "milk, eggs" {
		t.Errorf("headline = %q", list.Notes[0].Headline)
	}
}

func TestLoadNote(t *testing.T) {
	env := newEnv(t, "")
	id := env.put(t, "Hello", "world")

	w := env.do(t, http.MethodPost, "/api/editor/load", `{"id":"`+id+`"}`)
	if w.Code != http.StatusOK {
		t.Fatalf("load = %d, body = %s", w.Code, w.Body.String())
	}
	s := env.state(t)
	if s.ID != id || s.Title != "Hello" {
		t.Errorf("state = %+v", s)
	}
}

func TestLoadNote_Errors(t *testing.T) {
	env := newEnv(t, "")
	tests := []struct {
		name string
		body string
		want int
	}{
		{"missing id", `{}`, http.StatusBadRequest},
		{"unknown type", `{"type":"old"}`, http.StatusBadRequest},
		{"bad json", `{`, http.StatusBadRequest},
		{"unknown note", `{"id":"ghost"}`, http.StatusNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if w := env.do(t, http.MethodPost, "/api/editor/load", tt.body); w.Code != tt.want {
				t.Errorf("status = %d, want %d, body = %s", w.Code, tt.want, w.Body.String())
			}
		})
	}
}

func TestBridgeMessage_Malformed(t *testing.T) {
	env := newEnv(t, "")
	env.do(t, http.MethodPost, "/api/editor/load", `{"type":"new"}`)
	before := len(env.view.Types())
	if w := env.do(t, http.MethodPost, "/bridge/messages", "not json"); w.Code != http.StatusNoContent {
		t.Errorf("malformed = %d, want 204", w.Code)
	}
	if got := len(env.view.Types()); got != before {
		t.Errorf("malformed payload produced %d commands", got-before)
	}
	if w := env.do(t, http.MethodPost, "/bridge/messages", ""); w.Code != http.StatusNoContent {
		t.Errorf("empty = %d, want 204", w.Code)
	}
}

func TestBridgeMessage_Ready(t *testing.T) {
	env := newEnv(t, "")
	if w := env.do(t, http.MethodPost, "/bridge/messages", "loaded"); w.Code != http.StatusNoContent {
		t.Fatalf("ready = %d", w.Code)
	}
	types := env.view.Types()
	if len(types) == 0 || types[0] != "nomenu" {
		t.Errorf("commands after ready = %v", types)
	}
}

func TestQueueAction(t *testing.T) {
	env := newEnv(t, "")
	env.do(t, http.MethodPost, "/api/editor/load", `{"type":"new"}`)

	if w := env.do(t, http.MethodPost, "/api/editor/action", `{"kind":"tag"}`); w.Code != http.StatusBadRequest {
		t.Errorf("invalid action = %d, want 400", w.Code)
	}
	if w := env.do(t, http.MethodPost, "/api/editor/action", `{"kind":"tag","target":"work"}`); w.Code != http.StatusAccepted {
		t.Fatalf("action = %d, body = %s", w.Code, w.Body.String())
	}

	env.do(t, http.MethodPost, "/bridge/messages", `{"type":"title","value":"Standup"}`)
	env.do(t, http.MethodPost, "/api/editor/exit", "")

	w := env.do(t, http.MethodGet, "/api/notes?tag=work", "")
	var list NoteListResponse
	_ = json.Unmarshal(w.Body.Bytes(), &list)
	if list.Total != 1 {
		t.Errorf("tagged notes = %d, want 1", list.Total)
	}
}

func TestBackPress(t *testing.T) {
	env := newEnv(t, "")
	env.do(t, http.MethodPost, "/api/editor/load", `{"type":"new"}`)

	w := env.do(t, http.MethodPost, "/api/editor/back", "")
	var resp struct {
		Result string `json:"result"`
	}
	_ = json.Unmarshal(w.Body.Bytes(), &resp)
	if resp.Result != "prompted" {
		t.Fatalf("first back = %q", resp.Result)
	}
	w = env.do(t, http.MethodPost, "/api/editor/back", "")
	_ = json.Unmarshal(w.Body.Bytes(), &resp)
	if resp.Result != "exited" {
		t.Errorf("second back = %q", resp.Result)
	}
}

func TestFullscreen(t *testing.T) {
	env := newEnv(t, "")
	if w := env.do(t, http.MethodPost, "/api/editor/fullscreen", `{"on":true}`); w.Code != http.StatusNoContent {
		t.Fatalf("fullscreen = %d", w.Code)
	}
	if got := env.host.Signals(); len(got) == 0 || got[len(got)-1] != "fullscreen:true" {
		t.Errorf("signals = %v", got)
	}
}

func TestDeleteOpenNote_ClearsEditor(t *testing.T) {
	env := newEnv(t, "")
	id := env.put(t, "Doomed", "")
	env.do(t, http.MethodPost, "/api/editor/load", `{"id":"`+id+`"}`)

	if w := env.do(t, http.MethodDelete, "/api/notes/"+id, ""); w.Code != http.StatusNoContent {
		t.Fatalf("delete = %d, body = %s", w.Code, w.Body.String())
	}
	if s := env.state(t); s.State != editor.StateIdle || s.ID != "" {
		t.Errorf("state after delete = %+v", s)
	}
	if w := env.do(t, http.MethodGet, "/api/notes/"+id, ""); w.Code != http.StatusNotFound {
		t.Errorf("get deleted = %d, want 404", w.Code)
	}
}

func TestVault_LockAndOpen(t *testing.T) {
	env := newEnv(t, "")
	id := env.put(t, "Secret", "pin 1234")

	if w := env.do(t, http.MethodPost, "/api/notes/"+id+"/lock", ""); w.Code != http.StatusLocked {
		t.Fatalf("lock without vault = %d, want 423", w.Code)
	}
	if w := env.do(t, http.MethodPost, "/api/vault/unlock", `{"password":""}`); w.Code != http.StatusBadRequest {
		t.Errorf("empty password = %d, want 400", w.Code)
	}
	if w := env.do(t, http.MethodPost, "/api/vault/unlock", `{"password":"hunter2"}`); w.Code != http.StatusNoContent {
		t.Fatalf("unlock = %d, body = %s", w.Code, w.Body.String())
	}
	if w := env.do(t, http.MethodPost, "/api/notes/"+id+"/lock", ""); w.Code != http.StatusNoContent {
		t.Fatalf("lock = %d, body = %s", w.Code, w.Body.String())
	}

	w := env.do(t, http.MethodGet, "/api/notes/"+id, "")
	var note models.Note
	_ = json.Unmarshal(w.Body.Bytes(), &note)
	if w.Code != http.StatusOK || note.Content.Text != "pin 1234" {
		t.Fatalf("get locked = %d, note = %+v", w.Code, note)
	}

	env.vault.Forget()
	if w := env.do(t, http.MethodGet, "/api/notes/"+id, ""); w.Code != http.StatusLocked {
		t.Errorf("get with locked vault = %d, want 423", w.Code)
	}
	if w := env.do(t, http.MethodPost, "/api/vault/unlock", `{"password":"nope"}`); w.Code != http.StatusForbidden {
		t.Errorf("wrong password = %d, want 403", w.Code)
	}
}

func TestImportExport(t *testing.T) {
	env := newEnv(t, "")
	md := "---\ntitle: Trip\ntags: [travel]\n---\nPack the tent.\n"
	w := env.do(t, http.MethodPost, "/api/notes/import", md)
	if w.Code != http.StatusCreated {
		t.Fatalf("import = %d, body = %s", w.Code, w.Body.String())
	}
	var imp ImportResponse
	_ = json.Unmarshal(w.Body.Bytes(), &imp)
	if imp.ID == "" {
		t.Fatal("import returned no id")
	}
	if env.host.Refreshes() == 0 {
		t.Error("import should refresh the notes list")
	}

	w = env.do(t, http.MethodPost, "/api/notes/"+imp.ID+"/export", "")
	var exp ExportResponse
	_ = json.Unmarshal(w.Body.Bytes(), &exp)
	if w.Code != http.StatusOK || !strings.HasSuffix(exp.Path, ".md") {
		t.Errorf("export = %d, %+v", w.Code, exp)
	}

	if w := env.do(t, http.MethodPost, "/api/notes/import", "   \n"); w.Code != http.StatusBadRequest {
		t.Errorf("empty import = %d, want 400", w.Code)
	}
}

func TestSearch(t *testing.T) {
	env := newEnv(t, "")
	env.put(t, "Recipes", "sourdough starter")
	env.put(t, "Chores", "laundry")

	w := env.do(t, http.MethodGet, "/api/notes?q=sourdough", "")
	if w.Code != http.StatusOK {
		t.Fatalf("search = %d, body = %s", w.Code, w.Body.String())
	}
	var resp SearchResponse
	_ = json.Unmarshal(w.Body.Bytes(), &resp)
	if len(resp.Results) != 1 || resp.Results[0].Title != "Recipes" {
		t.Errorf("results = %+v", resp.Results)
	}
}

func TestEditorClosed(t *testing.T) {
	env := newEnv(t, "")
	env.ctl.Close()
	if w := env.do(t, http.MethodGet, "/api/editor/state", ""); w.Code != http.StatusServiceUnavailable {
		t.Errorf("state after close = %d, want 503", w.Code)
	}
}

func TestAuthMiddleware_ValidToken(t *testing.T) {
	env := newEnv(t, "secret123")

	req := httptest.NewRequest(http.MethodGet, "/api/notes", nil)
	req.Header.Set("Authorization", "Bearer secret123")
	w := httptest.NewRecorder()
	env.router.ServeHTTP(w, req)
	if w.Code != http.StatusOK {
		t.Errorf("authed list = %d, want 200", w.Code)
	}
}

func TestAuthMiddleware_MissingToken(t *testing.T) {
	env := newEnv(t, "secret123")
	if w := env.do(t, http.MethodGet, "/api/notes", ""); w.Code != http.StatusUnauthorized {
		t.Errorf("unauthed = %d, want 401", w.Code)
	}
}

func TestAuthMiddleware_WrongToken(t *testing.T) {
	env := newEnv(t, "secret123")

	req := httptest.NewRequest(http.MethodPost, "/bridge/messages", bytes.NewReader([]byte("loaded")))
	req.Header.Set("Authorization", "Bearer wrong")
	w := httptest.NewRecorder()
	env.router.ServeHTTP(w, req)
	if w.Code != http.StatusUnauthorized {
		t.Errorf("wrong token = %d, want 401", w.Code)
	}
}

// SSE endpoint auth tests.

func blockingStream() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/event-stream")
		w.WriteHeader(http.StatusOK)
		if f, ok := w.(http.Flusher); ok {
			f.Flush()
		}
		<-r.Context().Done()
	})
}

func TestSSEStreams_AuthProtected(t *testing.T) {
	env := newEnvWithStreams(t, "secret", Streams{Bridge: blockingStream(), Events: blockingStream()})
	for _, path := range []string{"/bridge/events", "/api/events"} {
		if w := env.do(t, http.MethodGet, path, ""); w.Code != http.StatusUnauthorized {
			t.Errorf("%s no auth = %d, want 401", path, w.Code)
		}
	}
}

func TestSSEStreams_ValidToken(t *testing.T) {
	env := newEnvWithStreams(t, "tok", Streams{Bridge: blockingStream(), Events: blockingStream()})
	for _, path := range []string{"/bridge/events", "/api/events"} {
		ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
		req := httptest.NewRequest(http.MethodGet, path, nil).WithContext(ctx)
		req.Header.Set("Authorization", "Bearer tok")
		w := httptest.NewRecorder()
		env.router.ServeHTTP(w, req)
		cancel()
		if w.Code != http.StatusOK {
			t.Errorf("%s with token = %d, want 200", path, w.Code)
		}
	}
}
