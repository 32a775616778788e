package host

import (
	"strings"
	"testing"
	"time"

	"github.com/starford/quire/internal/editor"
	"github.com/starford/quire/internal/sse"
)

func next(t *testing.T, ch chan []byte) string {
	t.Helper()
	select {
	case msg := <-ch:
		return string(msg)
	case <-time.After(time.Second):
		t.Fatal("timeout waiting for event")
	}
	return ""
}

func TestPublisherEvents(t *testing.T) {
	b := sse.NewBroker()
	defer b.Close()
	ch := b.Subscribe()
	defer b.Unsubscribe(ch)

	p := NewPublisher(b, nil)
	tests := []struct {
		name  string
		emit  func()
		event string
		data  string
	}{
		{"toast", func() { p.ShowToast(editor.ToastError, "Could not save note") }, EventToast, `{"kind":"error","message":"Could not save note"}`},
		{"refresh", p.RefreshNotes, EventRefresh, `{}`},
		{"gesture", func() { p.SetMenuGesture(false) }, EventMenuGesture, `{"enabled":false}`},
		{"menu", p.OpenMenu, EventOpenMenu, `{}`},
		{"exit", p.ExitEditor, EventExitEditor, `{}`},
		{"fullscreen", func() { p.Fullscreen(true) }, EventFullscreen, `{"enabled":true}`},
		{"prompt", p.PromptExitFullscreen, EventPromptFullExit, `{}`},
		{"current", func() { p.CurrentNote("n1") }, EventCurrentNote, `{"id":"n1"}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tt.emit()
			got := next(t, ch)
			want := "event: " + tt.event + "\ndata: " + tt.data + "\n\n"
			if got != want {
				t.Errorf("got %q, want %q", got, want)
			}
		})
	}
}

func TestStickyCurrentNote(t *testing.T) {
	b := sse.NewBroker(sse.WithSticky(StickyTypes()...))
	defer b.Close()
	p := NewPublisher(b, nil)
	p.CurrentNote("n1")
	p.CurrentNote("n2")
	p.ShowToast(editor.ToastSuccess, "Note saved")

	deadline := time.Now().Add(time.Second)
	for {
		ch := b.Subscribe()
		select {
		case msg := <-ch:
			b.Unsubscribe(ch)
			if strings.Contains(string(msg), `"id":"n2"`) {
				return
			}
		case <-time.After(20 * time.Millisecond):
			b.Unsubscribe(ch)
		}
		if time.Now().After(deadline) {
			t.Fatal("sticky current note not replayed")
		}
	}
}
