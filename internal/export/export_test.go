package export

import (
	"os"
	"path/filepath"
	"slices"
	"strings"
	"testing"
	"time"

	"github.com/starford/quire/internal/models"
)

func tempDir(t *testing.T) *Dir {
	t.Helper()
	d, err := NewDir(filepath.Join(t.TempDir(), "exports"))
	if err != nil {
		t.Fatalf("NewDir: %v", err)
	}
	return d
}

func TestWriteAndRead(t *testing.T) {
	d := tempDir(t)
	if err := d.Write("a/b/note.md", []byte("deep")); err != nil {
		t.Fatalf("Write: %v", err)
	}
	got, err := d.Read("a/b/note.md")
	if err != nil || string(got) != "deep" {
		t.Fatalf("Read = %q, %v", got, err)
	}
	paths, err := d.List()
	if err != nil || !slices.Equal(paths, []string{filepath.Join("a", "b", "note.md")}) {
		t.Errorf("List = %v, %v", paths, err)
	}
	if err := d.Delete("a/b/note.md"); err != nil {
		t.Errorf("Delete: %v", err)
	}
}

func TestSafePath_RejectsTraversal(t *testing.T) {
	d := tempDir(t)
	for _, p := range []string{"../escape.md", "/etc/passwd", "", "a/../../x.md"} {
		if err := d.Write(p, []byte("x")); err == nil {
			t.Errorf("Write(%q) should fail", p)
		}
	}
}

func TestWrite_NoTempLeftovers(t *testing.T) {
	d := tempDir(t)
	_ = d.Write("n.md", []byte("v1"))
	_ = d.Write("n.md", []byte("v2"))
	entries, _ := os.ReadDir(d.Root())
	for _, e := range entries {
		if strings.HasPrefix(e.Name(), ".quire-tmp-") {
			t.Errorf("temp file left behind: %s", e.Name())
		}
	}
}

func TestRenderParse(t *testing.T) {
	edited := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	n := models.Note{
		ID:         "0f8d2c1e-aaaa-bbbb",
		Title:      "Shopping List",
		Content:    models.Content{Text: "milk #errand\neggs"},
		Tags:       []string{"home"},
		Color:      "red",
		DateEdited: edited,
	}
	data, err := Render(n)
	if err != nil {
		t.Fatalf("Render: %v", err)
	}
	doc, err := Parse(data)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if doc.Title != "Shopping List" || doc.Frontmatter.ID != n.ID || doc.Frontmatter.Color != "red" {
		t.Errorf("doc = %+v", doc)
	}
	if !doc.Frontmatter.Edited.Equal(edited) {
		t.Errorf("edited = %v", doc.Frontmatter.Edited)
	}
	if strings.TrimSpace(doc.Body) != n.Content.Text {
		t.Errorf("body = %q", doc.Body)
	}
	if !slices.Equal(doc.Tags, []string{"home", "errand"}) {
		t.Errorf("tags = %v", doc.Tags)
	}
}

func TestParse_NoFrontmatter(t *testing.T) {
	doc, _ := Parse([]byte("# Heading\n\nbody #tag"))
	if doc.Title != "Heading" || !slices.Equal(doc.Tags, []string{"tag"}) {
		t.Errorf("doc = %+v", doc)
	}
}

func TestParse_InvalidYAMLFallsBackToBody(t *testing.T) {
	raw := "---\n: [broken\n---\ntext"
	doc, _ := Parse([]byte(raw))
	if doc.Body != raw {
		t.Errorf("body = %q", doc.Body)
	}
}

func TestFileName(t *testing.T) {
	tests := []struct {
		note models.Note
		want string
	}{
		{models.Note{ID: "12345678-abcd", Title: "Hello, World!"}, "hello-world-12345678.md"},
		{models.Note{ID: "abc", Title: "  "}, "abc.md"},
	}
	for _, tt := range tests {
		if got := FileName(tt.note); got != tt.want {
			t.Errorf("FileName(%q) = %q, want %q", tt.note.Title, got, tt.want)
		}
	}
}
