package export

import (
	"bytes"
	"fmt"
	"regexp"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/starford/quire/internal/models"
)

var (
	tagRe  = regexp.MustCompile(`(?:^|\s)#([A-Za-z][A-Za-z0-9_/-]*)`)
	slugRe = regexp.MustCompile(`[^a-z0-9]+`)
)

// Frontmatter is the YAML header of an exported note.
type Frontmatter struct {
	ID       string    `yaml:"id,omitempty"`
	Title    string    `yaml:"title,omitempty"`
	Tags     []string  `yaml:"tags,omitempty"`
	Color    string    `yaml:"color,omitempty"`
	Notebook string    `yaml:"notebook,omitempty"`
	Topic    string    `yaml:"topic,omitempty"`
	Created  time.Time `yaml:"created,omitempty"`
	Edited   time.Time `yaml:"edited,omitempty"`
}

// Document is a parsed Markdown note.
type Document struct {
	Frontmatter Frontmatter
	Title       string
	Body        string
	Tags        []string
}

// FileName returns the export file name of a note.
func FileName(n models.Note) string {
	slug := strings.Trim(slugRe.ReplaceAllString(strings.ToLower(n.Title), "-"), "-")
	if len(slug) > 48 {
		slug = strings.TrimRight(slug[:48], "-")
	}
	id := n.ID
	if len(id) > 8 {
		id = id[:8]
	}
	if slug == "" {
		return id + ".md"
	}
	return slug + "-" + id + ".md"
}

// Render encodes a note as Markdown. The structured body is not exported;
// the plain text is.
func Render(n models.Note) ([]byte, error) {
	fm := Frontmatter{
		ID:       n.ID,
		Title:    n.Title,
		Tags:     n.Tags,
		Color:    n.Color,
		Notebook: n.Notebook,
		Topic:    n.Topic,
		Created:  n.DateCreated.UTC(),
		Edited:   n.DateEdited.UTC(),
	}
	head, err := yaml.Marshal(fm)
	if err != nil {
		return nil, fmt.Errorf("export: encode frontmatter: %w", err)
	}
	var buf bytes.Buffer
	buf.WriteString("---\n")
	buf.Write(head)
	buf.WriteString("---\n\n")
	buf.WriteString(n.Content.Text)
	if !strings.HasSuffix(n.Content.Text, "\n") {
		buf.WriteByte('\n')
	}
	return buf.Bytes(), nil
}

// Parse decodes Markdown with optional frontmatter. Invalid YAML is treated
// as body text.
func Parse(data []byte) (*Document, error) {
	fm, body := splitFrontmatter(data)
	doc := &Document{Frontmatter: fm, Body: body}
	doc.Title = deriveTitle(fm, body)
	doc.Tags = collectTags(fm, body)
	return doc, nil
}

func splitFrontmatter(data []byte) (Frontmatter, string) {
	const delim = "---"
	trimmed := bytes.TrimLeft(data, "\n\r")
	if !bytes.HasPrefix(trimmed, []byte(delim)) {
		return Frontmatter{}, string(data)
	}
	rest := trimmed[len(delim):]
	idx := bytes.Index(rest, []byte("\n"+delim))
	if idx < 0 {
		return Frontmatter{}, string(data)
	}
	body := strings.TrimLeft(string(rest[idx+1+len(delim):]), "\n\r")

	var fm Frontmatter
	if err := yaml.Unmarshal(rest[:idx], &fm); err != nil {
		return Frontmatter{}, string(data)
	}
	return fm, body
}

// deriveTitle prefers the frontmatter title, then the first H1.
func deriveTitle(fm Frontmatter, body string) string {
	if fm.Title != "" {
		return fm.Title
	}
	for _, line := range strings.Split(body, "\n") {
		trimmed := strings.TrimSpace(line)
		if strings.HasPrefix(trimmed, "# ") {
			return strings.TrimSpace(trimmed[2:])
		}
	}
	return ""
}

func collectTags(fm Frontmatter, body string) []string {
	seen := make(map[string]struct{})
	var out []string
	add := func(t string) {
		t = strings.TrimSpace(t)
		if t == "" {
			return
		}
		if _, dup := seen[t]; dup {
			return
		}
		seen[t] = struct{}{}
		out = append(out, t)
	}
	for _, t := range fm.Tags {
		add(t)
	}
	for _, m := range tagRe.FindAllStringSubmatch(body, -1) {
		add(m[1])
	}
	return out
}
