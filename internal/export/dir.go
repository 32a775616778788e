// Package export writes notes to a directory as Markdown with YAML
// frontmatter and reads them back.
package export

import (
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
)

// Dir is an export directory on the local file system.
type Dir struct {
	root string // absolute
}

// NewDir creates the export directory if needed and returns a handle to it.
func NewDir(root string) (*Dir, error) {
	abs, err := filepath.Abs(root)
	if err != nil {
		return nil, fmt.Errorf("export: resolve root: %w", err)
	}
	if err := os.MkdirAll(abs, 0o755); err != nil {
		return nil, fmt.Errorf("export: mkdir root: %w", err)
	}
	return &Dir{root: abs}, nil
}

// Root returns the absolute directory path.
func (d *Dir) Root() string { return d.root }

// safePath resolves rel against the root and rejects anything that escapes it.
func (d *Dir) safePath(rel string) (string, error) {
	cleaned := filepath.Clean(rel)
	if rel == "" || cleaned == "." {
		return "", fmt.Errorf("export: empty path")
	}
	if filepath.IsAbs(cleaned) {
		return "", fmt.Errorf("export: absolute paths not allowed: %s", rel)
	}
	abs, err := filepath.Abs(filepath.Join(d.root, cleaned))
	if err != nil {
		return "", fmt.Errorf("export: resolve path: %w", err)
	}
	if !strings.HasPrefix(abs, d.root+string(os.PathSeparator)) {
		return "", fmt.Errorf("export: path escapes export root: %s", rel)
	}
	return abs, nil
}

// List returns the paths of all Markdown files, relative to the root.
func (d *Dir) List() ([]string, error) {
	var out []string
	err := filepath.WalkDir(d.root, func(p string, e fs.DirEntry, walkErr error) error {
		if walkErr != nil {
			return walkErr
		}
		if e.IsDir() || !strings.HasSuffix(e.Name(), ".md") {
			return nil
		}
		rel, _ := filepath.Rel(d.root, p)
		out = append(out, rel)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("export: list: %w", err)
	}
	return out, nil
}

// Read returns the bytes of a file in the directory.
func (d *Dir) Read(path string) ([]byte, error) {
	abs, err := d.safePath(path)
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(abs)
	if err != nil {
		return nil, fmt.Errorf("export: read %s: %w", path, err)
	}
	return data, nil
}

// Write atomically replaces path with content: tmp file, fsync, rename.
func (d *Dir) Write(path string, content []byte) error {
	abs, err := d.safePath(path)
	if err != nil {
		return err
	}
	dir := filepath.Dir(abs)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("export: mkdir: %w", err)
	}

	tmp, err := os.CreateTemp(dir, ".quire-tmp-*")
	if err != nil {
		return fmt.Errorf("export: create temp: %w", err)
	}
	tmpName := tmp.Name()
	success := false
	defer func() {
		if !success {
			_ = tmp.Close()
			_ = os.Remove(tmpName)
		}
	}()

	if _, err := tmp.Write(content); err != nil {
		return fmt.Errorf("export: write temp: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		return fmt.Errorf("export: fsync: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("export: close temp: %w", err)
	}
	if err := os.Rename(tmpName, abs); err != nil {
		return fmt.Errorf("export: rename: %w", err)
	}
	success = true
	return nil
}

// Delete removes a file from the directory.
func (d *Dir) Delete(path string) error {
	abs, err := d.safePath(path)
	if err != nil {
		return err
	}
	if err := os.Remove(abs); err != nil {
		return fmt.Errorf("export: delete %s: %w", path, err)
	}
	return nil
}
