// Package theme loads the editor color palette and watches it for changes.
package theme

import (
	"fmt"
	"maps"
	"os"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"gopkg.in/yaml.v3"
)

// Default is the palette used when no theme file is configured.
var Default = map[string]string{
	"bg":     "#ffffff",
	"fg":     "#1f1f1f",
	"accent": "#0560ff",
	"icon":   "#7e7e7e",
	"nav":    "#f6f6f6",
}

type file struct {
	Colors map[string]string `yaml:"colors"`
}

func (f file) Validate() error {
	return validation.ValidateStruct(&f,
		validation.Field(&f.Colors, validation.Required),
	)
}

// Load reads a YAML theme file of the form
//
//	colors:
//	  bg: "#000000"
//
// Keys missing from the file fall back to Default.
func Load(path string) (map[string]string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("theme: read %s: %w", path, err)
	}
	var f file
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("theme: parse %s: %w", path, err)
	}
	if err := f.Validate(); err != nil {
		return nil, fmt.Errorf("theme: %s: %w", path, err)
	}
	out := maps.Clone(Default)
	maps.Copy(out, f.Colors)
	return out, nil
}
