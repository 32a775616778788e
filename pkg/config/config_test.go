package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
)

type sample struct {
	Name string `yaml:"name"`
	Port int    `yaml:"port"`
}

func (s *sample) Validate() error {
	if s.Port == 0 {
		return errors.New("port required")
	}
	return nil
}

func TestLoad_ExpandsEnvAndKeepsDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "c.yaml")
	t.Setenv("SAMPLE_NAME", "quire")
	_ = os.WriteFile(path, []byte("name: ${SAMPLE_NAME}\n"), 0o644)

	s := sample{Port: 8080}
	if err := Load(path, &s); err != nil {
		t.Fatalf("Load: %v", err)
	}
	if s.Name != "quire" || s.Port != 8080 {
		t.Errorf("got %+v", s)
	}
}

func TestLoad_Validates(t *testing.T) {
	path := filepath.Join(t.TempDir(), "c.yaml")
	_ = os.WriteFile(path, []byte("port: 0\n"), 0o644)
	if err := Load(path, &sample{}); err == nil {
		t.Error("expected validation error")
	}
}

func TestLoadOptional_MissingFile(t *testing.T) {
	s := sample{Port: 1}
	found, err := LoadOptional(filepath.Join(t.TempDir(), "none.yaml"), &s)
	if err != nil || found {
		t.Fatalf("found=%v err=%v", found, err)
	}
	if _, err := LoadOptional(filepath.Join(t.TempDir(), "none.yaml"), &sample{}); err == nil {
		t.Error("invalid defaults should fail")
	}
}
