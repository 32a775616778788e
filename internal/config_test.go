package internal

import (
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	pkgconfig "github.com/starford/quire/pkg/config"
)

func TestAuthConfig_DisabledMode(t *testing.T) {
	cfg := AuthConfig{Mode: "disabled", Token: ""}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("disabled mode should pass: %v", err)
	}
	if cfg.AuthEnabled() {
		t.Error("disabled mode should not be enabled")
	}
}

func TestAuthConfig_EmptyModeDefaultsDisabled(t *testing.T) {
	cfg := AuthConfig{Mode: "", Token: ""}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("empty mode should default to disabled: %v", err)
	}
	if cfg.Mode != AuthModeDisabled {
		t.Errorf("mode = %q, want %q", cfg.Mode, AuthModeDisabled)
	}
}

func TestAuthConfig_TokenModeValid(t *testing.T) {
	cfg := AuthConfig{Mode: "token", Token: "mysecret"}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("token mode with token should pass: %v", err)
	}
	if !cfg.AuthEnabled() {
		t.Error("token mode should be enabled")
	}
}

func TestAuthConfig_TokenModeEmptyToken(t *testing.T) {
	cfg := AuthConfig{Mode: "token", Token: ""}
	err := cfg.Validate()
	if err == nil {
		t.Fatal("token mode with empty token should fail")
	}
	if !strings.Contains(err.Error(), "token is empty") {
		t.Errorf("unexpected error: %v", err)
	}
}

func TestAuthConfig_InvalidMode(t *testing.T) {
	cfg := AuthConfig{Mode: "magic", Token: "x"}
	err := cfg.Validate()
	if err == nil {
		t.Fatal("invalid mode should fail validation")
	}
}

func TestFullConfig_AuthValidationCalled(t *testing.T) {
	cfg := NewDefaultConfig()
	cfg.Auth.Mode = "token"
	cfg.Auth.Token = ""
	err := cfg.Validate()
	if err == nil {
		t.Fatal("full config validate should catch auth error")
	}
}

func TestDefaultConfig_Valid(t *testing.T) {
	if err := NewDefaultConfig().Validate(); err != nil {
		t.Fatalf("default config should validate: %v", err)
	}
}

func TestEditorConfig_RejectsZeroDurations(t *testing.T) {
	tests := map[string]func(*EditorConfig){
		"autosave": func(c *EditorConfig) { c.AutosaveDelay = 0 },
		"confirm":  func(c *EditorConfig) { c.ConfirmWindow = 0 },
		"resolve":  func(c *EditorConfig) { c.ResolveRetryDelay = 0 },
		"negative": func(c *EditorConfig) { c.AutosaveDelay = -time.Second },
	}
	for name, mutate := range tests {
		t.Run(name, func(t *testing.T) {
			cfg := NewDefaultConfig()
			mutate(&cfg.Editor)
			if err := cfg.Validate(); err == nil {
				t.Error("expected validation error")
			}
		})
	}
}

func TestEditorConfig_Controller(t *testing.T) {
	cfg := NewDefaultConfig()
	cfg.Editor.Tablet = true
	got := cfg.Editor.Controller()
	if got.AutosaveDelay != 500*time.Millisecond || !got.Tablet || got.RefreshTextLimit != 200 {
		t.Errorf("controller config = %+v", got)
	}
}

func TestLoadConfigFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	t.Setenv("QUIRE_TEST_TOKEN", "from-env")
	data := `
app:
  log_level: debug
  http:
    port: 9090
sqlite:
  path: /tmp/q.db
export:
  path: /tmp/export
editor:
  autosave_delay: 250ms
  confirm_window: 2s
  resolve_retry_delay: 1s
  refresh_text_limit: 100
  refresh_min_saves: 3
  tablet: true
vault:
  kdf_time: 2
  kdf_memory_kib: 2048
auth:
  mode: token
  token: ${QUIRE_TEST_TOKEN}
`
	if err := os.WriteFile(path, []byte(data), 0o644); err != nil {
		t.Fatal(err)
	}
	cfg := NewDefaultConfig()
	if err := pkgconfig.Load(path, cfg); err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.App.LogLevel != slog.LevelDebug || cfg.App.HTTP.Port != 9090 {
		t.Errorf("app = %+v", cfg.App)
	}
	if cfg.Editor.AutosaveDelay != 250*time.Millisecond || !cfg.Editor.Tablet {
		t.Errorf("editor = %+v", cfg.Editor)
	}
	if cfg.Auth.Token != "from-env" {
		t.Errorf("token = %q", cfg.Auth.Token)
	}
}
