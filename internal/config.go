package internal

import (
	"fmt"
	"log/slog"
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"

	"github.com/starford/quire/internal/editor"
)

// Auth modes.
const (
	AuthModeDisabled = "disabled"
	AuthModeToken    = "token"
)

// Config represents the application configuration.
type Config struct {
	App    ApplicationConfig `yaml:"app"`
	SQLite SQLiteConfig      `yaml:"sqlite"`
	Export ExportConfig      `yaml:"export"`
	Theme  ThemeConfig       `yaml:"theme"`
	Editor EditorConfig      `yaml:"editor"`
	Vault  VaultConfig       `yaml:"vault"`
	Auth   AuthConfig        `yaml:"auth"`
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	if err := c.App.Validate(); err != nil {
		return err
	}
	if err := c.SQLite.Validate(); err != nil {
		return err
	}
	if err := c.Export.Validate(); err != nil {
		return err
	}
	if err := c.Editor.Validate(); err != nil {
		return err
	}
	if err := c.Vault.Validate(); err != nil {
		return err
	}
	return c.Auth.Validate()
}

// ApplicationConfig holds application-level configuration.
type ApplicationConfig struct {
	LogLevel slog.Level `yaml:"log_level"`
	HTTP     HTTPConfig `yaml:"http"`
}

// Validate validates the application configuration.
func (c *ApplicationConfig) Validate() error {
	return c.HTTP.Validate()
}

// HTTPConfig holds HTTP server configuration.
type HTTPConfig struct {
	Port int `yaml:"port"`
}

// Address returns HTTP server address.
func (c *HTTPConfig) Address() string {
	return fmt.Sprintf(":%d", c.Port)
}

// Validate validates the HTTP configuration.
func (c *HTTPConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.Port, validation.Required, validation.Min(1), validation.Max(65535)),
	)
}

// SQLiteConfig holds SQLite database configuration.
type SQLiteConfig struct {
	Path string `yaml:"path"`
}

// Validate validates the SQLite configuration.
func (c *SQLiteConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.Path, validation.Required),
	)
}

// ExportConfig holds the Markdown export directory.
type ExportConfig struct {
	Path string `yaml:"path"`
}

// Validate validates the export configuration.
func (c *ExportConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.Path, validation.Required),
	)
}

// ThemeConfig points at an optional theme file. An empty path uses the
// built-in palette.
type ThemeConfig struct {
	Path string `yaml:"path"`
}

// EditorConfig holds the editor timing and layout settings.
type EditorConfig struct {
	AutosaveDelay     time.Duration `yaml:"autosave_delay"`
	ConfirmWindow     time.Duration `yaml:"confirm_window"`
	ResolveRetryDelay time.Duration `yaml:"resolve_retry_delay"`
	RefreshTextLimit  int           `yaml:"refresh_text_limit"`
	RefreshMinSaves   int           `yaml:"refresh_min_saves"`
	NoMenu            bool          `yaml:"no_menu"`
	Tablet            bool          `yaml:"tablet"`
}

// Validate validates the editor configuration. Timer durations must be
// positive.
func (c *EditorConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.AutosaveDelay, validation.Required, validation.Min(time.Millisecond)),
		validation.Field(&c.ConfirmWindow, validation.Required, validation.Min(time.Millisecond)),
		validation.Field(&c.ResolveRetryDelay, validation.Required, validation.Min(time.Millisecond)),
		validation.Field(&c.RefreshTextLimit, validation.Min(0)),
		validation.Field(&c.RefreshMinSaves, validation.Min(0)),
	)
}

// Controller returns the editor controller settings.
func (c *EditorConfig) Controller() editor.Config {
	return editor.Config{
		AutosaveDelay:     c.AutosaveDelay,
		ConfirmWindow:     c.ConfirmWindow,
		ResolveRetryDelay: c.ResolveRetryDelay,
		RefreshTextLimit:  c.RefreshTextLimit,
		RefreshMinSaves:   c.RefreshMinSaves,
		NoMenu:            c.NoMenu,
		Tablet:            c.Tablet,
	}
}

// VaultConfig holds the argon2id parameters for the note vault.
type VaultConfig struct {
	KDFTime      uint32 `yaml:"kdf_time"`
	KDFMemoryKiB uint32 `yaml:"kdf_memory_kib"`
}

// Validate validates the vault configuration.
func (c *VaultConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.KDFTime, validation.Required, validation.Min(uint32(1))),
		validation.Field(&c.KDFMemoryKiB, validation.Required, validation.Min(uint32(1024))),
	)
}

// AuthConfig holds authentication configuration.
//
// Mode controls how authentication is enforced:
//   - "disabled" (default): no authentication required, suitable for local dev.
//   - "token": Bearer token authentication; Token must be non-empty.
type AuthConfig struct {
	Mode  string `yaml:"mode"`
	Token string `yaml:"token"`
}

// Validate validates the auth configuration.
func (c *AuthConfig) Validate() error {
	if c.Mode == "" {
		c.Mode = AuthModeDisabled
	}
	if err := validation.ValidateStruct(c,
		validation.Field(&c.Mode, validation.Required, validation.In(AuthModeDisabled, AuthModeToken)),
	); err != nil {
		return err
	}
	if c.Mode == AuthModeToken && c.Token == "" {
		return fmt.Errorf("auth: mode is %q but token is empty", AuthModeToken)
	}
	return nil
}

// AuthEnabled returns true when authentication is active.
func (c *AuthConfig) AuthEnabled() bool {
	return c.Mode == AuthModeToken
}

// NewDefaultConfig returns a new Config with sensible default values.
func NewDefaultConfig() *Config {
	ed := editor.DefaultConfig()
	return &Config{
		App: ApplicationConfig{
			LogLevel: slog.LevelInfo,
			HTTP: HTTPConfig{
				Port: 8080,
			},
		},
		SQLite: SQLiteConfig{
			Path: "./quire.db",
		},
		Export: ExportConfig{
			Path: "./export",
		},
		Editor: EditorConfig{
			AutosaveDelay:     ed.AutosaveDelay,
			ConfirmWindow:     ed.ConfirmWindow,
			ResolveRetryDelay: ed.ResolveRetryDelay,
			RefreshTextLimit:  ed.RefreshTextLimit,
			RefreshMinSaves:   ed.RefreshMinSaves,
		},
		Vault: VaultConfig{
			KDFTime:      3,
			KDFMemoryKiB: 64 * 1024,
		},
		Auth: AuthConfig{
			Mode: AuthModeDisabled,
		},
	}
}
