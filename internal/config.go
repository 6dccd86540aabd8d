package internal

import (
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"golang.org/x/text/language"
)

// Auth modes.
const (
	AuthModeDisabled = "disabled"
	AuthModeToken    = "token"
)

// Config represents the application configuration.
type Config struct {
	App     ApplicationConfig `yaml:"app"`
	Content ContentConfig     `yaml:"content"`
	SQLite  SQLiteConfig      `yaml:"sqlite"`
	Site    SiteConfig        `yaml:"site"`
	Auth    AuthConfig        `yaml:"auth"`
	Events  EventsConfig      `yaml:"events"`
}

// Validate validates every section in declaration order and returns the
// first failure.
func (c *Config) Validate() error {
	for _, section := range []validation.Validatable{&c.App, &c.Content, &c.SQLite, &c.Site, &c.Auth, &c.Events} {
		if err := section.Validate(); err != nil {
			return err
		}
	}
	return nil
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

// ContentConfig locates the Markdown content.
type ContentConfig struct {
	Path        string `yaml:"path"`
	PostsFolder string `yaml:"posts_folder"`
}

// Validate validates the content configuration.
func (c *ContentConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.Path, validation.Required),
		validation.Field(&c.PostsFolder, validation.Required),
	)
}

// SQLiteConfig holds the front-matter cache configuration. When disabled,
// posts are read straight from the content directory on every request.
type SQLiteConfig struct {
	Enabled bool   `yaml:"enabled"`
	Path    string `yaml:"path"`
}

// Validate validates the SQLite configuration.
func (c *SQLiteConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.Path, validation.When(c.Enabled, validation.Required)),
	)
}

// SiteConfig holds the site metadata and listing settings.
type SiteConfig struct {
	Title         string   `yaml:"title"`
	Description   string   `yaml:"description"`
	PostsPerPage  int      `yaml:"posts_per_page"`
	ShowDrafts    bool     `yaml:"show_drafts"`
	DefaultLocale string   `yaml:"default_locale"`
	Locales       []string `yaml:"locales"`
	OutputDir     string   `yaml:"output_dir"`
}

var localeRule = validation.By(func(v any) error {
	s, _ := v.(string)
	if s == "" {
		return nil
	}
	if _, err := language.Parse(s); err != nil {
		return fmt.Errorf("invalid locale %q", s)
	}
	return nil
})

// Validate validates the site configuration.
func (c *SiteConfig) Validate() error {
	if err := validation.ValidateStruct(c,
		validation.Field(&c.Title, validation.Required),
		validation.Field(&c.PostsPerPage, validation.Required, validation.Min(1)),
		validation.Field(&c.DefaultLocale, validation.Required, localeRule),
		validation.Field(&c.Locales, validation.Required, validation.Each(validation.Required, localeRule)),
		validation.Field(&c.OutputDir, validation.Required),
	); err != nil {
		return err
	}
	if !slices.Contains(c.Locales, c.DefaultLocale) {
		return fmt.Errorf("site: default_locale %q is not listed in locales", c.DefaultLocale)
	}
	return nil
}

// AuthConfig holds authentication configuration for admin endpoints.
//
// Mode controls how authentication is enforced:
//   - "disabled" (default): admin endpoints are open, suitable for local dev.
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
		return errors.New("auth: mode is \"token\" but token is empty")
	}
	return nil
}

// AuthEnabled returns true when authentication is active.
func (c *AuthConfig) AuthEnabled() bool {
	return c.Mode == AuthModeToken
}

// EventsConfig controls the live-reload event stream. Throttle bounds how
// often listing.updated is sent; KeepAlive is the idle comment interval.
type EventsConfig struct {
	Throttle  time.Duration `yaml:"throttle"`
	KeepAlive time.Duration `yaml:"keep_alive"`
}

// Validate validates the events configuration.
func (c *EventsConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.Throttle, validation.Min(time.Duration(0))),
		validation.Field(&c.KeepAlive, validation.Required, validation.Min(time.Second)),
	)
}

// NewDefaultConfig returns a new Config with sensible default values.
func NewDefaultConfig() *Config {
	return &Config{
		App: ApplicationConfig{
			LogLevel: slog.LevelInfo,
			HTTP: HTTPConfig{
				Port: 8080,
			},
		},
		Content: ContentConfig{
			Path:        "./content",
			PostsFolder: "posts",
		},
		SQLite: SQLiteConfig{
			Enabled: true,
			Path:    "./folio.db",
		},
		Site: SiteConfig{
			Title:         "My Blog",
			PostsPerPage:  5,
			DefaultLocale: "en",
			Locales:       []string{"en", "zh-TW"},
			OutputDir:     "./public",
		},
		Auth: AuthConfig{
			Mode: AuthModeDisabled,
		},
		Events: EventsConfig{
			Throttle:  2 * time.Second,
			KeepAlive: 25 * time.Second,
		},
	}
}
