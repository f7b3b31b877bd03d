package internal

import (
	"fmt"
	"log/slog"
	"path/filepath"

	validation "github.com/go-ozzo/ozzo-validation/v4"

	"github.com/starford/starlinks/internal/models"
	"github.com/starford/starlinks/internal/slug"
)

// Auth modes.
const (
	AuthModeDisabled = "disabled"
	AuthModeToken    = "token"
)

// Transports.
const (
	TransportHTTP = "http"
	TransportMCP  = "mcp"
)

// Config represents the application configuration.
type Config struct {
	App     ApplicationConfig `yaml:"app"`
	Project ProjectConfig     `yaml:"project"`
	Links   LinksConfig       `yaml:"links"`
	Watch   WatchConfig       `yaml:"watch"`
	Auth    AuthConfig        `yaml:"auth"`
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	if err := c.App.Validate(); err != nil {
		return err
	}
	if err := c.Project.Validate(); err != nil {
		return err
	}
	if err := c.Links.Validate(); err != nil {
		return err
	}
	return c.Auth.Validate()
}

// ApplicationConfig holds application-level configuration.
type ApplicationConfig struct {
	LogLevel  slog.Level `yaml:"log_level"`
	HTTP      HTTPConfig `yaml:"http"`
	Transport string     `yaml:"transport"`
}

// Validate validates the application configuration.
func (c *ApplicationConfig) Validate() error {
	if c.Transport == "" {
		c.Transport = TransportHTTP
	}
	if err := validation.ValidateStruct(c,
		validation.Field(&c.Transport, validation.In(TransportHTTP, TransportMCP)),
	); err != nil {
		return err
	}
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

// ProjectConfig describes the documentation site whose content is indexed.
//
// ContentDir defaults to <root>/<src_dir>/content/docs; a relative value is
// taken from Root. Multilingual defaults to having more than one locale.
type ProjectConfig struct {
	Root          string            `yaml:"root"`
	Base          string            `yaml:"base"`
	TrailingSlash string            `yaml:"trailing_slash"`
	SrcDir        string            `yaml:"src_dir"`
	ContentDir    string            `yaml:"content_dir"`
	Locales       map[string]string `yaml:"locales"`
	Multilingual  *bool             `yaml:"multilingual"`
}

// Validate validates the project configuration and normalises the trailing
// slash policy.
func (c *ProjectConfig) Validate() error {
	if err := validation.ValidateStruct(c,
		validation.Field(&c.Root, validation.Required),
	); err != nil {
		return err
	}
	policy, err := slug.ParseTrailingSlash(c.TrailingSlash)
	if err != nil {
		return fmt.Errorf("project: %w", err)
	}
	c.TrailingSlash = policy
	return nil
}

// ContentPath returns the absolute content directory.
func (c *ProjectConfig) ContentPath() (string, error) {
	dir := c.ContentDir
	if dir == "" {
		src := c.SrcDir
		if src == "" {
			src = "src"
		}
		dir = filepath.Join(src, "content", "docs")
	}
	if !filepath.IsAbs(dir) {
		dir = filepath.Join(c.Root, dir)
	}
	abs, err := filepath.Abs(dir)
	if err != nil {
		return "", fmt.Errorf("project: resolve content dir: %w", err)
	}
	return abs, nil
}

// Model returns the project context handed to the engine.
func (c *ProjectConfig) Model() (models.Project, error) {
	content, err := c.ContentPath()
	if err != nil {
		return models.Project{}, err
	}
	multilingual := len(c.Locales) > 1
	if c.Multilingual != nil {
		multilingual = *c.Multilingual
	}
	return models.Project{
		Base:          c.Base,
		TrailingSlash: c.TrailingSlash,
		SrcDir:        c.SrcDir,
		ContentDir:    content,
		Locales:       c.Locales,
		Multilingual:  multilingual,
	}, nil
}

// LinksConfig holds the resolver settings.
type LinksConfig struct {
	UseConsistentLocale bool                  `yaml:"use_consistent_locale"`
	CustomComponents    []LinkComponentConfig `yaml:"custom_components"`
}

// Validate validates every custom component.
func (c *LinksConfig) Validate() error {
	for i := range c.CustomComponents {
		if err := c.CustomComponents[i].Validate(); err != nil {
			return fmt.Errorf("links: custom_components[%d]: %w", i, err)
		}
	}
	return nil
}

// Settings returns the resolver settings.
func (c *LinksConfig) Settings() models.Settings {
	s := models.Settings{UseConsistentLocale: c.UseConsistentLocale}
	for _, lc := range c.CustomComponents {
		s.CustomComponents = append(s.CustomComponents, models.LinkComponent{
			Component: lc.Component,
			Attribute: lc.Attribute,
		})
	}
	return s
}

// LinkComponentConfig names a component and the attribute holding its URL.
type LinkComponentConfig struct {
	Component string `yaml:"component"`
	Attribute string `yaml:"attribute"`
}

// Validate validates the component entry.
func (c *LinkComponentConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.Component, validation.Required),
		validation.Field(&c.Attribute, validation.Required),
	)
}

// WatchConfig controls the content watcher.
type WatchConfig struct {
	Enabled bool `yaml:"enabled"`
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
	return &Config{
		App: ApplicationConfig{
			LogLevel: slog.LevelInfo,
			HTTP: HTTPConfig{
				Port: 8080,
			},
			Transport: TransportHTTP,
		},
		Project: ProjectConfig{
			Root:          ".",
			TrailingSlash: models.TrailingSlashIgnore,
			SrcDir:        "src",
		},
		Links: LinksConfig{
			UseConsistentLocale: true,
		},
		Watch: WatchConfig{
			Enabled: true,
		},
		Auth: AuthConfig{
			Mode: AuthModeDisabled,
		},
	}
}
