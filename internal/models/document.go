// Package models defines the plain data types exchanged between the
// starlinks engine and the shells that consume it.
package models

// Trailing-slash policies understood by the slug codec.
const (
	TrailingSlashAlways = "always"
	TrailingSlashNever  = "never"
	TrailingSlashIgnore = "ignore"
)

// TopFragment is the synthetic anchor every document exposes.
const TopFragment = "_top"

// Project is the host site context the engine is started with. It is
// immutable for the lifetime of an engine.
type Project struct {
	Base          string            `json:"base,omitempty"`
	TrailingSlash string            `json:"trailing_slash"`
	SrcDir        string            `json:"src_dir,omitempty"`
	ContentDir    string            `json:"content_dir"`
	Locales       map[string]string `json:"locales,omitempty"`
	Multilingual  bool              `json:"multilingual"`
}

// Record is one indexed content file.
type Record struct {
	Slug        string `json:"slug"`
	Path        string `json:"path"`
	Locale      string `json:"locale,omitempty"`
	Title       string `json:"title,omitempty"`
	Description string `json:"description,omitempty"`
}

// Fragment is an addressable anchor inside a document.
type Fragment struct {
	Label string `json:"label,omitempty"`
	Slug  string `json:"slug"`
}

// Settings are the user-facing toggles consumed by the resolver.
type Settings struct {
	UseConsistentLocale bool            `json:"use_consistent_locale"`
	CustomComponents    []LinkComponent `json:"custom_components,omitempty"`
}

// LinkComponent names a tag and the attribute that carries a link URL.
type LinkComponent struct {
	Component string `json:"component" yaml:"component"`
	Attribute string `json:"attribute" yaml:"attribute"`
}
