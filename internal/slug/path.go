package slug

import (
	"fmt"
	"strings"

	"github.com/starford/starlinks/internal/models"
)

// FromPath converts a content file path, relative to the content root,
// into the canonical slug the site generator serves it under.
//
// "guide/index.md" and "guide.md" both map to "/guide" (plus the base path
// and the trailing slash the policy asks for).
func FromPath(rel, trailingSlash, base string) string {
	p := StripExtension(strings.ReplaceAll(rel, `\`, "/"))

	segments := strings.Split(p, "/")
	if segments[len(segments)-1] == "index" {
		segments = segments[:len(segments)-1]
	}

	parts := make([]string, 0, len(segments)+1)
	for _, seg := range segments {
		if s := Make(seg); s != "" {
			parts = append(parts, s)
		}
	}

	return Join(base, strings.Join(parts, "/"), trailingSlash)
}

// Join prefixes p with the base path, guarantees a single leading slash and
// applies the trailing slash policy.
func Join(base, p, trailingSlash string) string {
	parts := make([]string, 0, 2)
	if b := strings.Trim(base, "/"); b != "" {
		parts = append(parts, b)
	}
	if p = strings.Trim(p, "/"); p != "" {
		parts = append(parts, p)
	}
	return ApplyTrailingSlash("/"+strings.Join(parts, "/"), trailingSlash)
}

// ApplyTrailingSlash enforces the policy on an already slash-prefixed slug.
// The root slug "/" is left untouched.
func ApplyTrailingSlash(s, policy string) string {
	if s == "/" {
		return s
	}
	switch policy {
	case models.TrailingSlashAlways:
		if !strings.HasSuffix(s, "/") {
			return s + "/"
		}
	case models.TrailingSlashNever:
		return strings.TrimRight(s, "/")
	}
	return s
}

// ParseTrailingSlash validates a trailing slash policy. The empty string
// selects "ignore", the site generator's default.
func ParseTrailingSlash(s string) (string, error) {
	switch s {
	case "":
		return models.TrailingSlashIgnore, nil
	case models.TrailingSlashAlways, models.TrailingSlashNever, models.TrailingSlashIgnore:
		return s, nil
	}
	return "", fmt.Errorf("slug: unknown trailing slash policy %q", s)
}

// StripExtension drops the file extension of the last path segment.
func StripExtension(p string) string {
	i := strings.LastIndex(p, ".")
	if i < 0 || strings.LastIndex(p, "/") > i {
		return p
	}
	return p[:i]
}

// TrimBase removes the base path prefix from a slug, leaving the leading
// slash in place.
func TrimBase(s, base string) string {
	b := strings.Trim(base, "/")
	if b == "" {
		return s
	}
	prefix := "/" + b
	if s == prefix {
		return "/"
	}
	if strings.HasPrefix(s, prefix+"/") {
		return s[len(prefix):]
	}
	return s
}
