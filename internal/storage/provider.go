// Package storage defines the content-tree file-system abstraction.
package storage

import "io"

// ContentPattern selects indexable pages: Markdown and MDX files whose name
// does not start with an underscore. IsContent applies the remaining rules.
const ContentPattern = "**/[^_]*.{md,mdx}"

// Provider is the read-only view of the content tree the index and the
// shells use. Paths are slash-separated and relative to the content root
// unless noted.
type Provider interface {
	// Root returns the absolute content root.
	Root() string
	// List returns every content page under the root, sorted.
	List() ([]string, error)
	// Open opens the file at path for streaming reads.
	Open(path string) (io.ReadCloser, error)
	// Read returns the raw bytes of the file at path.
	Read(path string) ([]byte, error)
	// Abs resolves path against the root.
	Abs(path string) (string, error)
	// Rel converts an absolute path under the root to a relative one.
	Rel(abs string) (string, error)
}
