package engine

import (
	"path/filepath"

	"github.com/starford/starlinks/internal/models"
	"github.com/starford/starlinks/internal/resolver"
)

// OpenDocument adds a document to the open set, or replaces its text.
func (e *Engine) OpenDocument(path, text string) {
	path = filepath.Clean(path)
	e.do(func() { e.docs[path] = text })
}

// UpdateDocument replaces the text of a document.
func (e *Engine) UpdateDocument(path, text string) {
	e.OpenDocument(path, text)
}

// CloseDocument removes a document from the open set.
func (e *Engine) CloseDocument(path string) {
	path = filepath.Clean(path)
	e.do(func() { delete(e.docs, path) })
}

// query runs fn on the loop with the request for an open document. fn is
// not called before the index is ready or when the document is not open.
func (e *Engine) query(path string, pos models.Position, fn func(resolver.Request)) {
	path = filepath.Clean(path)
	e.do(func() {
		if !e.ready {
			return
		}
		text, ok := e.docs[path]
		if !ok {
			return
		}
		fn(resolver.Request{Path: path, Text: text, Position: pos})
	})
}

// queryText is query for text supplied by the caller. The open-document set
// is neither read nor changed, so concurrent callers on one path do not see
// each other's text.
func (e *Engine) queryText(path, text string, pos models.Position, fn func(resolver.Request)) {
	path = filepath.Clean(path)
	e.do(func() {
		if e.ready {
			fn(resolver.Request{Path: path, Text: text, Position: pos})
		}
	})
}

// Completion returns link completions at pos in the open document at path.
func (e *Engine) Completion(path string, pos models.Position) []models.CompletionItem {
	var out []models.CompletionItem
	e.query(path, pos, func(req resolver.Request) {
		out = e.resolver.Complete(e.index, req)
	})
	return out
}

// CompletionFor is Completion over text for the page at path.
func (e *Engine) CompletionFor(path, text string, pos models.Position) []models.CompletionItem {
	var out []models.CompletionItem
	e.queryText(path, text, pos, func(req resolver.Request) {
		out = e.resolver.Complete(e.index, req)
	})
	return out
}

// Definition returns the target file of the link at pos.
func (e *Engine) Definition(path string, pos models.Position) (models.Location, bool) {
	var (
		loc models.Location
		ok  bool
	)
	e.query(path, pos, func(req resolver.Request) {
		loc, ok = e.resolver.Definition(e.index, req)
	})
	return loc, ok
}

// DefinitionFor is Definition over text for the page at path.
func (e *Engine) DefinitionFor(path, text string, pos models.Position) (models.Location, bool) {
	var (
		loc models.Location
		ok  bool
	)
	e.queryText(path, text, pos, func(req resolver.Request) {
		loc, ok = e.resolver.Definition(e.index, req)
	})
	return loc, ok
}

// Links returns the resolvable links of the open document at path.
func (e *Engine) Links(path string) []models.DocumentLink {
	var out []models.DocumentLink
	e.query(path, models.Position{}, func(req resolver.Request) {
		out = e.resolver.Links(e.index, req)
	})
	return out
}

// LinksFor is Links over text for the page at path.
func (e *Engine) LinksFor(path, text string) []models.DocumentLink {
	var out []models.DocumentLink
	e.queryText(path, text, models.Position{}, func(req resolver.Request) {
		out = e.resolver.Links(e.index, req)
	})
	return out
}

// Hover returns the summary of the link target at pos.
func (e *Engine) Hover(path string, pos models.Position) (models.Hover, bool) {
	var (
		h  models.Hover
		ok bool
	)
	e.query(path, pos, func(req resolver.Request) {
		h, ok = e.resolver.Hover(e.index, req)
	})
	return h, ok
}

// HoverFor is Hover over text for the page at path.
func (e *Engine) HoverFor(path, text string, pos models.Position) (models.Hover, bool) {
	var (
		h  models.Hover
		ok bool
	)
	e.queryText(path, text, pos, func(req resolver.Request) {
		h, ok = e.resolver.Hover(e.index, req)
	})
	return h, ok
}

// Slugs returns every indexed record sorted by slug, or nil before the
// index is ready.
func (e *Engine) Slugs() []models.Record {
	var out []models.Record
	e.do(func() {
		if e.ready {
			out = e.index.Records()
		}
	})
	return out
}

// Lookup returns the record indexed under slug.
func (e *Engine) Lookup(slug string) (models.Record, bool) {
	var (
		rec models.Record
		ok  bool
	)
	e.do(func() {
		if e.ready {
			rec, ok = e.index.Lookup(slug)
		}
	})
	return rec, ok
}

// Fragments returns the fragments of the document indexed under slug.
func (e *Engine) Fragments(slug string) ([]models.Fragment, bool) {
	var (
		out []models.Fragment
		ok  bool
	)
	e.do(func() {
		if e.ready {
			out, ok = e.resolver.Fragments(e.index, slug)
		}
	})
	return out, ok
}

// Project returns the project context the engine was created with.
func (e *Engine) Project() models.Project {
	return e.index.Project()
}
