// Package resolver answers completion, definition, document-link and hover
// queries for a document against a link index. It keeps no state between
// calls; the index is passed into every query.
package resolver

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/hbollon/go-edlib"

	"github.com/starford/starlinks/internal/fragments"
	"github.com/starford/starlinks/internal/linkindex"
	"github.com/starford/starlinks/internal/linkscan"
	"github.com/starford/starlinks/internal/models"
	"github.com/starford/starlinks/internal/textdoc"
)

// Index is the read-only view of the link index used by the resolver.
type Index interface {
	Project() models.Project
	Lookup(slug string) (models.Record, bool)
	FindByPath(path string) (models.Record, bool)
	SlugForPath(path string) (string, bool)
	Records() []models.Record
}

var _ Index = (*linkindex.Index)(nil)

// ReadFunc returns the current content of the file at path.
type ReadFunc func(path string) ([]byte, error)

// Request identifies a document and, for positional queries, the cursor.
type Request struct {
	Path     string
	Text     string
	Position models.Position
}

// Resolver answers link queries.
type Resolver struct {
	scanner  *linkscan.Scanner
	settings models.Settings
	read     ReadFunc
	logger   *slog.Logger
}

// Option configures a Resolver.
type Option func(*Resolver)

// WithReader sets how target documents are read for fragment extraction.
func WithReader(fn ReadFunc) Option {
	return func(r *Resolver) { r.read = fn }
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(r *Resolver) { r.logger = l }
}

// New creates a resolver for the given settings.
func New(settings models.Settings, opts ...Option) *Resolver {
	r := &Resolver{
		scanner:  linkscan.New(settings.CustomComponents),
		settings: settings,
		read:     os.ReadFile,
		logger:   slog.Default(),
	}
	for _, o := range opts {
		o(r)
	}
	return r
}

// Scanner returns the link scanner built from the settings.
func (r *Resolver) Scanner() *linkscan.Scanner { return r.scanner }

// Complete returns completion candidates for a link being typed at the
// cursor, or nil when the cursor is not inside a link URL.
func (r *Resolver) Complete(ix Index, req Request) []models.CompletionItem {
	if ix == nil {
		return nil
	}
	doc := textdoc.New(req.Text)
	cursor := doc.PositionAt(doc.OffsetAt(req.Position))
	prefix, _ := doc.LinePrefix(cursor)
	partial := r.scanner.Partial(prefix)
	if !partial.InLink {
		return nil
	}

	line := cursor.Line
	end := models.Position{Line: line, Character: partial.Start + textdoc.UTF16Len(partial.URL)}

	if target, _, ok := strings.Cut(partial.URL, "#"); ok {
		return r.completeFragments(ix, target, models.Range{
			Start: models.Position{Line: line, Character: partial.Start + textdoc.UTF16Len(target) + 1},
			End:   end,
		})
	}
	return r.completeSlugs(ix, req.Path, partial.URL, models.Range{
		Start: models.Position{Line: line, Character: partial.Start},
		End:   end,
	})
}

func (r *Resolver) completeFragments(ix Index, target string, rng models.Range) []models.CompletionItem {
	frags, ok := r.Fragments(ix, target)
	if !ok {
		return nil
	}
	items := make([]models.CompletionItem, 0, len(frags))
	for i, f := range frags {
		items = append(items, models.CompletionItem{
			Label:    target + "#" + f.Slug,
			Detail:   f.Label,
			NewText:  f.Slug,
			Range:    rng,
			SortText: sortKey(i),
		})
	}
	return items
}

type candidate struct {
	rec   models.Record
	score float32
}

func (r *Resolver) completeSlugs(ix Index, path, typed string, rng models.Range) []models.CompletionItem {
	project := ix.Project()
	curSlug, curLocale := current(ix, path)
	filterLocale := project.Multilingual && r.settings.UseConsistentLocale
	path = filepath.Clean(path)

	var cands []candidate
	for _, rec := range ix.Records() {
		if rec.Slug == curSlug || rec.Path == path {
			continue
		}
		if filterLocale && rec.Locale != curLocale {
			continue
		}
		cands = append(cands, candidate{rec: rec, score: similarity(typed, rec.Slug)})
	}

	sort.SliceStable(cands, func(i, j int) bool {
		if cands[i].score != cands[j].score {
			return cands[i].score > cands[j].score
		}
		return cands[i].rec.Slug < cands[j].rec.Slug
	})

	items := make([]models.CompletionItem, 0, len(cands))
	for i, c := range cands {
		items = append(items, models.CompletionItem{
			Label:    c.rec.Slug,
			Detail:   c.rec.Title,
			NewText:  c.rec.Slug,
			Range:    rng,
			SortText: sortKey(i),
		})
	}
	return items
}

// current returns the slug and locale of the document at path: its indexed
// record if any, otherwise what its location implies.
func current(ix Index, path string) (string, string) {
	if rec, ok := ix.FindByPath(path); ok {
		return rec.Slug, rec.Locale
	}
	if s, ok := ix.SlugForPath(path); ok {
		return s, linkindex.Locale(ix.Project(), s)
	}
	return "", ""
}

func similarity(typed, slug string) float32 {
	if typed == "" {
		return 0
	}
	if typed == slug {
		return 1
	}
	score, err := edlib.StringsSimilarity(typed, slug, edlib.JaroWinkler)
	if err != nil {
		return 0
	}
	return score
}

func sortKey(i int) string {
	return fmt.Sprintf("%05d", i)
}

// Fragments returns the fragments of the indexed document at slug.
func (r *Resolver) Fragments(ix Index, slug string) ([]models.Fragment, bool) {
	if ix == nil {
		return nil, false
	}
	rec, ok := ix.Lookup(slug)
	if !ok {
		return nil, false
	}
	data, err := r.read(rec.Path)
	if err != nil {
		r.logger.Debug("resolver: read target failed",
			slog.String("path", rec.Path),
			slog.String("error", err.Error()))
		return nil, false
	}
	return fragments.Extract(data), true
}

// Definition returns the file the link under the cursor points to.
func (r *Resolver) Definition(ix Index, req Request) (models.Location, bool) {
	rec, _, ok := r.resolveAt(ix, req)
	if !ok {
		return models.Location{}, false
	}
	return models.Location{Path: rec.Path}, true
}

// Links returns every link in the document whose target is indexed.
func (r *Resolver) Links(ix Index, req Request) []models.DocumentLink {
	if ix == nil {
		return nil
	}
	res := r.scanner.Scan(req.Text)
	if res.Err != nil {
		r.logger.Debug("resolver: scan failed", slog.String("path", req.Path), slog.String("error", res.Err.Error()))
		return nil
	}
	var out []models.DocumentLink
	for _, occ := range res.Occurrences {
		rec, ok := ix.Lookup(occ.Slug)
		if !ok {
			continue
		}
		out = append(out, models.DocumentLink{Range: occ.Range, Target: rec.Path})
	}
	return out
}

// Hover returns a summary of the document the link under the cursor
// points to.
func (r *Resolver) Hover(ix Index, req Request) (models.Hover, bool) {
	rec, occ, ok := r.resolveAt(ix, req)
	if !ok {
		return models.Hover{}, false
	}
	return models.Hover{Range: occ.Range, Markdown: Summary(rec)}, true
}

// Summary formats a record as a Markdown heading followed by its
// description.
func Summary(rec models.Record) string {
	title := rec.Title
	if title == "" {
		title = rec.Slug
	}
	var b strings.Builder
	b.WriteString("### ")
	b.WriteString(title)
	if rec.Description != "" {
		b.WriteString("\n\n")
		b.WriteString(rec.Description)
	}
	return b.String()
}

func (r *Resolver) resolveAt(ix Index, req Request) (models.Record, models.Occurrence, bool) {
	if ix == nil {
		return models.Record{}, models.Occurrence{}, false
	}
	occ, ok := r.scanner.At(req.Text, req.Position)
	if !ok {
		return models.Record{}, models.Occurrence{}, false
	}
	rec, ok := ix.Lookup(occ.Slug)
	if !ok {
		return models.Record{}, models.Occurrence{}, false
	}
	return rec, occ, true
}
