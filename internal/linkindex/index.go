// Package linkindex maintains the slug → document record map of a content
// tree: a full build at startup plus incremental create/delete updates.
package linkindex

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"sort"
	"strings"

	"golang.org/x/sync/errgroup"

	"github.com/starford/starlinks/internal/frontmatter"
	"github.com/starford/starlinks/internal/models"
	"github.com/starford/starlinks/internal/slug"
	"github.com/starford/starlinks/internal/storage"
)

// readLimit bounds concurrent front matter reads during a build.
const readLimit = 10

// ErrNotContent is returned for files that are not indexable pages.
var ErrNotContent = errors.New("linkindex: not a content page")

// Index maps slugs to document records. Mutating methods are not safe for
// concurrent use; the owner serialises them. Derive and Collect only read
// immutable configuration and may run on any goroutine.
type Index struct {
	project models.Project
	store   storage.Provider
	logger  *slog.Logger

	records map[string]models.Record
	byPath  map[string]string // absolute path → slug
}

// New creates an empty index over store.
func New(project models.Project, store storage.Provider, logger *slog.Logger) *Index {
	if logger == nil {
		logger = slog.Default()
	}
	return &Index{
		project: project,
		store:   store,
		logger:  logger,
		records: make(map[string]models.Record),
		byPath:  make(map[string]string),
	}
}

// Project returns the project context the index was created with.
func (ix *Index) Project() models.Project { return ix.project }

// Derive builds the record for the file at abs from its front matter and
// location. Only the front matter prefix of the file is read.
func (ix *Index) Derive(abs string) (models.Record, error) {
	rel, err := ix.store.Rel(abs)
	if err != nil {
		return models.Record{}, err
	}
	if !storage.IsContent(rel) {
		return models.Record{}, fmt.Errorf("%w: %s", ErrNotContent, rel)
	}
	return ix.derive(rel)
}

func (ix *Index) derive(rel string) (models.Record, error) {
	abs, err := ix.store.Abs(rel)
	if err != nil {
		return models.Record{}, err
	}

	rc, err := ix.store.Open(rel)
	if err != nil {
		return models.Record{}, err
	}
	defer rc.Close()

	fm, err := frontmatter.Read(rc)
	if err != nil {
		return models.Record{}, fmt.Errorf("linkindex: %s: %w", rel, err)
	}

	rec := models.Record{Path: abs}
	if fm != nil {
		rec.Title = fm.Title
		rec.Description = fm.Description
	}
	if fm != nil && strings.TrimSpace(fm.Slug) != "" {
		rec.Slug = slug.Join(ix.project.Base, strings.TrimSpace(fm.Slug), ix.project.TrailingSlash)
	} else {
		rec.Slug = slug.FromPath(rel, ix.project.TrailingSlash, ix.project.Base)
	}
	rec.Locale = Locale(ix.project, rec.Slug)
	return rec, nil
}

// Locale returns the locale of a slug: its first path segment after the
// base, when the project is multilingual and the segment is a configured
// locale. Otherwise it returns "".
func Locale(project models.Project, s string) string {
	if !project.Multilingual || len(project.Locales) == 0 {
		return ""
	}
	rest := strings.TrimPrefix(slug.TrimBase(s, project.Base), "/")
	first, _, _ := strings.Cut(rest, "/")
	if first == "" {
		return ""
	}
	if _, ok := project.Locales[first]; ok {
		return first
	}
	return ""
}

// Collect enumerates the content tree and derives every record with a
// bounded number of concurrent reads. Files that cannot be read or whose
// front matter is malformed are skipped. Records are returned in path order.
func (ix *Index) Collect(ctx context.Context) ([]models.Record, error) {
	paths, err := ix.store.List()
	if err != nil {
		return nil, err
	}

	results := make([]*models.Record, len(paths))
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(readLimit)

	for i, rel := range paths {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			rec, err := ix.derive(rel)
			if err != nil {
				ix.logger.Debug("linkindex: skipped",
					slog.String("path", rel),
					slog.String("error", err.Error()))
				return nil
			}
			results[i] = &rec
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	out := make([]models.Record, 0, len(results))
	for _, r := range results {
		if r != nil {
			out = append(out, *r)
		}
	}
	return out, nil
}

// Build collects the whole tree and merges it into the index.
func (ix *Index) Build(ctx context.Context) error {
	recs, err := ix.Collect(ctx)
	if err != nil {
		return err
	}
	ix.Merge(recs)
	ix.logger.Info("linkindex: built", slog.Int("records", len(ix.records)))
	return nil
}

// Merge stores every record, in order.
func (ix *Index) Merge(recs []models.Record) {
	for _, r := range recs {
		ix.Put(r)
	}
}

// Put stores rec under its slug, replacing any record with the same slug
// and any record previously derived from the same file.
func (ix *Index) Put(rec models.Record) {
	if old, ok := ix.byPath[rec.Path]; ok && old != rec.Slug {
		delete(ix.records, old)
	}
	if prev, ok := ix.records[rec.Slug]; ok && prev.Path != rec.Path {
		delete(ix.byPath, prev.Path)
	}
	ix.records[rec.Slug] = rec
	ix.byPath[rec.Path] = rec.Slug
}

// OnCreate derives the record for a newly created file and stores it.
func (ix *Index) OnCreate(abs string) (models.Record, error) {
	rec, err := ix.Derive(abs)
	if err != nil {
		return models.Record{}, err
	}
	ix.Put(rec)
	return rec, nil
}

// OnDelete removes the record derived from the file at abs. Matching is by
// file location, never by a freshly computed slug.
func (ix *Index) OnDelete(abs string) (models.Record, bool) {
	abs = filepath.Clean(abs)
	s, ok := ix.byPath[abs]
	if !ok {
		return models.Record{}, false
	}
	rec := ix.records[s]
	delete(ix.records, s)
	delete(ix.byPath, abs)
	return rec, true
}

// Lookup returns the record for a link slug. A slug that only differs from
// an indexed one by its trailing slash still resolves.
func (ix *Index) Lookup(s string) (models.Record, bool) {
	if s == "" {
		return models.Record{}, false
	}
	if rec, ok := ix.records[s]; ok {
		return rec, true
	}
	alt := s + "/"
	if strings.HasSuffix(s, "/") {
		alt = strings.TrimRight(s, "/")
	}
	if alt == "" {
		return models.Record{}, false
	}
	rec, ok := ix.records[alt]
	return rec, ok
}

// FindByPath returns the record derived from the file at abs.
func (ix *Index) FindByPath(abs string) (models.Record, bool) {
	s, ok := ix.byPath[filepath.Clean(abs)]
	if !ok {
		return models.Record{}, false
	}
	return ix.records[s], true
}

// Records returns a snapshot of all records sorted by slug.
func (ix *Index) Records() []models.Record {
	out := make([]models.Record, 0, len(ix.records))
	for _, r := range ix.records {
		out = append(out, r)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Slug < out[j].Slug })
	return out
}

// Len returns the number of indexed records.
func (ix *Index) Len() int { return len(ix.records) }

// SlugForPath returns the slug the file at abs gets from its location
// alone, without reading it. ok is false for files outside the root.
func (ix *Index) SlugForPath(abs string) (string, bool) {
	rel, err := ix.store.Rel(abs)
	if err != nil {
		return "", false
	}
	return slug.FromPath(rel, ix.project.TrailingSlash, ix.project.Base), true
}
