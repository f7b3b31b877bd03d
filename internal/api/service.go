package api

import (
	"fmt"
	"path/filepath"

	"github.com/starford/starlinks/internal/apperr"
	"github.com/starford/starlinks/internal/engine"
	"github.com/starford/starlinks/internal/models"
)

// Engine is the part of the link engine the HTTP shell drives.
type Engine interface {
	IsReady() bool
	OpenDocument(path, text string)
	CloseDocument(path string)
	Completion(path string, pos models.Position) []models.CompletionItem
	Definition(path string, pos models.Position) (models.Location, bool)
	Links(path string) []models.DocumentLink
	Hover(path string, pos models.Position) (models.Hover, bool)
	Slugs() []models.Record
	Fragments(slug string) ([]models.Fragment, bool)
}

var _ Engine = (*engine.Engine)(nil)

// Service translates API requests into engine calls. Relative document
// paths are resolved against the content root.
type Service struct {
	eng  Engine
	root string
}

// NewService creates a new API service.
func NewService(eng Engine, root string) *Service {
	return &Service{eng: eng, root: root}
}

// Ready reports whether the link index has been built.
func (s *Service) Ready() bool { return s.eng.IsReady() }

func (s *Service) resolve(path string) (string, error) {
	if path == "" {
		return "", fmt.Errorf("api: empty path: %w", apperr.ErrInvalidPath)
	}
	if !filepath.IsAbs(path) {
		path = filepath.Join(s.root, filepath.FromSlash(path))
	}
	return filepath.Clean(path), nil
}

func (s *Service) position(path string, line, character int) (string, models.Position, error) {
	abs, err := s.resolve(path)
	if err != nil {
		return "", models.Position{}, err
	}
	if line < 0 || character < 0 {
		return "", models.Position{}, fmt.Errorf("api: %d:%d: %w", line, character, apperr.ErrInvalidPosition)
	}
	if !s.eng.IsReady() {
		return "", models.Position{}, apperr.ErrNotReady
	}
	return abs, models.Position{Line: line, Character: character}, nil
}

// OpenDocument adds or replaces the text of an open document.
func (s *Service) OpenDocument(path, text string) (string, error) {
	abs, err := s.resolve(path)
	if err != nil {
		return "", err
	}
	s.eng.OpenDocument(abs, text)
	return abs, nil
}

// CloseDocument removes a document from the open set.
func (s *Service) CloseDocument(path string) error {
	abs, err := s.resolve(path)
	if err != nil {
		return err
	}
	s.eng.CloseDocument(abs)
	return nil
}

// Completion returns link completions at the given position.
func (s *Service) Completion(path string, line, character int) ([]models.CompletionItem, error) {
	abs, pos, err := s.position(path, line, character)
	if err != nil {
		return nil, err
	}
	items := s.eng.Completion(abs, pos)
	if items == nil {
		items = []models.CompletionItem{}
	}
	return items, nil
}

// Definition returns the target of the link at the given position.
func (s *Service) Definition(path string, line, character int) (models.Location, error) {
	abs, pos, err := s.position(path, line, character)
	if err != nil {
		return models.Location{}, err
	}
	loc, ok := s.eng.Definition(abs, pos)
	if !ok {
		return models.Location{}, apperr.ErrNotFound
	}
	return loc, nil
}

// Hover returns the summary of the link target at the given position.
func (s *Service) Hover(path string, line, character int) (models.Hover, error) {
	abs, pos, err := s.position(path, line, character)
	if err != nil {
		return models.Hover{}, err
	}
	h, ok := s.eng.Hover(abs, pos)
	if !ok {
		return models.Hover{}, apperr.ErrNotFound
	}
	return h, nil
}

// Links returns the resolvable links of an open document.
func (s *Service) Links(path string) ([]models.DocumentLink, error) {
	abs, err := s.resolve(path)
	if err != nil {
		return nil, err
	}
	if !s.eng.IsReady() {
		return nil, apperr.ErrNotReady
	}
	links := s.eng.Links(abs)
	if links == nil {
		links = []models.DocumentLink{}
	}
	return links, nil
}

// Slugs returns every indexed record.
func (s *Service) Slugs() ([]models.Record, error) {
	if !s.eng.IsReady() {
		return nil, apperr.ErrNotReady
	}
	recs := s.eng.Slugs()
	if recs == nil {
		recs = []models.Record{}
	}
	return recs, nil
}

// Fragments returns the fragments of the document indexed under slug.
func (s *Service) Fragments(slug string) ([]models.Fragment, error) {
	if !s.eng.IsReady() {
		return nil, apperr.ErrNotReady
	}
	frags, ok := s.eng.Fragments(slug)
	if !ok {
		return nil, apperr.ErrNotFound
	}
	return frags, nil
}
