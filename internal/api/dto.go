package api

import "github.com/starford/starlinks/internal/models"

// DocumentRequest is the request body for opening or updating a document.
type DocumentRequest struct {
	Path string `json:"path" example:"guides/setup.md" validate:"required"`
	Text string `json:"text" example:"See [the guide](/guides/" validate:"required"`
}

// DocumentResponse echoes the resolved path of an opened document.
type DocumentResponse struct {
	Path string `json:"path" example:"/site/src/content/docs/guides/setup.md" validate:"required"`
}

// PositionRequest is the request body for positional queries.
type PositionRequest struct {
	Path      string `json:"path" example:"guides/setup.md" validate:"required"`
	Line      int    `json:"line" example:"0"`
	Character int    `json:"character" example:"24"`
}

// LinksRequest is the request body for listing the links of a document.
type LinksRequest struct {
	Path string `json:"path" example:"guides/setup.md" validate:"required"`
}

// CompletionResponse wraps completion candidates.
type CompletionResponse struct {
	Items []models.CompletionItem `json:"items" validate:"required"`
}

// LinksResponse wraps the resolvable links of a document.
type LinksResponse struct {
	Links []models.DocumentLink `json:"links" validate:"required"`
}

// SlugsResponse wraps the indexed records.
type SlugsResponse struct {
	Slugs []models.Record `json:"slugs" validate:"required"`
	Total int             `json:"total" example:"42" validate:"required"`
}

// FragmentsResponse wraps the fragments of one document.
type FragmentsResponse struct {
	Slug      string            `json:"slug" example:"/guides/setup" validate:"required"`
	Fragments []models.Fragment `json:"fragments" validate:"required"`
}
