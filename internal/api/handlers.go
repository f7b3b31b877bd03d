package api

import "net/http"

// Handler holds API route handlers.
type Handler struct {
	svc *Service
}

// NewHandler creates a new Handler.
func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

// PutDocument handles PUT /api/documents.
//
//	@Summary		Open or update a document
//	@Tags			documents
//	@Accept			json
//	@Produce		json
//	@Param			body	body		DocumentRequest	true	"Document text"
//	@Success		200		{object}	DocumentResponse
//	@Failure		400		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/documents [put]
func (h *Handler) PutDocument(w http.ResponseWriter, r *http.Request) {
	var req DocumentRequest
	if !decode(w, r, &req) {
		return
	}
	abs, err := h.svc.OpenDocument(req.Path, req.Text)
	if err != nil {
		writeError(w, "open document", err)
		return
	}
	writeJSON(w, http.StatusOK, DocumentResponse{Path: abs})
}

// DeleteDocument handles DELETE /api/documents?path=.
//
//	@Summary		Close a document
//	@Tags			documents
//	@Param			path	query	string	true	"Document path"
//	@Success		204		"Document closed"
//	@Failure		400		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/documents [delete]
func (h *Handler) DeleteDocument(w http.ResponseWriter, r *http.Request) {
	if err := h.svc.CloseDocument(r.URL.Query().Get("path")); err != nil {
		writeError(w, "close document", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// Completion handles POST /api/completion.
//
//	@Summary		Complete the link under the cursor
//	@Tags			links
//	@Accept			json
//	@Produce		json
//	@Param			body	body		PositionRequest	true	"Cursor"
//	@Success		200		{object}	CompletionResponse
//	@Failure		503		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/completion [post]
func (h *Handler) Completion(w http.ResponseWriter, r *http.Request) {
	var req PositionRequest
	if !decode(w, r, &req) {
		return
	}
	items, err := h.svc.Completion(req.Path, req.Line, req.Character)
	if err != nil {
		writeError(w, "completion", err)
		return
	}
	writeJSON(w, http.StatusOK, CompletionResponse{Items: items})
}

// Definition handles POST /api/definition.
//
//	@Summary		Resolve the link under the cursor to a file
//	@Tags			links
//	@Accept			json
//	@Produce		json
//	@Param			body	body		PositionRequest	true	"Cursor"
//	@Success		200		{object}	models.Location
//	@Failure		404		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/definition [post]
func (h *Handler) Definition(w http.ResponseWriter, r *http.Request) {
	var req PositionRequest
	if !decode(w, r, &req) {
		return
	}
	loc, err := h.svc.Definition(req.Path, req.Line, req.Character)
	if err != nil {
		writeError(w, "definition", err)
		return
	}
	writeJSON(w, http.StatusOK, loc)
}

// Hover handles POST /api/hover.
//
//	@Summary		Summarise the target of the link under the cursor
//	@Tags			links
//	@Accept			json
//	@Produce		json
//	@Param			body	body		PositionRequest	true	"Cursor"
//	@Success		200		{object}	models.Hover
//	@Failure		404		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/hover [post]
func (h *Handler) Hover(w http.ResponseWriter, r *http.Request) {
	var req PositionRequest
	if !decode(w, r, &req) {
		return
	}
	hv, err := h.svc.Hover(req.Path, req.Line, req.Character)
	if err != nil {
		writeError(w, "hover", err)
		return
	}
	writeJSON(w, http.StatusOK, hv)
}

// Links handles POST /api/links.
//
//	@Summary		List the resolvable links of a document
//	@Tags			links
//	@Accept			json
//	@Produce		json
//	@Param			body	body		LinksRequest	true	"Document"
//	@Success		200		{object}	LinksResponse
//	@Security		BearerAuth
//	@Router			/links [post]
func (h *Handler) Links(w http.ResponseWriter, r *http.Request) {
	var req LinksRequest
	if !decode(w, r, &req) {
		return
	}
	links, err := h.svc.Links(req.Path)
	if err != nil {
		writeError(w, "links", err)
		return
	}
	writeJSON(w, http.StatusOK, LinksResponse{Links: links})
}

// Slugs handles GET /api/slugs.
//
//	@Summary		List every indexed document
//	@Tags			index
//	@Produce		json
//	@Success		200	{object}	SlugsResponse
//	@Failure		503	{object}	errResponse
//	@Security		BearerAuth
//	@Router			/slugs [get]
func (h *Handler) Slugs(w http.ResponseWriter, r *http.Request) {
	recs, err := h.svc.Slugs()
	if err != nil {
		writeError(w, "slugs", err)
		return
	}
	writeJSON(w, http.StatusOK, SlugsResponse{Slugs: recs, Total: len(recs)})
}

// Fragments handles GET /api/fragments?slug=.
//
//	@Summary		List the fragments of an indexed document
//	@Tags			index
//	@Produce		json
//	@Param			slug	query		string	true	"Document slug"
//	@Success		200		{object}	FragmentsResponse
//	@Failure		404		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/fragments [get]
func (h *Handler) Fragments(w http.ResponseWriter, r *http.Request) {
	slug := r.URL.Query().Get("slug")
	if slug == "" {
		writeJSON(w, http.StatusBadRequest, errorBody("query parameter 'slug' is required"))
		return
	}
	frags, err := h.svc.Fragments(slug)
	if err != nil {
		writeError(w, "fragments", err)
		return
	}
	writeJSON(w, http.StatusOK, FragmentsResponse{Slug: slug, Fragments: frags})
}
