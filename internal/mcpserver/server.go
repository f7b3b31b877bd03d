// Package mcpserver provides an MCP (Model Context Protocol) server
// that exposes the starlinks engine as tools over stdio transport.
package mcpserver

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"path/filepath"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/starford/starlinks/internal/engine"
	"github.com/starford/starlinks/internal/models"
	"github.com/starford/starlinks/internal/storage"
)

// SlugsURI is the resource listing every indexed document.
const SlugsURI = "starlinks://slugs"

// Engine is the part of the link engine the MCP tools use.
type Engine interface {
	IsReady() bool
	CompletionFor(path, text string, pos models.Position) []models.CompletionItem
	DefinitionFor(path, text string, pos models.Position) (models.Location, bool)
	LinksFor(path, text string) []models.DocumentLink
	HoverFor(path, text string, pos models.Position) (models.Hover, bool)
	Slugs() []models.Record
	Fragments(slug string) ([]models.Fragment, bool)
}

var _ Engine = (*engine.Engine)(nil)

// Server wraps the MCP server with the starlinks tools.
type Server struct {
	mcp    *server.MCPServer
	eng    Engine
	store  storage.Provider
	logger *slog.Logger
}

// New creates a new MCP server with all tools registered.
func New(eng Engine, store storage.Provider, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	s := &Server{eng: eng, store: store, logger: logger}

	s.mcp = server.NewMCPServer(
		"starlinks",
		"1.0.0",
		server.WithToolCapabilities(false),
		server.WithResourceCapabilities(false, false),
	)

	s.mcp.AddTool(mcp.NewTool("complete_link",
		mcp.WithDescription("Complete the internal link being typed at a position. "+
			"Returns slug candidates, or heading fragments after '#'."),
		documentArgs(),
		mcp.WithNumber("line", mcp.Required(), mcp.Description("Zero-based line")),
		mcp.WithNumber("character", mcp.Required(), mcp.Description("Zero-based UTF-16 column")),
	), s.completeLink)

	s.mcp.AddTool(mcp.NewTool("find_definition",
		mcp.WithDescription("Resolve the link at a position to the file it points to."),
		documentArgs(),
		mcp.WithNumber("line", mcp.Required(), mcp.Description("Zero-based line")),
		mcp.WithNumber("character", mcp.Required(), mcp.Description("Zero-based UTF-16 column")),
	), s.findDefinition)

	s.mcp.AddTool(mcp.NewTool("hover_link",
		mcp.WithDescription("Summarise the document the link at a position points to."),
		documentArgs(),
		mcp.WithNumber("line", mcp.Required(), mcp.Description("Zero-based line")),
		mcp.WithNumber("character", mcp.Required(), mcp.Description("Zero-based UTF-16 column")),
	), s.hoverLink)

	s.mcp.AddTool(mcp.NewTool("document_links",
		mcp.WithDescription("List every link in a document whose target is an indexed page."),
		documentArgs(),
	), s.documentLinks)

	s.mcp.AddTool(mcp.NewTool("list_slugs",
		mcp.WithDescription("List every indexed page with its slug, locale and title."),
	), s.listSlugs)

	s.mcp.AddTool(mcp.NewTool("list_fragments",
		mcp.WithDescription("List the heading and anchor fragments of an indexed page."),
		mcp.WithString("slug", mcp.Required(), mcp.Description("Page slug (e.g. /guides/setup)")),
	), s.listFragments)

	s.mcp.AddTool(mcp.NewTool("get_link_syntax",
		mcp.WithDescription("Returns the link syntaxes recognised in Markdown and MDX pages."),
	), s.getLinkSyntax)

	s.mcp.AddResource(
		mcp.NewResource(SlugsURI, "Indexed pages",
			mcp.WithResourceDescription("Every indexed page as a JSON array of records."),
			mcp.WithMIMEType("application/json"),
		),
		s.readSlugsResource,
	)

	s.mcp.AddResource(
		mcp.NewResource(LinkSyntaxURI, "Link syntax",
			mcp.WithResourceDescription("Link syntaxes recognised in Markdown and MDX pages."),
			mcp.WithMIMEType("text/markdown"),
		),
		s.readLinkSyntaxResource,
	)

	return s
}

// documentArgs declares the path and optional text of the queried document.
func documentArgs() mcp.ToolOption {
	return func(t *mcp.Tool) {
		mcp.WithString("path", mcp.Required(),
			mcp.Description("Page path, absolute or relative to the content root (e.g. guides/setup.md)"))(t)
		mcp.WithString("text",
			mcp.Description("Current page text; the file on disk is used when omitted"))(t)
	}
}

// ServeStdio starts the MCP server on stdin/stdout.
func (s *Server) ServeStdio() error {
	return server.ServeStdio(s.mcp)
}

// MCPServer returns the underlying server for testing.
func (s *Server) MCPServer() *server.MCPServer {
	return s.mcp
}

// withDocument resolves the requested page and its text and passes both to
// fn. The text is queried directly; the engine's open documents are left
// alone.
func (s *Server) withDocument(req mcp.CallToolRequest, fn func(path, text string) *mcp.CallToolResult) *mcp.CallToolResult {
	if !s.eng.IsReady() {
		return mcp.NewToolResultError("index not ready")
	}
	p, err := req.RequireString("path")
	if err != nil {
		return mcp.NewToolResultError(err.Error())
	}
	rel, abs, err := s.resolve(p)
	if err != nil {
		return mcp.NewToolResultError(err.Error())
	}

	text := req.GetString("text", "")
	if text == "" {
		data, err := s.store.Read(rel)
		if err != nil {
			s.logger.Debug("mcp: read document failed",
				slog.String("path", p),
				slog.String("error", err.Error()))
			return mcp.NewToolResultError(fmt.Sprintf("not found: %s", p))
		}
		text = string(data)
	}

	return fn(abs, text)
}

func (s *Server) resolve(p string) (string, string, error) {
	if filepath.IsAbs(p) {
		rel, err := s.store.Rel(p)
		if err != nil {
			return "", "", err
		}
		return rel, filepath.Clean(p), nil
	}
	abs, err := s.store.Abs(p)
	if err != nil {
		return "", "", err
	}
	return p, abs, nil
}

func position(req mcp.CallToolRequest) (models.Position, error) {
	line, err := req.RequireInt("line")
	if err != nil {
		return models.Position{}, err
	}
	character, err := req.RequireInt("character")
	if err != nil {
		return models.Position{}, err
	}
	if line < 0 || character < 0 {
		return models.Position{}, fmt.Errorf("invalid position %d:%d", line, character)
	}
	return models.Position{Line: line, Character: character}, nil
}

func jsonResult(v any) *mcp.CallToolResult {
	out, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return mcp.NewToolResultError(err.Error())
	}
	return mcp.NewToolResultText(string(out))
}

func (s *Server) completeLink(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	pos, err := position(req)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return s.withDocument(req, func(path, text string) *mcp.CallToolResult {
		items := s.eng.CompletionFor(path, text, pos)
		if items == nil {
			items = []models.CompletionItem{}
		}
		return jsonResult(items)
	}), nil
}

func (s *Server) findDefinition(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	pos, err := position(req)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return s.withDocument(req, func(path, text string) *mcp.CallToolResult {
		loc, ok := s.eng.DefinitionFor(path, text, pos)
		if !ok {
			return mcp.NewToolResultText("no indexed link at position")
		}
		return jsonResult(loc)
	}), nil
}

func (s *Server) hoverLink(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	pos, err := position(req)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return s.withDocument(req, func(path, text string) *mcp.CallToolResult {
		h, ok := s.eng.HoverFor(path, text, pos)
		if !ok {
			return mcp.NewToolResultText("no indexed link at position")
		}
		return mcp.NewToolResultText(h.Markdown)
	}), nil
}

func (s *Server) documentLinks(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return s.withDocument(req, func(path, text string) *mcp.CallToolResult {
		links := s.eng.LinksFor(path, text)
		if links == nil {
			links = []models.DocumentLink{}
		}
		return jsonResult(links)
	}), nil
}

func (s *Server) listSlugs(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	if !s.eng.IsReady() {
		return mcp.NewToolResultError("index not ready"), nil
	}
	recs := s.eng.Slugs()
	if recs == nil {
		recs = []models.Record{}
	}
	return jsonResult(recs), nil
}

func (s *Server) listFragments(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	slug, err := req.RequireString("slug")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	if !s.eng.IsReady() {
		return mcp.NewToolResultError("index not ready"), nil
	}
	frags, ok := s.eng.Fragments(slug)
	if !ok {
		return mcp.NewToolResultError(fmt.Sprintf("not indexed: %s", slug)), nil
	}
	return jsonResult(frags), nil
}

func (s *Server) getLinkSyntax(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return mcp.NewToolResultText(LinkSyntax), nil
}

func (s *Server) readSlugsResource(ctx context.Context, req mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
	if !s.eng.IsReady() {
		return nil, fmt.Errorf("mcpserver: read %s: index not ready", SlugsURI)
	}
	recs := s.eng.Slugs()
	if recs == nil {
		recs = []models.Record{}
	}
	out, err := json.Marshal(recs)
	if err != nil {
		return nil, fmt.Errorf("mcpserver: read %s: %w", SlugsURI, err)
	}
	return []mcp.ResourceContents{
		mcp.TextResourceContents{
			URI:      SlugsURI,
			MIMEType: "application/json",
			Text:     string(out),
		},
	}, nil
}

func (s *Server) readLinkSyntaxResource(ctx context.Context, req mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
	return []mcp.ResourceContents{
		mcp.TextResourceContents{
			URI:      LinkSyntaxURI,
			MIMEType: "text/markdown",
			Text:     LinkSyntax,
		},
	}, nil
}
