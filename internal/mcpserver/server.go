// Package mcpserver provides an MCP (Model Context Protocol) server
// that exposes Synamic tools for LLM integration via stdio transport.
package mcpserver

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/starford/synamic/internal/apperr"
	"github.com/starford/synamic/internal/contentservice"
)

// FormatURI is the URI of the content format resource.
const FormatURI = "synamic://syd-format"

// Server wraps the MCP server with Synamic tools.
type Server struct {
	mcp *server.MCPServer
	svc *contentservice.Service
}

// New creates a new MCP server with all Synamic tools registered.
func New(svc *contentservice.Service, version string) *Server {
	s := &Server{svc: svc}

	s.mcp = server.NewMCPServer(
		"Synamic",
		version,
		server.WithToolCapabilities(false),
		server.WithResourceCapabilities(false, false),
	)

	s.mcp.AddTool(mcp.NewTool("search_content",
		mcp.WithDescription("Full-text search through titles, bodies and marks of valid content."),
		mcp.WithString("query", mcp.Required(), mcp.Description("Search query string")),
	), s.searchContent)

	s.mcp.AddTool(mcp.NewTool("read_content",
		mcp.WithDescription("Read the raw source of a content file."),
		mcp.WithString("path", mcp.Required(), mcp.Description("Relative path to the content file (e.g. posts/hello.md)")),
	), s.readContent)

	s.mcp.AddTool(mcp.NewTool("resolve_content",
		mcp.WithDescription("Resolve a content file through its model and return the typed fields as JSON, "+
			"or the parse error if the file is invalid."),
		mcp.WithString("path", mcp.Required(), mcp.Description("Relative path to the content file")),
	), s.resolveContent)

	s.mcp.AddTool(mcp.NewTool("create_content",
		mcp.WithDescription("Create a new content file. The source MUST follow the Synamic content format; "+
			"read it first via get_syd_contract or the "+FormatURI+" resource. Invalid sources are rejected."),
		mcp.WithString("path", mcp.Required(), mcp.Description("Relative path for the new file (must end with .md)")),
		mcp.WithString("source", mcp.Required(), mcp.Description("Front matter and body")),
	), s.createContent)

	s.mcp.AddTool(mcp.NewTool("parse_syd",
		mcp.WithDescription("Parse Syd text and return the tree as JSON, or the syntax error with its line."),
		mcp.WithString("text", mcp.Required(), mcp.Description("Syd document")),
	), s.parseSyd)

	s.mcp.AddTool(mcp.NewTool("list_content",
		mcp.WithDescription("List indexed content files, optionally only those carrying a mark."),
		mcp.WithString("mark", mcp.Description("Optional mark key or title to filter by")),
		mcp.WithNumber("limit", mcp.Description("Maximum number of items (default 50)")),
	), s.listContent)

	s.mcp.AddTool(mcp.NewTool("get_syd_contract",
		mcp.WithDescription("Returns the Synamic content format contract. "+
			"Call this before creating content to ensure correct structure."),
	), s.getSydContract)

	s.mcp.AddResource(
		mcp.NewResource(FormatURI, "Content Format Contract",
			mcp.WithResourceDescription("Syd front matter and model format that all content must follow."),
			mcp.WithMIMEType("text/markdown"),
		),
		s.readFormatResource,
	)

	return s
}

// ServeStdio starts the MCP server on stdin/stdout.
func (s *Server) ServeStdio() error {
	return server.ServeStdio(s.mcp)
}

// MCPServer returns the underlying server for testing.
func (s *Server) MCPServer() *server.MCPServer {
	return s.mcp
}

func jsonResult(v any) (*mcp.CallToolResult, error) {
	out, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return mcp.NewToolResultText(string(out)), nil
}

func (s *Server) searchContent(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	query, err := req.RequireString("query")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	results, err := s.svc.Search(ctx, query, 20)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return jsonResult(results)
}

func (s *Server) readContent(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	path, err := req.RequireString("path")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	d, err := s.svc.GetContent(ctx, path)
	if err != nil {
		if errors.Is(err, apperr.ErrNotFound) {
			return mcp.NewToolResultError(fmt.Sprintf("not found: %s", path)), nil
		}
		return mcp.NewToolResultError(err.Error()), nil
	}
	return mcp.NewToolResultText(d.Source), nil
}

func (s *Server) resolveContent(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	path, err := req.RequireString("path")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	d, err := s.svc.GetContent(ctx, path)
	if err != nil {
		if errors.Is(err, apperr.ErrNotFound) {
			return mcp.NewToolResultError(fmt.Sprintf("not found: %s", path)), nil
		}
		return mcp.NewToolResultError(err.Error()), nil
	}
	if d.Error != "" {
		return mcp.NewToolResultError(d.Error), nil
	}
	return jsonResult(map[string]any{
		"path":   d.Path,
		"model":  d.Model,
		"title":  d.Title,
		"fields": d.Fields,
	})
}

func (s *Server) createContent(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	path, err := req.RequireString("path")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	source, err := req.RequireString("source")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	if _, err := s.svc.CreateContent(ctx, path, []byte(source)); err != nil {
		if errors.Is(err, apperr.ErrAlreadyExists) {
			return mcp.NewToolResultError(fmt.Sprintf("content already exists: %s", path)), nil
		}
		return mcp.NewToolResultError(err.Error()), nil
	}
	return mcp.NewToolResultText(fmt.Sprintf("created: %s", path)), nil
}

func (s *Server) parseSyd(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	text, err := req.RequireString("text")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	tree, err := s.svc.ParseSyd(ctx, text)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return jsonResult(tree)
}

func (s *Server) listContent(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	mark := req.GetString("mark", "")
	limit := req.GetInt("limit", 50)

	if mark != "" {
		hits, err := s.svc.ContentsByMark(ctx, mark)
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
		paths := make([]string, 0, len(hits))
		for _, h := range hits {
			paths = append(paths, h.Path)
		}
		return mcp.NewToolResultText(strings.Join(paths, "\n")), nil
	}

	items, _, err := s.svc.ListContents(ctx, limit, 0, "", "path")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	lines := make([]string, 0, len(items))
	for _, it := range items {
		line := it.Path
		if it.Status != "valid" {
			line += " (" + it.Status + ")"
		}
		lines = append(lines, line)
	}
	return mcp.NewToolResultText(strings.Join(lines, "\n")), nil
}

func (s *Server) getSydContract(_ context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return mcp.NewToolResultText(SydFormatContract), nil
}

func (s *Server) readFormatResource(_ context.Context, _ mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
	return []mcp.ResourceContents{
		mcp.TextResourceContents{
			URI:      FormatURI,
			MIMEType: "text/markdown",
			Text:     SydFormatContract,
		},
	}, nil
}
