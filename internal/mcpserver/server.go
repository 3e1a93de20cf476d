// Package mcpserver exposes the note graph to LLM clients over the
// Model Context Protocol via stdio transport.
package mcpserver

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/starford/ansuz/internal/api"
)

// Server wraps the MCP server with note graph tools.
type Server struct {
	mcp *server.MCPServer
	svc *api.Service
}

// New creates an MCP server with every tool registered.
func New(svc *api.Service) *Server {
	s := &Server{svc: svc}

	s.mcp = server.NewMCPServer(
		"Ansuz",
		"1.0.0",
		server.WithToolCapabilities(false),
		server.WithResourceCapabilities(false, false),
	)

	s.mcp.AddTool(mcp.NewTool("search_notes",
		mcp.WithDescription("Ranked term search across note titles, tags, and bodies."),
		mcp.WithString("query", mcp.Required(), mcp.Description("Search query string")),
	), s.searchNotes)

	s.mcp.AddTool(mcp.NewTool("read_note",
		mcp.WithDescription("Read a note with its links, backlinks, and checksum. "+
			"Accepts a note identifier or an exact title."),
		mcp.WithString("id", mcp.Description("Note identifier")),
		mcp.WithString("title", mcp.Description("Note title (case-insensitive), used when id is empty")),
	), s.readNote)

	s.mcp.AddTool(mcp.NewTool("create_note",
		mcp.WithDescription("Create a note. The body may contain [[wikilinks]] to other "+
			"notes by title, [[target|alias]] for display aliases, or [[id:<identifier>]] "+
			"for exact references; they resolve to links on save."),
		mcp.WithString("title", mcp.Required(), mcp.Description("Note title")),
		mcp.WithString("body", mcp.Description("Markdown body")),
		mcp.WithString("tags", mcp.Description("Comma-separated tags")),
	), s.createNote)

	s.mcp.AddTool(mcp.NewTool("related_notes",
		mcp.WithDescription("Notes ranked by relevance to the given one: shared tags, "+
			"links, content overlap, and recency all contribute."),
		mcp.WithString("id", mcp.Required(), mcp.Description("Source note identifier")),
	), s.relatedNotes)

	s.mcp.AddTool(mcp.NewTool("get_backlinks",
		mcp.WithDescription("Identifiers of notes that link to the given note."),
		mcp.WithString("id", mcp.Required(), mcp.Description("Target note identifier")),
	), s.getBacklinks)

	s.mcp.AddTool(mcp.NewTool("list_versions",
		mcp.WithDescription("List a note's retained version snapshots, newest first."),
		mcp.WithString("id", mcp.Required(), mcp.Description("Note identifier")),
	), s.listVersions)

	return s
}

// ServeStdio runs the MCP server on stdin/stdout.
func (s *Server) ServeStdio() error {
	return server.ServeStdio(s.mcp)
}

// MCPServer returns the underlying server.
func (s *Server) MCPServer() *server.MCPServer {
	return s.mcp
}

func (s *Server) searchNotes(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	query, err := req.RequireString("query")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	results, err := s.svc.Search(ctx, query, 20)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	out, _ := json.MarshalIndent(results, "", "  ")
	return mcp.NewToolResultText(string(out)), nil
}

func (s *Server) readNote(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	var (
		n   *api.NoteDetail
		err error
	)
	if id := req.GetString("id", ""); id != "" {
		n, err = s.svc.GetNote(ctx, id)
	} else if title := req.GetString("title", ""); title != "" {
		n, err = s.svc.GetNoteByTitle(ctx, title)
	} else {
		return mcp.NewToolResultError("either id or title is required"), nil
	}
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	out, _ := json.MarshalIndent(n, "", "  ")
	return mcp.NewToolResultText(string(out)), nil
}

func (s *Server) createNote(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	title, err := req.RequireString("title")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	d := api.Draft{
		Title: title,
		Body:  req.GetString("body", ""),
	}
	if tags := req.GetString("tags", ""); tags != "" {
		for _, t := range strings.Split(tags, ",") {
			if t = strings.TrimSpace(t); t != "" {
				d.Tags = append(d.Tags, t)
			}
		}
	}

	n, err := s.svc.CreateNote(ctx, d)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return mcp.NewToolResultText(fmt.Sprintf("created: %s", n.ID)), nil
}

func (s *Server) relatedNotes(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	id, err := req.RequireString("id")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	related, err := s.svc.Related(ctx, id, 10)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	out, _ := json.MarshalIndent(related, "", "  ")
	return mcp.NewToolResultText(string(out)), nil
}

func (s *Server) getBacklinks(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	id, err := req.RequireString("id")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	bl, err := s.svc.Backlinks(ctx, id)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	if len(bl) == 0 {
		return mcp.NewToolResultText("no backlinks found"), nil
	}
	return mcp.NewToolResultText(strings.Join(bl, "\n")), nil
}

func (s *Server) listVersions(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	id, err := req.RequireString("id")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	versions, err := s.svc.ListVersions(ctx, id)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	out, _ := json.MarshalIndent(versions, "", "  ")
	return mcp.NewToolResultText(string(out)), nil
}
