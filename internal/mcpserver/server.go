// Package mcpserver provides an MCP (Model Context Protocol) server
// that exposes offnote tools for LLM integration via stdio transport.
package mcpserver

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/starford/offnote/internal/apperr"
	"github.com/starford/offnote/internal/noteservice"
	"github.com/starford/offnote/internal/parser"
)

const formatURI = "offnote://note-format"

// Server wraps the MCP server with offnote tools.
type Server struct {
	mcp *server.MCPServer
	svc *noteservice.Service
}

// New creates a new MCP server with all offnote tools registered.
func New(svc *noteservice.Service) *Server {
	s := &Server{svc: svc}

	s.mcp = server.NewMCPServer(
		"offnote",
		"1.0.0",
		server.WithToolCapabilities(false),
		server.WithResourceCapabilities(false, false),
	)

	s.mcp.AddTool(mcp.NewTool("list_notes",
		mcp.WithDescription("List every local note with its id, title and sync status."),
	), s.listNotes)

	s.mcp.AddTool(mcp.NewTool("search_notes",
		mcp.WithDescription("Case-insensitive search through note titles and content."),
		mcp.WithString("query", mcp.Required(), mcp.Description("Search query string")),
	), s.searchNotes)

	s.mcp.AddTool(mcp.NewTool("read_note",
		mcp.WithDescription("Read a note as a Markdown file with its frontmatter."),
		mcp.WithString("id", mcp.Required(), mcp.Description("Note id (UUID)")),
	), s.readNote)

	s.mcp.AddTool(mcp.NewTool("create_note",
		mcp.WithDescription("Create a note locally. It is pushed to the server on the next sync. "+
			"See the "+formatURI+" resource for how notes are stored."),
		mcp.WithString("title", mcp.Description("Note title; blank gives the default title")),
		mcp.WithString("content", mcp.Required(), mcp.Description("Markdown body without frontmatter")),
	), s.createNote)

	s.mcp.AddTool(mcp.NewTool("update_note",
		mcp.WithDescription("Edit a note's title or content. Omitted fields are left unchanged."),
		mcp.WithString("id", mcp.Required(), mcp.Description("Note id (UUID)")),
		mcp.WithString("title", mcp.Description("New title")),
		mcp.WithString("content", mcp.Description("New Markdown body")),
	), s.updateNote)

	s.mcp.AddTool(mcp.NewTool("sync_now",
		mcp.WithDescription("Run a full sync pass: pull server changes, then push local edits. "+
			"Skipped when offline or when a pass is already running."),
	), s.syncNow)

	s.mcp.AddTool(mcp.NewTool("sync_status",
		mcp.WithDescription("Report connectivity and the sync status of every tracked note."),
	), s.syncStatus)

	s.mcp.AddTool(mcp.NewTool("get_note_contract",
		mcp.WithDescription("Returns the offnote note and sync contract."),
	), s.getNoteContract)

	// Resource: note format contract.
	s.mcp.AddResource(
		mcp.NewResource(formatURI, "Note Format Contract",
			mcp.WithResourceDescription("How offnote stores, mirrors and syncs notes."),
			mcp.WithMIMEType("text/markdown"),
		),
		s.readNoteFormatResource,
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

type noteSummary struct {
	ID     string `json:"id"`
	Title  string `json:"title"`
	Status string `json:"status"`
}

func summaries(views []noteservice.NoteView) []noteSummary {
	out := make([]noteSummary, len(views))
	for i, v := range views {
		out[i] = noteSummary{ID: v.ID, Title: v.Title, Status: string(v.Status)}
	}
	return out
}

func jsonResult(v any) *mcp.CallToolResult {
	out, _ := json.MarshalIndent(v, "", "  ")
	return mcp.NewToolResultText(string(out))
}

func errResult(id string, err error) *mcp.CallToolResult {
	if errors.Is(err, apperr.ErrNotFound) {
		return mcp.NewToolResultError(fmt.Sprintf("not found: %s", id))
	}
	return mcp.NewToolResultError(err.Error())
}

func (s *Server) listNotes(ctx context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	views, err := s.svc.ListNotes(ctx)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return jsonResult(summaries(views)), nil
}

func (s *Server) searchNotes(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	query, err := req.RequireString("query")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	views, err := s.svc.Search(ctx, query)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return jsonResult(summaries(views)), nil
}

func (s *Server) readNote(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	id, err := req.RequireString("id")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	v, err := s.svc.GetNote(ctx, id)
	if err != nil {
		return errResult(id, err), nil
	}
	data, err := parser.Render(v.Note)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return mcp.NewToolResultText(string(data)), nil
}

func (s *Server) createNote(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	content, err := req.RequireString("content")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	v, err := s.svc.CreateNote(ctx, req.GetString("title", ""), content)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return mcp.NewToolResultText(fmt.Sprintf("created: %s", v.ID)), nil
}

func (s *Server) updateNote(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	id, err := req.RequireString("id")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	title := optionalString(req, "title")
	content := optionalString(req, "content")
	if title == nil && content == nil {
		return mcp.NewToolResultError("title or content is required"), nil
	}
	v, err := s.svc.UpdateNote(ctx, id, title, content)
	if err != nil {
		return errResult(id, err), nil
	}
	return mcp.NewToolResultText(fmt.Sprintf("updated: %s (%s)", v.ID, v.Status)), nil
}

func (s *Server) syncNow(ctx context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return jsonResult(s.svc.SyncAll(ctx)), nil
}

func (s *Server) syncStatus(_ context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return jsonResult(s.svc.Status()), nil
}

func (s *Server) getNoteContract(_ context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return mcp.NewToolResultText(NoteFormatContract), nil
}

func (s *Server) readNoteFormatResource(_ context.Context, _ mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
	return []mcp.ResourceContents{
		mcp.TextResourceContents{
			URI:      formatURI,
			MIMEType: "text/markdown",
			Text:     NoteFormatContract,
		},
	}, nil
}

// optionalString returns nil when key is absent, so an explicit empty string
// is still an edit.
func optionalString(req mcp.CallToolRequest, key string) *string {
	v, ok := req.GetArguments()[key].(string)
	if !ok {
		return nil
	}
	return &v
}
