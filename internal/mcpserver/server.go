// Package mcpserver provides an MCP (Model Context Protocol) server
// that exposes the redis_notes connector as tools over stdio.
package mcpserver

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/starford/redisnotes/internal/apperr"
	"github.com/starford/redisnotes/internal/connector"
)

const searchSyntaxURI = "redisnotes://search-syntax"

// Server wraps the MCP server with note tools.
type Server struct {
	mcp  *server.MCPServer
	conn *connector.Connector
	now  func() time.Time
}

// New creates a new MCP server with all note tools registered.
func New(conn *connector.Connector, version string) *Server {
	s := &Server{conn: conn, now: time.Now}

	s.mcp = server.NewMCPServer(
		"redisnotes",
		version,
		server.WithToolCapabilities(false),
		server.WithResourceCapabilities(false, false),
	)

	s.mcp.AddTool(mcp.NewTool("save_note",
		mcp.WithDescription("Save a note. The timestamp (Unix seconds) identifies the note and defaults to now."),
		mcp.WithString("text", mcp.Required(), mcp.Description("Free-text note body; #hashtags are indexed")),
		mcp.WithNumber("timestamp", mcp.Description("Unix timestamp in seconds")),
	), s.saveNote)

	s.mcp.AddTool(mcp.NewTool("read_note",
		mcp.WithDescription("Read the text of a note by timestamp."),
		mcp.WithNumber("timestamp", mcp.Required(), mcp.Description("Note timestamp")),
	), s.readNote)

	s.mcp.AddTool(mcp.NewTool("update_note",
		mcp.WithDescription("Replace a note's text, optionally moving it to a new timestamp."),
		mcp.WithNumber("timestamp", mcp.Required(), mcp.Description("Current note timestamp")),
		mcp.WithString("text", mcp.Required(), mcp.Description("New note body")),
		mcp.WithNumber("new_timestamp", mcp.Description("New timestamp; defaults to the current one")),
	), s.updateNote)

	s.mcp.AddTool(mcp.NewTool("delete_note",
		mcp.WithDescription("Delete a note by timestamp."),
		mcp.WithNumber("timestamp", mcp.Required(), mcp.Description("Note timestamp")),
	), s.deleteNote)

	s.mcp.AddTool(mcp.NewTool("find_notes",
		mcp.WithDescription("Find notes matching every word, #hashtag and time filter in the query. "+
			"Read the "+searchSyntaxURI+" resource for the query syntax."),
		mcp.WithString("query", mcp.Required(), mcp.Description("Search query, e.g. 'quick #todo year:2013'")),
	), s.findNotes)

	s.mcp.AddTool(mcp.NewTool("list_notes",
		mcp.WithDescription("List the timestamps of all notes, newest first."),
	), s.listNotes)

	s.mcp.AddResource(
		mcp.NewResource(searchSyntaxURI, "Search Syntax",
			mcp.WithResourceDescription("How notes are indexed and how queries are interpreted."),
			mcp.WithMIMEType("text/markdown"),
		),
		s.readSearchSyntax,
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

func (s *Server) requireEnabled() *mcp.CallToolResult {
	if !s.conn.IsEnabled() {
		return mcp.NewToolResultError(apperr.ErrDisabled.Error())
	}
	return nil
}

func requireTimestamp(req mcp.CallToolRequest, key string) (int64, error) {
	v, err := req.RequireFloat(key)
	if err != nil {
		return 0, err
	}
	return int64(v), nil
}

func (s *Server) saveNote(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	if res := s.requireEnabled(); res != nil {
		return res, nil
	}
	text, err := req.RequireString("text")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	ts := int64(req.GetFloat("timestamp", float64(s.now().Unix())))
	if err := s.conn.SaveNote(ctx, ts, text); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return mcp.NewToolResultText(fmt.Sprintf("saved: %d", ts)), nil
}

func (s *Server) readNote(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	if res := s.requireEnabled(); res != nil {
		return res, nil
	}
	ts, err := requireTimestamp(req, "timestamp")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	note, err := s.conn.GetNote(ctx, ts)
	if errors.Is(err, apperr.ErrNotFound) {
		return mcp.NewToolResultError(fmt.Sprintf("not found: %d", ts)), nil
	}
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return mcp.NewToolResultText(note.Text), nil
}

func (s *Server) updateNote(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	if res := s.requireEnabled(); res != nil {
		return res, nil
	}
	oldTS, err := requireTimestamp(req, "timestamp")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	text, err := req.RequireString("text")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	newTS := int64(req.GetFloat("new_timestamp", float64(oldTS)))

	if _, err := s.conn.GetNote(ctx, oldTS); err != nil {
		if errors.Is(err, apperr.ErrNotFound) {
			return mcp.NewToolResultError(fmt.Sprintf("not found: %d", oldTS)), nil
		}
		return mcp.NewToolResultError(err.Error()), nil
	}
	if err := s.conn.UpdateNote(ctx, oldTS, newTS, text); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return mcp.NewToolResultText(fmt.Sprintf("updated: %d", newTS)), nil
}

func (s *Server) deleteNote(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	if res := s.requireEnabled(); res != nil {
		return res, nil
	}
	ts, err := requireTimestamp(req, "timestamp")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	if err := s.conn.DeleteNote(ctx, ts); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return mcp.NewToolResultText(fmt.Sprintf("deleted: %d", ts)), nil
}

func (s *Server) findNotes(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	if res := s.requireEnabled(); res != nil {
		return res, nil
	}
	query, err := req.RequireString("query")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	notes, err := s.conn.SearchNotes(ctx, []string{query})
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	if len(notes) == 0 {
		return mcp.NewToolResultText("no notes found"), nil
	}
	out, _ := json.MarshalIndent(notes, "", "  ")
	return mcp.NewToolResultText(string(out)), nil
}

func (s *Server) listNotes(ctx context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	if res := s.requireEnabled(); res != nil {
		return res, nil
	}
	ids, err := s.conn.ListNotes(ctx)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	lines := make([]string, len(ids))
	for i, id := range ids {
		lines[i] = strconv.FormatInt(id, 10)
	}
	return mcp.NewToolResultText(strings.Join(lines, "\n")), nil
}

func (s *Server) readSearchSyntax(_ context.Context, _ mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
	return []mcp.ResourceContents{
		mcp.TextResourceContents{
			URI:      searchSyntaxURI,
			MIMEType: "text/markdown",
			Text:     SearchSyntax,
		},
	}, nil
}
