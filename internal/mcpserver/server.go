// Package mcpserver provides an MCP (Model Context Protocol) server that
// exposes raido's note and task tools for LLM integration via stdio
// transport.
package mcpserver

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/soltvedt/raido/internal/engine"
	"github.com/soltvedt/raido/internal/index"
	"github.com/soltvedt/raido/internal/resolve"
)

// Server wraps the MCP server with raido tools.
type Server struct {
	mcp *server.MCPServer
	eng *engine.Engine
	db  *index.DB
}

// New creates a new MCP server with all raido tools registered. db may be
// nil when the content index is disabled; search and backlink tools then
// report an error instead of results.
func New(eng *engine.Engine, db *index.DB) *Server {
	s := &Server{eng: eng, db: db}

	s.mcp = server.NewMCPServer(
		"Raido",
		"1.0.0",
		server.WithToolCapabilities(false),
		server.WithResourceCapabilities(false, false),
	)

	s.mcp.AddTool(mcp.NewTool("resolve_note",
		mcp.WithDescription("Resolve a short note reference (e.g. '22', '20260212/some', "+
			"'222714-fix') to the matching note path(s)."),
		mcp.WithString("ref", mcp.Required(), mcp.Description("Note reference string")),
	), s.resolveNote)

	s.mcp.AddTool(mcp.NewTool("read_note",
		mcp.WithDescription("Resolve a note reference and return the note's content. "+
			"Fails when the reference is ambiguous."),
		mcp.WithString("ref", mcp.Required(), mcp.Description("Note reference string")),
	), s.readNote)

	s.mcp.AddTool(mcp.NewTool("create_daily_note",
		mcp.WithDescription("Create a timestamped note in today's daily directory."),
		mcp.WithString("title", mcp.Description("Optional note title")),
		mcp.WithString("content", mcp.Description("Markdown body")),
	), s.createDailyNote)

	s.mcp.AddTool(mcp.NewTool("search_notes",
		mcp.WithDescription("Full-text search through note content and titles."),
		mcp.WithString("query", mcp.Required(), mcp.Description("Search query string")),
	), s.searchNotes)

	s.mcp.AddTool(mcp.NewTool("get_backlinks",
		mcp.WithDescription("Find all notes that link to the note matching a reference."),
		mcp.WithString("ref", mcp.Required(), mcp.Description("Note reference string")),
	), s.getBacklinks)

	s.mcp.AddTool(mcp.NewTool("task_add",
		mcp.WithDescription("Record a note reference in the task ledger and return its task id. "+
			"Idempotent for an already-recorded reference."),
		mcp.WithString("ref", mcp.Required(), mcp.Description("Note reference to track")),
	), s.taskAdd)

	s.mcp.AddTool(mcp.NewTool("task_take",
		mcp.WithDescription("Claim a task: promote it into the ledger body and assign it to "+
			"the current agent identity. Fails when the task is already owned."),
		mcp.WithString("id", mcp.Required(), mcp.Description("Task id, e.g. task-3")),
		mcp.WithString("title", mcp.Description("Optional display title")),
		mcp.WithString("header", mcp.Description("Optional ledger heading to file the task under")),
	), s.taskTake)

	s.mcp.AddTool(mcp.NewTool("task_comment",
		mcp.WithDescription("Append a timestamped comment to an in-progress task."),
		mcp.WithString("id", mcp.Required(), mcp.Description("Task id")),
		mcp.WithString("text", mcp.Required(), mcp.Description("Comment text")),
		mcp.WithString("git_hash", mcp.Description("Optional short git hash reference")),
	), s.taskComment)

	s.mcp.AddTool(mcp.NewTool("task_release",
		mcp.WithDescription("Release ownership of a task, optionally marking it done."),
		mcp.WithString("id", mcp.Required(), mcp.Description("Task id")),
		mcp.WithBoolean("done", mcp.Description("Also mark the task done")),
	), s.taskRelease)

	s.mcp.AddTool(mcp.NewTool("task_list",
		mcp.WithDescription("List all ledger tasks with status, owner, and note reference."),
	), s.taskList)

	s.mcp.AddTool(mcp.NewTool("upload_asset",
		mcp.WithDescription("Download an asset from an HTTP(S) URL or decode a data URI and "+
			"store it in the capsa's asset directory. Returns a markdown image link."),
		mcp.WithString("url", mcp.Required(), mcp.Description("HTTP(S) URL or base64 data URI")),
		mcp.WithString("filename", mcp.Description("Optional target filename")),
	), s.uploadAsset)

	s.mcp.AddTool(mcp.NewTool("get_task_format",
		mcp.WithDescription("Returns the canonical task ledger format. Call this before "+
			"editing the ledger file directly."),
	), s.getTaskFormat)

	// Resource: task ledger format contract.
	s.mcp.AddResource(
		mcp.NewResource("raido://task-format", "Task Ledger Format",
			mcp.WithResourceDescription("Canonical task ledger document format."),
			mcp.WithMIMEType("text/markdown"),
		),
		s.readTaskFormatResource,
	)

	return s
}

// ServeStdio starts the MCP server on stdin/stdout.
func (s *Server) ServeStdio() error {
	return server.ServeStdio(s.mcp)
}

// Listen serves MCP over the given streams until ctx is cancelled or the
// input closes.
func (s *Server) Listen(ctx context.Context, in io.Reader, out io.Writer) error {
	return server.NewStdioServer(s.mcp).Listen(ctx, in, out)
}

// MCPServer returns the underlying server for testing.
func (s *Server) MCPServer() *server.MCPServer {
	return s.mcp
}

func (s *Server) resolveNote(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	ref, err := req.RequireString("ref")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	out, err := s.eng.Resolve(ref)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	switch out.State() {
	case resolve.NotFound:
		return mcp.NewToolResultError(fmt.Sprintf("no note matches %q", ref)), nil
	case resolve.Unique:
		p, _ := out.UniquePath()
		return mcp.NewToolResultText(p), nil
	default:
		return mcp.NewToolResultText("ambiguous:\n" + strings.Join(out.Paths(), "\n")), nil
	}
}

func (s *Server) readNote(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	ref, err := req.RequireString("ref")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	_, data, err := s.eng.ReadNote(ref)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return mcp.NewToolResultText(string(data)), nil
}

func (s *Server) createDailyNote(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	title := req.GetString("title", "")
	content := req.GetString("content", "")
	p, err := s.eng.CreateDailyNote(title, content)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return mcp.NewToolResultText(fmt.Sprintf("created: %s", p)), nil
}

func (s *Server) searchNotes(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	query, err := req.RequireString("query")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	if s.db == nil {
		return mcp.NewToolResultError("content index is disabled"), nil
	}
	results, err := s.db.Search(query, 20)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	out, _ := json.MarshalIndent(results, "", "  ")
	return mcp.NewToolResultText(string(out)), nil
}

func (s *Server) getBacklinks(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	ref, err := req.RequireString("ref")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	if s.db == nil {
		return mcp.NewToolResultError("content index is disabled"), nil
	}
	out, err := s.eng.Resolve(ref)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	p, ok := out.UniquePath()
	if !ok {
		return mcp.NewToolResultError(fmt.Sprintf("reference %q did not resolve to one note", ref)), nil
	}
	bl, err := s.db.Backlinks(p)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	if len(bl) == 0 {
		return mcp.NewToolResultText("no backlinks found"), nil
	}
	return mcp.NewToolResultText(strings.Join(bl, "\n")), nil
}

func (s *Server) taskAdd(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	ref, err := req.RequireString("ref")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	id, err := s.eng.TaskAdd(ref)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return mcp.NewToolResultText(id), nil
}

func (s *Server) taskTake(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	id, err := req.RequireString("id")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	title := req.GetString("title", "")
	header := req.GetString("header", "")
	if err := s.eng.TaskTake(id, title, header); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return mcp.NewToolResultText(fmt.Sprintf("taken: %s", id)), nil
}

func (s *Server) taskComment(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	id, err := req.RequireString("id")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	text, err := req.RequireString("text")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	gitHash := req.GetString("git_hash", "")
	if err := s.eng.TaskComment(id, text, gitHash); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return mcp.NewToolResultText(fmt.Sprintf("commented: %s", id)), nil
}

func (s *Server) taskRelease(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	id, err := req.RequireString("id")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	done := req.GetBool("done", false)
	if err := s.eng.TaskRelease([]string{id}, done, false); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return mcp.NewToolResultText(fmt.Sprintf("released: %s", id)), nil
}

func (s *Server) taskList(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	tasks, err := s.eng.TaskList()
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	out, _ := json.MarshalIndent(tasks, "", "  ")
	return mcp.NewToolResultText(string(out)), nil
}

func (s *Server) getTaskFormat(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return mcp.NewToolResultText(TaskFormatContract), nil
}

func (s *Server) readTaskFormatResource(ctx context.Context, req mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
	return []mcp.ResourceContents{
		mcp.TextResourceContents{
			URI:      "raido://task-format",
			MIMEType: "text/markdown",
			Text:     TaskFormatContract,
		},
	}, nil
}
