// Package mcpserver exposes the note commands as MCP (Model Context Protocol)
// tools over the stdio transport.
package mcpserver

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/starford/knowleague/internal/command"
)

// CommandsURI is the resource describing the command vocabulary.
const CommandsURI = "knowleague://commands"

// Invoker runs named commands. *command.Dispatcher satisfies it.
type Invoker interface {
	Invoke(ctx context.Context, name string, args json.RawMessage) command.Response
}

// Server wraps the MCP server with the note tools.
type Server struct {
	mcp *server.MCPServer
	cmd Invoker
}

// New creates a new MCP server with every note command registered as a tool.
func New(cmd Invoker, version string) *Server {
	s := &Server{cmd: cmd}

	s.mcp = server.NewMCPServer(
		"knowleague",
		version,
		server.WithToolCapabilities(false),
		server.WithResourceCapabilities(false, false),
	)

	s.mcp.AddTool(mcp.NewTool(command.CheckConnection,
		mcp.WithDescription("Check that the document store is reachable. Returns the list of databases."),
	), s.checkConnection)

	s.mcp.AddTool(mcp.NewTool(command.CreateNote,
		mcp.WithDescription("Create a note. Returns the new note's id."),
		mcp.WithString("title", mcp.Required(), mcp.Description("Note title, must not be blank")),
		mcp.WithString("content", mcp.Description("Free-form note text")),
		mcp.WithArray("tags", mcp.WithStringItems(), mcp.Description("Ordered list of tags")),
	), s.createNote)

	s.mcp.AddTool(mcp.NewTool(command.GetNotes,
		mcp.WithDescription("List every note as JSON."),
	), s.getNotes)

	s.mcp.AddTool(mcp.NewTool(command.DeleteNote,
		mcp.WithDescription("Delete a note by id. Deletion cannot be undone."),
		mcp.WithString("id", mcp.Required(), mcp.Description("24-character hex note id")),
	), s.deleteNote)

	s.mcp.AddTool(mcp.NewTool(command.UpdateNote,
		mcp.WithDescription("Replace the title, content and tags of a note. The id is unchanged."),
		mcp.WithString("id", mcp.Required(), mcp.Description("24-character hex note id")),
		mcp.WithString("title", mcp.Required(), mcp.Description("New title, must not be blank")),
		mcp.WithString("content", mcp.Description("New content")),
		mcp.WithArray("tags", mcp.WithStringItems(), mcp.Description("New tags; omitted means none")),
	), s.updateNote)

	s.mcp.AddTool(mcp.NewTool(command.SearchNotes,
		mcp.WithDescription("Full-text search over title, tags and content. Best matches first."),
		mcp.WithString("query", mcp.Required(), mcp.Description("Search words")),
	), s.searchNotes)

	s.mcp.AddResource(
		mcp.NewResource(CommandsURI, "Note Commands",
			mcp.WithResourceDescription("The note command vocabulary with arguments, results and errors."),
			mcp.WithMIMEType("text/markdown"),
		),
		s.readCommandsResource,
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

// invoke forwards the tool arguments to the dispatcher. Command failures are
// tool errors, not protocol errors.
func (s *Server) invoke(ctx context.Context, name string, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	var raw json.RawMessage
	if args := req.GetArguments(); len(args) > 0 {
		b, err := json.Marshal(args)
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
		raw = b
	}

	resp := s.cmd.Invoke(ctx, name, raw)
	if !resp.OK {
		return mcp.NewToolResultError(resp.Error), nil
	}

	if text, ok := resp.Data.(string); ok {
		return mcp.NewToolResultText(text), nil
	}
	out, err := json.MarshalIndent(resp.Data, "", "  ")
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("encode result: %v", err)), nil
	}
	return mcp.NewToolResultText(string(out)), nil
}

func (s *Server) checkConnection(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return s.invoke(ctx, command.CheckConnection, req)
}

func (s *Server) createNote(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return s.invoke(ctx, command.CreateNote, req)
}

func (s *Server) getNotes(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return s.invoke(ctx, command.GetNotes, req)
}

func (s *Server) deleteNote(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	if _, err := req.RequireString("id"); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return s.invoke(ctx, command.DeleteNote, req)
}

func (s *Server) updateNote(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	if _, err := req.RequireString("id"); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return s.invoke(ctx, command.UpdateNote, req)
}

func (s *Server) searchNotes(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return s.invoke(ctx, command.SearchNotes, req)
}

func (s *Server) readCommandsResource(ctx context.Context, req mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
	return []mcp.ResourceContents{
		mcp.TextResourceContents{
			URI:      CommandsURI,
			MIMEType: "text/markdown",
			Text:     CommandsGuide,
		},
	}, nil
}
