// Package mcpserver provides an MCP (Model Context Protocol) server
// that exposes the runtime bridge as tools over stdio transport.
package mcpserver

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/starford/glance/internal/apperr"
	"github.com/starford/glance/internal/bridge"
	"github.com/starford/glance/internal/models"
)

// Server wraps the MCP server with runtime bridge tools.
type Server struct {
	mcp      *server.MCPServer
	rt       *bridge.Runtime
	handlers map[string]server.ToolHandlerFunc
}

// New creates a new MCP server with all bridge tools registered.
func New(rt *bridge.Runtime, version string) *Server {
	s := &Server{rt: rt, handlers: make(map[string]server.ToolHandlerFunc)}

	s.mcp = server.NewMCPServer(
		"glance",
		version,
		server.WithToolCapabilities(false),
	)

	s.addTool(mcp.NewTool("set_note_preview",
		mcp.WithDescription("Bind a note snapshot to a home-screen surface and redraw it."),
		mcp.WithNumber("surface_id", mcp.Required(), mcp.Description("Surface instance id")),
		mcp.WithString("content_id", mcp.Required(), mcp.Description("Note content id")),
		mcp.WithString("title", mcp.Description("Note title")),
		mcp.WithString("headline", mcp.Description("First line shown under the title")),
	), s.setNotePreview)

	s.addTool(mcp.NewTool("clear_previews",
		mcp.WithDescription("Drop the previews of removed surfaces."),
		mcp.WithArray("surface_ids", mcp.Required(),
			mcp.Description("Surface instance ids"),
			mcp.Items(map[string]any{"type": "integer"})),
	), s.clearPreviews)

	s.addTool(mcp.NewTool("update_by_content_id",
		mcp.WithDescription("Rewrite every surface showing a note. Returns the affected surface ids."),
		mcp.WithString("content_id", mcp.Required(), mcp.Description("Note content id")),
		mcp.WithString("title", mcp.Description("New title")),
		mcp.WithString("headline", mcp.Description("New headline")),
	), s.updateByContentID)

	s.addTool(mcp.NewTool("list_previewed_content_ids",
		mcp.WithDescription("List the content ids currently shown on any surface."),
	), s.listPreviewedContentIDs)

	s.addTool(mcp.NewTool("has_preview",
		mcp.WithDescription("Report whether a note is shown on any surface."),
		mcp.WithString("content_id", mcp.Required(), mcp.Description("Note content id")),
	), s.hasPreview)

	s.addTool(mcp.NewTool("replace_reminder_list",
		mcp.WithDescription("Replace the reminder list shown on every reminders surface."),
		mcp.WithArray("entries", mcp.Required(),
			mcp.Description("Ordered reminders: {id, title, description?, date (epoch millis)}"),
			mcp.Items(map[string]any{"type": "object"})),
	), s.replaceReminderList)

	s.addTool(mcp.NewTool("pull_deep_link",
		mcp.WithDescription("Take the pending navigation message. Each message is returned once."),
	), s.pullDeepLink)

	s.addTool(mcp.NewTool("set_state",
		mcp.WithDescription("Record the coarse app state read at cold start."),
		mcp.WithString("value", mcp.Required(), mcp.Description("State value")),
	), s.setState)

	s.addTool(mcp.NewTool("get_state",
		mcp.WithDescription("Read the coarse app state."),
	), s.getState)

	s.addTool(mcp.NewTool("get_surface_id",
		mcp.WithDescription("Return the surface being configured, or 0."),
	), s.getSurfaceID)

	s.addTool(mcp.NewTool("pin_surface",
		mcp.WithDescription("Ask the host to pin a new surface."),
		mcp.WithString("kind", mcp.Required(), mcp.Enum(string(models.SurfaceNote), string(models.SurfaceReminders))),
	), s.pinSurface)

	s.addTool(mcp.NewTool("run_boot_sync",
		mcp.WithDescription("Run the boot sync job now and wait for its outcome."),
	), s.runBootSync)

	return s
}

func (s *Server) addTool(tool mcp.Tool, h server.ToolHandlerFunc) {
	s.handlers[tool.Name] = h
	s.mcp.AddTool(tool, h)
}

// ServeStdio serves MCP on stdin/stdout until ctx is cancelled or the client
// closes stdin.
func (s *Server) ServeStdio(ctx context.Context) error {
	return s.Serve(ctx, os.Stdin, os.Stdout)
}

// Serve serves MCP over the given streams.
func (s *Server) Serve(ctx context.Context, in io.Reader, out io.Writer) error {
	err := server.NewStdioServer(s.mcp).Listen(ctx, in, out)
	if err != nil && ctx.Err() != nil {
		return nil
	}
	return err
}

// CallTool invokes a registered tool handler in-process.
func (s *Server) CallTool(ctx context.Context, name string, args map[string]any) (*mcp.CallToolResult, error) {
	h, ok := s.handlers[name]
	if !ok {
		return nil, fmt.Errorf("mcpserver: tool %q: %w", name, apperr.ErrNotFound)
	}
	req := mcp.CallToolRequest{}
	req.Method = "tools/call"
	req.Params.Name = name
	req.Params.Arguments = args
	return h(ctx, req)
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

func errorResult(err error) (*mcp.CallToolResult, error) {
	if code, ok := apperr.RejectionCode(err); ok {
		return mcp.NewToolResultError(fmt.Sprintf("rejected (%s): %s", code, err.Error())), nil
	}
	return mcp.NewToolResultError(err.Error()), nil
}

func notePreviewArg(req mcp.CallToolRequest) (models.NotePreview, error) {
	id, err := req.RequireString("content_id")
	if err != nil {
		return models.NotePreview{}, err
	}
	return models.NotePreview{
		ContentID: id,
		Title:     req.GetString("title", ""),
		Headline:  req.GetString("headline", ""),
	}, nil
}

func (s *Server) setNotePreview(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	id, err := req.RequireInt("surface_id")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	p, err := notePreviewArg(req)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	if err := s.rt.SetNotePreview(ctx, id, p); err != nil {
		return errorResult(err)
	}
	return mcp.NewToolResultText(fmt.Sprintf("surface %d shows %s", id, p.ContentID)), nil
}

func (s *Server) clearPreviews(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	var args struct {
		SurfaceIDs []int `json:"surface_ids"`
	}
	if err := req.BindArguments(&args); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	s.rt.ClearAllPreviewsForSurfaces(ctx, args.SurfaceIDs)
	return mcp.NewToolResultText(fmt.Sprintf("cleared %d surfaces", len(args.SurfaceIDs))), nil
}

func (s *Server) updateByContentID(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	p, err := notePreviewArg(req)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	affected, err := s.rt.UpdateByContentID(ctx, p.ContentID, p)
	if err != nil {
		return errorResult(err)
	}
	return jsonResult(map[string][]int{"affected": affected})
}

func (s *Server) listPreviewedContentIDs(ctx context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return jsonResult(map[string][]string{"content_ids": s.rt.ListPreviewedContentIDs(ctx)})
}

func (s *Server) hasPreview(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	id, err := req.RequireString("content_id")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return jsonResult(map[string]any{"content_id": id, "has_preview": s.rt.HasPreview(ctx, id)})
}

func (s *Server) replaceReminderList(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	var args struct {
		Entries []models.ReminderEntry `json:"entries"`
	}
	if err := req.BindArguments(&args); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	if err := s.rt.ReplaceReminderList(ctx, args.Entries); err != nil {
		return errorResult(err)
	}
	return mcp.NewToolResultText(fmt.Sprintf("stored %d reminders", len(args.Entries))), nil
}

func (s *Server) pullDeepLink(_ context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	msg, ok := s.rt.PullDeepLink()
	if !ok {
		return mcp.NewToolResultText("no pending message"), nil
	}
	return jsonResult(msg)
}

func (s *Server) setState(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	v, err := req.RequireString("value")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	if err := s.rt.SetState(ctx, v); err != nil {
		return errorResult(err)
	}
	return mcp.NewToolResultText("state saved"), nil
}

func (s *Server) getState(ctx context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	v, ok, err := s.rt.GetState(ctx)
	if err != nil {
		return errorResult(err)
	}
	return jsonResult(map[string]any{"value": v, "set": ok})
}

func (s *Server) getSurfaceID(_ context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return jsonResult(map[string]int{"surface_id": s.rt.SurfaceID()})
}

func (s *Server) pinSurface(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	kind, err := req.RequireString("kind")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	if err := s.rt.PinSurface(ctx, models.SurfaceKind(kind)); err != nil {
		return errorResult(err)
	}
	return mcp.NewToolResultText("pin requested"), nil
}

func (s *Server) runBootSync(ctx context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	runID, err := s.rt.RunBootSync(ctx)
	if err != nil {
		return errorResult(err)
	}
	return jsonResult(map[string]string{"run_id": runID})
}
