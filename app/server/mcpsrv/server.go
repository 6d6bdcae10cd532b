// Package mcpsrv exposes the hangout planner over the Model Context
// Protocol so agent hosts can drive sessions as tools.
package mcpsrv

import (
	"context"
	"encoding/json"
	"fmt"

	"hangoutd/app/service/orchestrator"

	mcpgo "github.com/mark3labs/mcp-go/mcp"
	mcpserver "github.com/mark3labs/mcp-go/server"
	"github.com/samber/do"
)

type Server struct {
	mcp  *mcpserver.MCPServer
	orch *orchestrator.Service
}

func New(di *do.Injector) (*Server, error) {
	s := &Server{
		orch: do.MustInvoke[*orchestrator.Service](di),
	}

	mcpSrv := mcpserver.NewMCPServer(
		"hangoutd",
		"1.0.0",
		mcpserver.WithToolCapabilities(true),
	)

	mcpSrv.AddTool(buildSendMessageTool(), s.handleSendMessage)
	mcpSrv.AddTool(buildGetSessionTool(), s.handleGetSession)
	mcpSrv.AddTool(buildListSessionsTool(), s.handleListSessions)

	s.mcp = mcpSrv

	return s, nil
}

// ServeStdio blocks serving the MCP protocol on stdin/stdout.
func (s *Server) ServeStdio() error {
	return mcpserver.ServeStdio(s.mcp)
}

func buildSendMessageTool() mcpgo.Tool {
	return mcpgo.NewTool("send_message",
		mcpgo.WithDescription("Send a chat message into a hangout planning session. Returns the assistant reply and, when the venue plan was revised, the new plan."),
		mcpgo.WithString("session_id",
			mcpgo.Required(),
			mcpgo.Description("The session to post into, created on first use"),
		),
		mcpgo.WithString("message",
			mcpgo.Required(),
			mcpgo.Description("The chat message text"),
		),
		mcpgo.WithString("user_name",
			mcpgo.Required(),
			mcpgo.Description("Display name of the sender"),
		),
		mcpgo.WithString("user_id",
			mcpgo.Description("Stable identifier of the sender (defaults to user_name)"),
		),
	)
}

func buildGetSessionTool() mcpgo.Tool {
	return mcpgo.NewTool("get_session",
		mcpgo.WithDescription("Get the full session view: roster, recent history, current and finalized plan, state."),
		mcpgo.WithString("session_id",
			mcpgo.Required(),
			mcpgo.Description("The session to inspect"),
		),
	)
}

func buildListSessionsTool() mcpgo.Tool {
	return mcpgo.NewTool("list_sessions",
		mcpgo.WithDescription("List the ids of all known hangout planning sessions."),
	)
}

func (s *Server) handleSendMessage(ctx context.Context, req mcpgo.CallToolRequest) (*mcpgo.CallToolResult, error) {
	sessionID := req.GetString("session_id", "")
	if sessionID == "" {
		return mcpgo.NewToolResultError("session_id is required and must not be empty"), nil
	}

	message := req.GetString("message", "")
	if message == "" {
		return mcpgo.NewToolResultError("message is required and must not be empty"), nil
	}

	userName := req.GetString("user_name", "")
	if userName == "" {
		return mcpgo.NewToolResultError("user_name is required and must not be empty"), nil
	}

	userID := req.GetString("user_id", userName)

	reply, planUpdate, err := s.orch.ProcessMessage(ctx, sessionID, message, userName, userID)
	if err != nil {
		return mcpgo.NewToolResultErrorf("message processing failed: %s", err.Error()), nil
	}

	return toolResultJSON(map[string]any{
		"reply":       reply,
		"plan_update": planUpdate,
	})
}

func (s *Server) handleGetSession(_ context.Context, req mcpgo.CallToolRequest) (*mcpgo.CallToolResult, error) {
	sessionID := req.GetString("session_id", "")
	if sessionID == "" {
		return mcpgo.NewToolResultError("session_id is required and must not be empty"), nil
	}

	snapshot, ok := s.orch.GetState(sessionID)
	if !ok {
		return mcpgo.NewToolResultErrorf("session %q not found", sessionID), nil
	}

	return toolResultJSON(snapshot)
}

func (s *Server) handleListSessions(_ context.Context, _ mcpgo.CallToolRequest) (*mcpgo.CallToolResult, error) {
	return toolResultJSON(s.orch.SessionIDs())
}

func toolResultJSON(v any) (*mcpgo.CallToolResult, error) {
	b, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("mcpsrv: marshaling result: %w", err)
	}

	return mcpgo.NewToolResultText(string(b)), nil
}
