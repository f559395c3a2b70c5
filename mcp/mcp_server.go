package mcp

import (
	"context"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"bount3-backend/core/escrow"
)

// MCPServer wraps the mcp-go server with the escrow business logic
type MCPServer struct {
	mcpServer *server.MCPServer
	engine    *escrow.Engine
	store     escrow.Store
	events    func() []escrow.Event
}

// NewMCPServer creates a new MCP server using the mcp-go library. The events
// callback supplies the buffered event log (nil disables the events tool
// result).
func NewMCPServer(engine *escrow.Engine, store escrow.Store, events func() []escrow.Event) *MCPServer {
	mcpServer := server.NewMCPServer(
		"Bount3 Escrow MCP Server",
		"1.0.0",
		server.WithToolCapabilities(true),
	)

	if events == nil {
		events = func() []escrow.Event { return nil }
	}
	s := &MCPServer{
		mcpServer: mcpServer,
		engine:    engine,
		store:     store,
		events:    events,
	}
	s.registerTools()
	return s
}

// GetMCPServer returns the underlying MCP server for transport setup
func (s *MCPServer) GetMCPServer() *server.MCPServer {
	return s.mcpServer
}

// registerTools registers all MCP tools with the server
func (s *MCPServer) registerTools() {
	// Campaign tools
	s.registerListCampaignsTool()
	s.registerGetCampaignTool()
	s.registerCreateCampaignTool()
	s.registerCloseCampaignTool()

	// Submission tools
	s.registerListSubmissionsTool()
	s.registerGetSubmissionTool()
	s.registerSubmitWorkTool()
	s.registerVerifySubmissionTool()
	s.registerDeclineSubmissionTool()

	// Escrow state tools
	s.registerEscrowStatusTool()
	s.registerListEventsTool()
}

// registerEscrowStatusTool reports the asset id, escrow address and accrued fees
func (s *MCPServer) registerEscrowStatusTool() {
	tool := mcp.NewTool("escrow_status",
		mcp.WithDescription("Get the escrow address, reward asset id and accrued platform fees"),
	)

	s.mcpServer.AddTool(tool, func(_ context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		status := s.engine.Status()
		return mcp.NewToolResultText(fmt.Sprintf("Escrow status:\n\n%+v", status)), nil
	})
}

// registerListEventsTool lists recent escrow events
func (s *MCPServer) registerListEventsTool() {
	tool := mcp.NewTool("list_events",
		mcp.WithDescription("List recent escrow events (campaign and submission state changes)"),
		mcp.WithNumber("limit", mcp.Description("Maximum number of events to return")),
	)

	s.mcpServer.AddTool(tool, func(_ context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		events := s.events()
		limit := int(toInt64(request.GetArguments()["limit"]))
		if limit > 0 && len(events) > limit {
			events = events[len(events)-limit:]
		}
		return mcp.NewToolResultText(fmt.Sprintf("Found %d events:\n\n%+v", len(events), events)), nil
	})
}
