package tools

import (
	"context"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
)

func (h *Handlers) registerSeedingTools(s *server.MCPServer) {
	s.AddTool(mcp.NewTool("add_mock_items",
		mcp.WithDescription("Populate a list with generated mock items; lookup fields are resolved against their target lists in a second pass"),
		withSiteURL(),
		mcp.WithString("list_title", mcp.Required(),
			mcp.Description("Title of the list to seed"),
		),
		mcp.WithNumber("count", mcp.Required(),
			mcp.Description("Number of items to create"),
		),
	), h.handleAddMockItems)
}

func (h *Handlers) handleAddMockItems(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	site, err := h.siteURL(request)
	if err != nil {
		return h.errResult("add_mock_items", err), nil
	}

	title, err := request.RequireString("list_title")
	if err != nil {
		return h.errResult("add_mock_items", err), nil
	}

	count, err := request.RequireInt("count")
	if err != nil {
		return h.errResult("add_mock_items", err), nil
	}

	report, err := h.seeder.Seed(ctx, site, title, count)
	if err != nil {
		return h.errResult("add_mock_items", err), nil
	}

	return jsonResult(report), nil
}
