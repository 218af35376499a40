package tools

import (
	"context"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
)

func (h *Handlers) registerSiteTools(s *server.MCPServer) {
	s.AddTool(mcp.NewTool("get_site_info",
		mcp.WithDescription("Get metadata about a SharePoint site"),
		withSiteURL(),
	), h.handleGetSiteInfo)
}

func (h *Handlers) handleGetSiteInfo(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	site, err := h.siteURL(request)
	if err != nil {
		return h.errResult("get_site_info", err), nil
	}

	web, err := h.service.GetWeb(ctx, site)
	if err != nil {
		return h.errResult("get_site_info", err), nil
	}

	return jsonResult(web), nil
}
