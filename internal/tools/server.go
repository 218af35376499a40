// Package tools registers the MCP tool surface over the SharePoint
// service. Every handler converts failures into an isError result
// envelope instead of returning an error, so a failed call never takes
// the server down.
package tools

import (
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/Zerg00s/sharepoint-mcp-go/internal/seeding"
	"github.com/Zerg00s/sharepoint-mcp-go/internal/sharepoint"
)

// Handlers carries the dependencies shared by every tool handler.
type Handlers struct {
	service     *sharepoint.Service
	seeder      *seeding.Seeder
	defaultSite string
	logger      *slog.Logger
}

// NewServer builds the MCP server with the full tool surface registered.
// defaultSite is used when a call omits site_url; it may be empty, in
// which case site_url becomes effectively required.
func NewServer(svc *sharepoint.Service, seeder *seeding.Seeder, defaultSite, version string, logger *slog.Logger) *server.MCPServer {
	if logger == nil {
		logger = slog.Default()
	}

	h := &Handlers{
		service:     svc,
		seeder:      seeder,
		defaultSite: defaultSite,
		logger:      logger,
	}

	s := server.NewMCPServer("sharepoint", version,
		server.WithToolCapabilities(false),
		server.WithRecovery(),
	)

	h.registerSiteTools(s)
	h.registerListTools(s)
	h.registerItemTools(s)
	h.registerBatchTools(s)
	h.registerSeedingTools(s)

	return s
}

// siteURL resolves the target site for a call: the site_url argument if
// present, else the configured default.
func (h *Handlers) siteURL(request mcp.CallToolRequest) (string, error) {
	site := request.GetString("site_url", h.defaultSite)
	if site == "" {
		return "", fmt.Errorf("site_url is required (no default site configured)")
	}

	return site, nil
}

// jsonResult pretty-prints v as the tool's text payload.
func jsonResult(v any) *mcp.CallToolResult {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return mcp.NewToolResultError("encoding result: " + err.Error())
	}

	return mcp.NewToolResultText(string(data))
}

// errResult converts any failure into the isError envelope.
func (h *Handlers) errResult(operation string, err error) *mcp.CallToolResult {
	h.logger.Warn("tool call failed",
		slog.String("tool", operation),
		slog.String("error", err.Error()),
	)

	return mcp.NewToolResultError(err.Error())
}

// withSiteURL is the shared optional site parameter.
func withSiteURL() mcp.ToolOption {
	return mcp.WithString("site_url",
		mcp.Description("Site URL; defaults to the configured site"),
	)
}
