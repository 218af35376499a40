package tools

import (
	"context"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
)

func (h *Handlers) registerListTools(s *server.MCPServer) {
	s.AddTool(mcp.NewTool("get_lists",
		mcp.WithDescription("List the non-hidden lists of a site"),
		withSiteURL(),
	), h.handleGetLists)

	s.AddTool(mcp.NewTool("get_list",
		mcp.WithDescription("Get one list by title"),
		withSiteURL(),
		mcp.WithString("list_title", mcp.Required(),
			mcp.Description("Title of the list"),
		),
	), h.handleGetList)

	s.AddTool(mcp.NewTool("create_list",
		mcp.WithDescription("Create a new list"),
		withSiteURL(),
		mcp.WithString("list_title", mcp.Required(),
			mcp.Description("Title for the new list"),
		),
		mcp.WithString("description",
			mcp.Description("Optional list description"),
		),
		mcp.WithNumber("template",
			mcp.Description("Base template id; defaults to a generic list (100)"),
		),
	), h.handleCreateList)

	s.AddTool(mcp.NewTool("delete_list",
		mcp.WithDescription("Delete a list by title"),
		withSiteURL(),
		mcp.WithString("list_title", mcp.Required(),
			mcp.Description("Title of the list to delete"),
		),
	), h.handleDeleteList)

	s.AddTool(mcp.NewTool("get_list_fields",
		mcp.WithDescription("List the fields (columns) of a list"),
		withSiteURL(),
		mcp.WithString("list_title", mcp.Required(),
			mcp.Description("Title of the list"),
		),
	), h.handleGetListFields)
}

func (h *Handlers) handleGetLists(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	site, err := h.siteURL(request)
	if err != nil {
		return h.errResult("get_lists", err), nil
	}

	lists, err := h.service.Lists(ctx, site)
	if err != nil {
		return h.errResult("get_lists", err), nil
	}

	return jsonResult(lists), nil
}

func (h *Handlers) handleGetList(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	site, err := h.siteURL(request)
	if err != nil {
		return h.errResult("get_list", err), nil
	}

	title, err := request.RequireString("list_title")
	if err != nil {
		return h.errResult("get_list", err), nil
	}

	list, err := h.service.GetList(ctx, site, title)
	if err != nil {
		return h.errResult("get_list", err), nil
	}

	return jsonResult(list), nil
}

func (h *Handlers) handleCreateList(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	site, err := h.siteURL(request)
	if err != nil {
		return h.errResult("create_list", err), nil
	}

	title, err := request.RequireString("list_title")
	if err != nil {
		return h.errResult("create_list", err), nil
	}

	description := request.GetString("description", "")
	template := request.GetInt("template", 0)

	list, err := h.service.CreateList(ctx, site, title, description, template)
	if err != nil {
		return h.errResult("create_list", err), nil
	}

	return jsonResult(list), nil
}

func (h *Handlers) handleDeleteList(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	site, err := h.siteURL(request)
	if err != nil {
		return h.errResult("delete_list", err), nil
	}

	title, err := request.RequireString("list_title")
	if err != nil {
		return h.errResult("delete_list", err), nil
	}

	if err := h.service.DeleteList(ctx, site, title); err != nil {
		return h.errResult("delete_list", err), nil
	}

	return mcp.NewToolResultText(fmt.Sprintf("Deleted list %q", title)), nil
}

func (h *Handlers) handleGetListFields(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	site, err := h.siteURL(request)
	if err != nil {
		return h.errResult("get_list_fields", err), nil
	}

	title, err := request.RequireString("list_title")
	if err != nil {
		return h.errResult("get_list_fields", err), nil
	}

	fields, err := h.service.ListFields(ctx, site, title)
	if err != nil {
		return h.errResult("get_list_fields", err), nil
	}

	return jsonResult(fields), nil
}
