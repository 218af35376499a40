package tools

import (
	"context"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
)

func (h *Handlers) registerItemTools(s *server.MCPServer) {
	s.AddTool(mcp.NewTool("get_list_items",
		mcp.WithDescription("Read items from a list"),
		withSiteURL(),
		mcp.WithString("list_title", mcp.Required(),
			mcp.Description("Title of the list"),
		),
		mcp.WithNumber("top",
			mcp.Description("Maximum number of items to return"),
		),
	), h.handleGetListItems)

	s.AddTool(mcp.NewTool("get_list_item",
		mcp.WithDescription("Read one list item by id"),
		withSiteURL(),
		mcp.WithString("list_title", mcp.Required(),
			mcp.Description("Title of the list"),
		),
		mcp.WithNumber("item_id", mcp.Required(),
			mcp.Description("Item id"),
		),
	), h.handleGetListItem)

	s.AddTool(mcp.NewTool("create_list_item",
		mcp.WithDescription("Create one list item"),
		withSiteURL(),
		mcp.WithString("list_title", mcp.Required(),
			mcp.Description("Title of the list"),
		),
		mcp.WithObject("fields", mcp.Required(),
			mcp.Description("Field values for the new item, keyed by internal field name"),
		),
	), h.handleCreateListItem)

	s.AddTool(mcp.NewTool("update_list_item",
		mcp.WithDescription("Update fields of an existing list item"),
		withSiteURL(),
		mcp.WithString("list_title", mcp.Required(),
			mcp.Description("Title of the list"),
		),
		mcp.WithNumber("item_id", mcp.Required(),
			mcp.Description("Item id"),
		),
		mcp.WithObject("fields", mcp.Required(),
			mcp.Description("Field values to merge, keyed by internal field name"),
		),
	), h.handleUpdateListItem)

	s.AddTool(mcp.NewTool("delete_list_item",
		mcp.WithDescription("Delete one list item by id"),
		withSiteURL(),
		mcp.WithString("list_title", mcp.Required(),
			mcp.Description("Title of the list"),
		),
		mcp.WithNumber("item_id", mcp.Required(),
			mcp.Description("Item id"),
		),
	), h.handleDeleteListItem)
}

// fieldsArg extracts the fields object argument.
func fieldsArg(request mcp.CallToolRequest) (map[string]any, error) {
	raw, ok := request.GetArguments()["fields"]
	if !ok {
		return nil, fmt.Errorf("fields is required")
	}

	fields, ok := raw.(map[string]any)
	if !ok {
		return nil, fmt.Errorf("fields must be an object, got %T", raw)
	}

	return fields, nil
}

func (h *Handlers) handleGetListItems(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	site, err := h.siteURL(request)
	if err != nil {
		return h.errResult("get_list_items", err), nil
	}

	title, err := request.RequireString("list_title")
	if err != nil {
		return h.errResult("get_list_items", err), nil
	}

	items, err := h.service.Items(ctx, site, title, request.GetInt("top", 0))
	if err != nil {
		return h.errResult("get_list_items", err), nil
	}

	return jsonResult(items), nil
}

func (h *Handlers) handleGetListItem(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	site, err := h.siteURL(request)
	if err != nil {
		return h.errResult("get_list_item", err), nil
	}

	title, err := request.RequireString("list_title")
	if err != nil {
		return h.errResult("get_list_item", err), nil
	}

	itemID, err := request.RequireInt("item_id")
	if err != nil {
		return h.errResult("get_list_item", err), nil
	}

	item, err := h.service.GetItem(ctx, site, title, itemID)
	if err != nil {
		return h.errResult("get_list_item", err), nil
	}

	return jsonResult(item), nil
}

func (h *Handlers) handleCreateListItem(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	site, err := h.siteURL(request)
	if err != nil {
		return h.errResult("create_list_item", err), nil
	}

	title, err := request.RequireString("list_title")
	if err != nil {
		return h.errResult("create_list_item", err), nil
	}

	fields, err := fieldsArg(request)
	if err != nil {
		return h.errResult("create_list_item", err), nil
	}

	item, err := h.service.CreateItem(ctx, site, title, fields)
	if err != nil {
		return h.errResult("create_list_item", err), nil
	}

	return jsonResult(item), nil
}

func (h *Handlers) handleUpdateListItem(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	site, err := h.siteURL(request)
	if err != nil {
		return h.errResult("update_list_item", err), nil
	}

	title, err := request.RequireString("list_title")
	if err != nil {
		return h.errResult("update_list_item", err), nil
	}

	itemID, err := request.RequireInt("item_id")
	if err != nil {
		return h.errResult("update_list_item", err), nil
	}

	fields, err := fieldsArg(request)
	if err != nil {
		return h.errResult("update_list_item", err), nil
	}

	if err := h.service.UpdateItem(ctx, site, title, itemID, fields); err != nil {
		return h.errResult("update_list_item", err), nil
	}

	return mcp.NewToolResultText(fmt.Sprintf("Updated item %d in %q", itemID, title)), nil
}

func (h *Handlers) handleDeleteListItem(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	site, err := h.siteURL(request)
	if err != nil {
		return h.errResult("delete_list_item", err), nil
	}

	title, err := request.RequireString("list_title")
	if err != nil {
		return h.errResult("delete_list_item", err), nil
	}

	itemID, err := request.RequireInt("item_id")
	if err != nil {
		return h.errResult("delete_list_item", err), nil
	}

	if err := h.service.DeleteItem(ctx, site, title, itemID); err != nil {
		return h.errResult("delete_list_item", err), nil
	}

	return mcp.NewToolResultText(fmt.Sprintf("Deleted item %d from %q", itemID, title)), nil
}
