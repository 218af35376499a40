package tools

import (
	"context"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/Zerg00s/sharepoint-mcp-go/internal/sharepoint"
)

func (h *Handlers) registerBatchTools(s *server.MCPServer) {
	s.AddTool(mcp.NewTool("create_list_items",
		mcp.WithDescription("Create multiple list items in one batch; returns one outcome per item"),
		withSiteURL(),
		mcp.WithString("list_title", mcp.Required(),
			mcp.Description("Title of the list"),
		),
		mcp.WithArray("items", mcp.Required(),
			mcp.Description("Field objects, one per item to create"),
		),
	), h.handleCreateListItems)

	s.AddTool(mcp.NewTool("update_list_items",
		mcp.WithDescription("Update multiple list items in one batch; returns one outcome per item"),
		withSiteURL(),
		mcp.WithString("list_title", mcp.Required(),
			mcp.Description("Title of the list"),
		),
		mcp.WithArray("updates", mcp.Required(),
			mcp.Description("Objects of the form {item_id, fields}, one per item to update"),
		),
	), h.handleUpdateListItems)

	s.AddTool(mcp.NewTool("delete_list_items",
		mcp.WithDescription("Delete multiple list items in one batch; returns one outcome per item"),
		withSiteURL(),
		mcp.WithString("list_title", mcp.Required(),
			mcp.Description("Title of the list"),
		),
		mcp.WithArray("item_ids", mcp.Required(),
			mcp.Description("Ids of the items to delete"),
		),
	), h.handleDeleteListItems)
}

// arrayArg extracts a required array argument.
func arrayArg(request mcp.CallToolRequest, name string) ([]any, error) {
	raw, ok := request.GetArguments()[name]
	if !ok {
		return nil, fmt.Errorf("%s is required", name)
	}

	values, ok := raw.([]any)
	if !ok {
		return nil, fmt.Errorf("%s must be an array, got %T", name, raw)
	}

	if len(values) == 0 {
		return nil, fmt.Errorf("%s must not be empty", name)
	}

	return values, nil
}

// runBatch executes the operations and renders outcomes. Per-item
// failures are part of the result, not an error: only transport, digest,
// or protocol failures produce an isError envelope.
func (h *Handlers) runBatch(ctx context.Context, operation, site string, ops []sharepoint.Operation) (*mcp.CallToolResult, error) {
	outcomes, err := h.service.ExecuteBatch(ctx, site, ops)
	if err != nil {
		return h.errResult(operation, err), nil
	}

	return jsonResult(outcomes), nil
}

func (h *Handlers) handleCreateListItems(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	site, err := h.siteURL(request)
	if err != nil {
		return h.errResult("create_list_items", err), nil
	}

	title, err := request.RequireString("list_title")
	if err != nil {
		return h.errResult("create_list_items", err), nil
	}

	items, err := arrayArg(request, "items")
	if err != nil {
		return h.errResult("create_list_items", err), nil
	}

	ops := make([]sharepoint.Operation, 0, len(items))

	for i, raw := range items {
		fields, ok := raw.(map[string]any)
		if !ok {
			return h.errResult("create_list_items",
				fmt.Errorf("items[%d] must be an object, got %T", i, raw)), nil
		}

		ops = append(ops, sharepoint.CreateOp(title, fields))
	}

	return h.runBatch(ctx, "create_list_items", site, ops)
}

func (h *Handlers) handleUpdateListItems(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	site, err := h.siteURL(request)
	if err != nil {
		return h.errResult("update_list_items", err), nil
	}

	title, err := request.RequireString("list_title")
	if err != nil {
		return h.errResult("update_list_items", err), nil
	}

	updates, err := arrayArg(request, "updates")
	if err != nil {
		return h.errResult("update_list_items", err), nil
	}

	ops := make([]sharepoint.Operation, 0, len(updates))

	for i, raw := range updates {
		update, ok := raw.(map[string]any)
		if !ok {
			return h.errResult("update_list_items",
				fmt.Errorf("updates[%d] must be an object, got %T", i, raw)), nil
		}

		itemID, ok := numberArg(update["item_id"])
		if !ok {
			return h.errResult("update_list_items",
				fmt.Errorf("updates[%d].item_id must be a number", i)), nil
		}

		fields, ok := update["fields"].(map[string]any)
		if !ok {
			return h.errResult("update_list_items",
				fmt.Errorf("updates[%d].fields must be an object", i)), nil
		}

		ops = append(ops, sharepoint.UpdateOp(title, itemID, fields))
	}

	return h.runBatch(ctx, "update_list_items", site, ops)
}

func (h *Handlers) handleDeleteListItems(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	site, err := h.siteURL(request)
	if err != nil {
		return h.errResult("delete_list_items", err), nil
	}

	title, err := request.RequireString("list_title")
	if err != nil {
		return h.errResult("delete_list_items", err), nil
	}

	ids, err := arrayArg(request, "item_ids")
	if err != nil {
		return h.errResult("delete_list_items", err), nil
	}

	ops := make([]sharepoint.Operation, 0, len(ids))

	for i, raw := range ids {
		itemID, ok := numberArg(raw)
		if !ok {
			return h.errResult("delete_list_items",
				fmt.Errorf("item_ids[%d] must be a number, got %T", i, raw)), nil
		}

		ops = append(ops, sharepoint.DeleteOp(title, itemID))
	}

	return h.runBatch(ctx, "delete_list_items", site, ops)
}

// numberArg coerces a JSON number argument to int.
func numberArg(raw any) (int, bool) {
	switch v := raw.(type) {
	case float64:
		return int(v), true
	case int:
		return v, true
	default:
		return 0, false
	}
}
