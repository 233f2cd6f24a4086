// ABOUTME: MCP tool handler implementations for the querychat server
// ABOUTME: Tool failures are returned as error results, never as protocol errors
package mcp

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"

	"github.com/harper/querychat/internal/app"
	"github.com/harper/querychat/internal/core"
	"github.com/harper/querychat/internal/models"
	"github.com/mark3labs/mcp-go/mcp"
)

// Handlers contains the handler functions for all MCP tools
type Handlers struct {
	app      *app.App
	logger   *slog.Logger
	inFlight sync.WaitGroup // chat turns still running
}

func jsonResult(v any) (*mcp.CallToolResult, error) {
	responseJSON, err := json.Marshal(v)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("failed to marshal response: %v", err)), nil
	}
	return mcp.NewToolResultText(string(responseJSON)), nil
}

func (h *Handlers) projectID(ctx context.Context, request mcp.CallToolRequest) (string, error) {
	p, err := h.app.ResolveProject(ctx, request.GetString("project", ""))
	if err != nil {
		return "", err
	}
	return p.ID, nil
}

// AskData handles the ask_data tool
func (h *Handlers) AskData(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	question, err := request.RequireString("question")
	if err != nil {
		return mcp.NewToolResultError("question argument is required and must be a string"), nil
	}
	projectID, err := h.projectID(ctx, request)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	h.inFlight.Add(1)
	defer h.inFlight.Done()

	orch := h.app.NewOrchestrator(nil)
	orch.SelectProject(ctx, projectID)
	if convID := request.GetString("conversation_id", ""); convID != "" {
		if _, err := orch.LoadConversation(ctx, convID); err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("failed to load conversation: %v", err)), nil
		}
	}

	res, err := orch.Submit(ctx, question)
	if err != nil {
		h.logger.Warn("ask_data turn failed", "project", projectID, "error", err)
		return mcp.NewToolResultError(fmt.Sprintf("turn failed: %v", err)), nil
	}

	return jsonResult(map[string]interface{}{
		"conversation_id": res.ConversationID,
		"message_id":      res.AssistantMessage.ID,
		"intent":          res.Intent,
		"answer":          res.CleanText,
		"results":         res.Results,
	})
}

// RunQuery handles the run_query tool
func (h *Handlers) RunQuery(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	sql, err := request.RequireString("sql")
	if err != nil {
		return mcp.NewToolResultError("sql argument is required and must be a string"), nil
	}
	projectID, err := h.projectID(ctx, request)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	result, err := h.app.Workspace.RunQuery(ctx, projectID, sql)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("query failed: %v", err)), nil
	}
	return jsonResult(result)
}

// ListTables handles the list_tables tool
func (h *Handlers) ListTables(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	projectID, err := h.projectID(ctx, request)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	schema, err := h.app.Workspace.ProjectContext(ctx, projectID)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("failed to describe tables: %v", err)), nil
	}
	return jsonResult(map[string]interface{}{
		"tables": schema.Tables,
		"count":  len(schema.Tables),
	})
}

// ListConversations handles the list_conversations tool
func (h *Handlers) ListConversations(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	projectID, err := h.projectID(ctx, request)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	convs, err := h.app.Workspace.ListConversations(ctx, projectID)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("failed to list conversations: %v", err)), nil
	}
	if convs == nil {
		convs = []models.Conversation{}
	}
	return jsonResult(map[string]interface{}{
		"conversations": convs,
		"count":         len(convs),
	})
}

type conversationMessage struct {
	ID      string                       `json:"id"`
	Role    models.Role                  `json:"role"`
	Content string                       `json:"content"`
	Results []models.VisualizationResult `json:"results,omitempty"`
}

// GetConversation handles the get_conversation tool
func (h *Handlers) GetConversation(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	convID, err := request.RequireString("conversation_id")
	if err != nil {
		return mcp.NewToolResultError("conversation_id argument is required and must be a string"), nil
	}
	projectID, err := h.projectID(ctx, request)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	orch := h.app.NewOrchestrator(nil)
	orch.SelectProject(ctx, projectID)
	conv, err := orch.LoadConversation(ctx, convID)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("failed to get conversation: %v", err)), nil
	}

	session := orch.Session()
	messages := make([]conversationMessage, 0, len(conv.Messages))
	for _, m := range conv.Messages {
		messages = append(messages, conversationMessage{
			ID:      m.ID,
			Role:    m.Role,
			Content: core.StripCommands(m.Content),
			Results: session.Results(m.ID),
		})
	}

	return jsonResult(map[string]interface{}{
		"id":         conv.ID,
		"title":      conv.Title,
		"created_at": conv.CreatedAt,
		"updated_at": conv.UpdatedAt,
		"messages":   messages,
	})
}

// SearchRows handles the search_rows tool
func (h *Handlers) SearchRows(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	table, err := request.RequireString("table")
	if err != nil {
		return mcp.NewToolResultError("table argument is required and must be a string"), nil
	}
	query, err := request.RequireString("query")
	if err != nil {
		return mcp.NewToolResultError("query argument is required and must be a string"), nil
	}
	limit := request.GetInt("limit", core.DefaultSearchLimit)
	if limit <= 0 {
		return mcp.NewToolResultError("limit must be positive"), nil
	}
	projectID, err := h.projectID(ctx, request)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	hits, err := h.app.Workspace.SearchSimilarRows(ctx, projectID, table, query, limit)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("search failed: %v", err)), nil
	}
	if hits == nil {
		hits = []models.RowHit{}
	}
	return jsonResult(map[string]interface{}{
		"table": table,
		"query": query,
		"hits":  hits,
		"count": len(hits),
	})
}

// Shutdown waits for running chat turns to finish
func (h *Handlers) Shutdown() {
	h.logger.Info("waiting for running chat turns to complete")
	h.inFlight.Wait()
}
