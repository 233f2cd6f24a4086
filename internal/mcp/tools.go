// ABOUTME: MCP tool definitions and registration for the querychat server
// ABOUTME: Exposes turns, queries, tables, conversations and row search as tools
package mcp

import (
	"log/slog"

	"github.com/harper/querychat/internal/app"
	"github.com/mark3labs/mcp-go/mcp"
	mcpserver "github.com/mark3labs/mcp-go/server"
)

func projectProperty() map[string]interface{} {
	return map[string]interface{}{
		"type":        "string",
		"description": "Project id or name (optional when only one project exists)",
	}
}

// RegisterTools registers all MCP tools with the server
func RegisterTools(server *mcpserver.MCPServer, a *app.App) *Handlers {
	logger := a.Logger
	if logger == nil {
		logger = slog.Default()
	}
	handlers := &Handlers{app: a, logger: logger}

	// 1. ask_data - run one chat turn
	server.AddTool(mcp.Tool{
		Name:        "ask_data",
		Description: "Ask a question about a project's data. Runs a full chat turn: intent classification, semantic search, model answer and execution of the queries it proposes.",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"project": projectProperty(),
				"question": map[string]interface{}{
					"type":        "string",
					"description": "Natural-language question",
				},
				"conversation_id": map[string]interface{}{
					"type":        "string",
					"description": "Continue an existing conversation (optional)",
				},
			},
			Required: []string{"question"},
		},
	}, handlers.AskData)

	// 2. run_query - execute SQL directly
	server.AddTool(mcp.Tool{
		Name:        "run_query",
		Description: "Execute a SQL query against a project's database and return the rows.",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"project": projectProperty(),
				"sql": map[string]interface{}{
					"type":        "string",
					"description": "SQLite query to run",
				},
			},
			Required: []string{"sql"},
		},
	}, handlers.RunQuery)

	// 3. list_tables - describe the database
	server.AddTool(mcp.Tool{
		Name:        "list_tables",
		Description: "List tables in a project with row counts, columns and vectorization state.",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"project": projectProperty(),
			},
		},
	}, handlers.ListTables)

	// 4. list_conversations
	server.AddTool(mcp.Tool{
		Name:        "list_conversations",
		Description: "List a project's conversations, most recently updated first.",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"project": projectProperty(),
			},
		},
	}, handlers.ListConversations)

	// 5. get_conversation - messages with rehydrated results
	server.AddTool(mcp.Tool{
		Name:        "get_conversation",
		Description: "Get a conversation's messages. Query results of assistant messages are recomputed from the stored text.",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"project": projectProperty(),
				"conversation_id": map[string]interface{}{
					"type":        "string",
					"description": "Conversation id",
				},
			},
			Required: []string{"conversation_id"},
		},
	}, handlers.GetConversation)

	// 6. search_rows - semantic search over one vectorized table
	server.AddTool(mcp.Tool{
		Name:        "search_rows",
		Description: "Semantic search over the rows of a vectorized table.",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"project": projectProperty(),
				"table": map[string]interface{}{
					"type":        "string",
					"description": "Table name",
				},
				"query": map[string]interface{}{
					"type":        "string",
					"description": "Text to search for",
				},
				"limit": map[string]interface{}{
					"type":        "number",
					"description": "Maximum number of rows to return (default: 5)",
					"default":     5,
				},
			},
			Required: []string{"table", "query"},
		},
	}, handlers.SearchRows)

	return handlers
}
