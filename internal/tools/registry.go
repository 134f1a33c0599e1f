package tools

import (
	"github.com/modelcontextprotocol/go-sdk/mcp"
)

// RegisterAll registers all tools with the MCP server.
// This is called from main after server creation but before Run().
func RegisterAll(server *mcp.Server, deps *Dependencies) {
	mcp.AddTool(server, &mcp.Tool{
		Name:        "ping",
		Description: "Test tool - responds with pong or echoes input",
	}, NewPingHandler(deps))

	mcp.AddTool(server, &mcp.Tool{
		Name:        "find_order",
		Description: "Find the latest PDF in a folder that contains an order number, with its pages",
	}, NewFindOrderHandler(deps))

	mcp.AddTool(server, &mcp.Tool{
		Name:        "index_folder",
		Description: "List order numbers found in more than one PDF of a folder and which copy is the latest",
	}, NewIndexFolderHandler(deps))

	mcp.AddTool(server, &mcp.Tool{
		Name:        "match_pages",
		Description: "Assign page texts to order numbers and return the page order that follows the order list",
	}, NewMatchPagesHandler(deps))

	mcp.AddTool(server, &mcp.Tool{
		Name:        "recent_searches",
		Description: "List the most recent order number lookups",
	}, NewRecentSearchesHandler(deps))
}
