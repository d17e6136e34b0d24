// ABOUTME: MCP server subcommand
// ABOUTME: Starts the MCP server on stdio for assistant integration
package cli

import (
	"context"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	"go.uber.org/zap"

	"github.com/harperreed/salesdesk/crm"
	"github.com/harperreed/salesdesk/handlers"
)

// MCPCommand starts the MCP server on stdio
func MCPCommand(ctx context.Context, svc *crm.Service, version string, logger *zap.Logger) error {
	logger.Info("starting MCP server", zap.String("version", version))
	server := handlers.NewMCPServer(svc, version)
	return server.Run(ctx, &mcp.StdioTransport{})
}
