package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/astraqa-kb/internal/adapters/driving/mcp"
)

var mcpCmd = &cobra.Command{
	Use:   "mcp",
	Short: "MCP server commands",
	Long:  `Commands for the Model Context Protocol (MCP) server integration.`,
}

var mcpServeCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the MCP server",
	Long: `Start the Model Context Protocol server so AI assistants can retrieve
passages from the knowledge base.

By default, the server communicates over stdio using JSON-RPC. Use --port
to start an HTTP server instead. Over stdio tools may name any user_id;
over HTTP every request is answered for the --user only.

Tools:
  retrieve              top-k passages for a query
  build_knowledge_base  rebuild the knowledge base

Resources:
  kb://{userId}/state
  kb://{userId}/files/{fileId}

Examples:
  # Stdio mode (default)
  astraqa mcp serve

  # HTTP mode (MCP Inspector, remote access)
  astraqa mcp serve --port 8080

Claude Desktop configuration (claude_desktop_config.json):
  {
    "mcpServers": {
      "astraqa": {
        "command": "/path/to/astraqa",
        "args": ["mcp", "serve"]
      }
    }
  }`,
	RunE: runMCPServe,
}

func init() {
	mcpServeCmd.Flags().IntP("port", "p", 0, "HTTP port (0 = use stdio)")
	mcpCmd.AddCommand(mcpServeCmd)
	rootCmd.AddCommand(mcpCmd)
}

func runMCPServe(cmd *cobra.Command, _ []string) error {
	port, err := cmd.Flags().GetInt("port")
	if err != nil {
		return fmt.Errorf("getting port flag: %w", err)
	}

	ports := &mcp.Ports{
		Retrieval:     retrievalService,
		Build:         buildOrchestrator,
		KnowledgeBase: knowledgeBaseService,
		DefaultUserID: currentUser(),
	}

	server, err := mcp.NewServer(ports)
	if err != nil {
		return err
	}

	if port > 0 {
		addr := fmt.Sprintf(":%d", port)
		fmt.Fprintf(cmd.OutOrStdout(), "MCP server listening on http://localhost%s\n", addr)
		return server.RunHTTP(cmd.Context(), addr)
	}

	return server.Run(cmd.Context())
}
