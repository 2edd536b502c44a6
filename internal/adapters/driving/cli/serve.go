package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/astraqa-kb/internal/adapters/driving/httpapi"
	"github.com/custodia-labs/astraqa-kb/internal/logger"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the knowledge base REST API",
	Long: `Serves the knowledge base over HTTP under /api/knowledge-base.

Requests identify their user with the X-User-ID header. The listen address
defaults to the server.addr setting.

Examples:
  astraqa serve
  astraqa serve --addr 127.0.0.1:9000`,
	Args: cobra.NoArgs,
	RunE: runServe,
}

func init() {
	serveCmd.Flags().String("addr", "", "listen address (default: server.addr setting)")
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, _ []string) error {
	addr, err := cmd.Flags().GetString("addr")
	if err != nil {
		return fmt.Errorf("getting addr flag: %w", err)
	}
	if addr == "" && settingsService != nil {
		settings, err := settingsService.Get()
		if err != nil {
			return fmt.Errorf("failed to get settings: %w", err)
		}
		addr = settings.Server.Addr
	}
	if addr == "" {
		return fmt.Errorf("no listen address: pass --addr or set server.addr")
	}

	server, err := httpapi.NewServer(&httpapi.Ports{
		Build:         buildOrchestrator,
		Retrieval:     retrievalService,
		KnowledgeBase: knowledgeBaseService,
		Health:        healthService,
	})
	if err != nil {
		return err
	}

	logger.Info("knowledge base API listening on %s", addr)
	cmd.Printf("Knowledge base API listening on http://%s%s\n", displayHost(addr), httpapi.BasePath)
	return server.Run(cmd.Context(), addr)
}

// displayHost fills in localhost for wildcard listen addresses.
func displayHost(addr string) string {
	if len(addr) > 0 && addr[0] == ':' {
		return "localhost" + addr
	}
	return addr
}
