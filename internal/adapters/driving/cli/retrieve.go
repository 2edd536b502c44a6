package cli

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/astraqa-kb/internal/core/domain"
)

// snippetChars bounds the passage text printed per result.
const snippetChars = 240

var (
	retrieveTopK int
	retrieveJSON bool
)

var retrieveCmd = &cobra.Command{
	Use:   "retrieve [query]",
	Short: "Retrieve passages from the knowledge base",
	Long: `Returns the passages most relevant to the query.

Vector search over embeddings is used when an embedding provider and
Qdrant are configured and reachable. Otherwise full-text (lexical) search
serves the query. The mode used is printed with the results.`,
	Args: cobra.ExactArgs(1),
	RunE: runRetrieve,
}

func init() {
	retrieveCmd.Flags().IntVarP(&retrieveTopK, "top-k", "k", domain.DefaultTopK, "number of passages (1-20)")
	retrieveCmd.Flags().BoolVar(&retrieveJSON, "json", false, "output results as JSON")
	rootCmd.AddCommand(retrieveCmd)
}

func runRetrieve(cmd *cobra.Command, args []string) error {
	if retrievalService == nil {
		return errors.New("retrieval service not configured")
	}

	result, err := retrievalService.Retrieve(cmd.Context(), currentUser(), args[0], retrieveTopK)
	if err != nil {
		return fmt.Errorf("retrieve failed: %w", err)
	}

	if retrieveJSON {
		return outputJSON(cmd, result)
	}

	return outputRetrieveTable(cmd, result)
}

func outputRetrieveTable(cmd *cobra.Command, result *domain.RetrievalResult) error {
	if len(result.Chunks) == 0 {
		cmd.Println("No results found.")
		return nil
	}

	cmd.Printf("Results (%s):\n", result.Mode)
	cmd.Println()
	for i, c := range result.Chunks {
		cmd.Printf("  [%d] %s (%.3f)\n", i+1, c.ChunkID, c.Score)
		cmd.Printf("      File: %s\n", c.DocumentID)
		cmd.Printf("      %s\n", truncateText(c.Text, snippetChars))
		cmd.Println()
	}
	return nil
}

// outputJSON prints v as indented JSON.
func outputJSON(cmd *cobra.Command, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal output: %w", err)
	}
	cmd.Println(string(data))
	return nil
}

// truncateText cuts s to n runes, marking the cut with an ellipsis.
func truncateText(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n]) + "..."
}
