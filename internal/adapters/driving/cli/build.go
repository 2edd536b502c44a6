package cli

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/astraqa-kb/internal/core/domain"
)

var buildJSON bool

var buildCmd = &cobra.Command{
	Use:   "build",
	Short: "Build the knowledge base",
	Long: `Extracts text from every uploaded document, splits it into chunks and
indexes the chunks for retrieval. Previous chunks are replaced.

A document that fails does not stop the build. The build fails only when
no document could be processed.`,
	Args: cobra.NoArgs,
	RunE: runBuild,
}

func init() {
	buildCmd.Flags().BoolVar(&buildJSON, "json", false, "output the build result as JSON")
	rootCmd.AddCommand(buildCmd)
}

// buildOutput is the JSON shape of a build result.
type buildOutput struct {
	Status    domain.KBStatus `json:"status"`
	BuildID   string          `json:"buildId,omitempty"`
	Processed int             `json:"processed"`
	Failed    int             `json:"failed"`
	Errors    []string        `json:"errors,omitempty"`
}

func runBuild(cmd *cobra.Command, _ []string) error {
	if buildOrchestrator == nil {
		return errors.New("build service not configured")
	}

	result, err := buildOrchestrator.RunBuild(cmd.Context(), currentUser())
	if result != nil {
		if buildJSON {
			if jsonErr := outputJSON(cmd, buildOutput{
				Status:    result.Status,
				BuildID:   result.BuildID,
				Processed: result.Processed,
				Failed:    result.Failed,
				Errors:    result.Errors,
			}); jsonErr != nil {
				return jsonErr
			}
		} else {
			printBuildResult(cmd, result)
		}
	}
	if err != nil {
		return fmt.Errorf("build failed: %w", err)
	}
	return nil
}

func printBuildResult(cmd *cobra.Command, result *domain.BuildResult) {
	if result.BuildID != "" {
		cmd.Printf("Build %s\n", result.BuildID)
	}
	cmd.Printf("  Status:    %s\n", result.Status)
	cmd.Printf("  Processed: %d\n", result.Processed)
	cmd.Printf("  Failed:    %d\n", result.Failed)
	if len(result.Errors) > 0 {
		cmd.Println("  Errors:")
		for _, e := range result.Errors {
			cmd.Printf("    - %s\n", e)
		}
	}
}
