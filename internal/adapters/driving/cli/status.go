package cli

import (
	"bufio"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/astraqa-kb/internal/core/domain"
)

var (
	statusJSON      bool
	healthcheckJSON bool
	resetForce      bool
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show knowledge base status",
	Long:  `Shows the knowledge base status, the last build and the uploaded files.`,
	Args:  cobra.NoArgs,
	RunE:  runStatus,
}

var resetCmd = &cobra.Command{
	Use:   "reset",
	Short: "Delete the whole knowledge base",
	Long: `Removes every file, chunk, build and status of the user. Stored file
bytes and indexed vectors are removed as well.`,
	Args: cobra.NoArgs,
	RunE: runReset,
}

var healthcheckCmd = &cobra.Command{
	Use:   "healthcheck",
	Short: "Check stored files can be located",
	Long: `Walks every document's candidate storage keys and reports files whose
bytes are missing, stored under a legacy path, or under a non-canonical key.`,
	Args: cobra.NoArgs,
	RunE: runHealthcheck,
}

func init() {
	statusCmd.Flags().BoolVar(&statusJSON, "json", false, "output status as JSON")
	resetCmd.Flags().BoolVarP(&resetForce, "force", "f", false, "skip the confirmation prompt")
	healthcheckCmd.Flags().BoolVar(&healthcheckJSON, "json", false, "output the report as JSON")

	rootCmd.AddCommand(statusCmd)
	rootCmd.AddCommand(resetCmd)
	rootCmd.AddCommand(healthcheckCmd)
}

func runStatus(cmd *cobra.Command, _ []string) error {
	if knowledgeBaseService == nil {
		return errors.New("knowledge base service not configured")
	}

	state, err := knowledgeBaseService.State(cmd.Context(), currentUser())
	if err != nil {
		return fmt.Errorf("failed to get status: %w", err)
	}

	if statusJSON {
		return outputJSON(cmd, state)
	}

	cmd.Printf("Status: %s\n", state.Status)
	if state.UpdatedAt != nil {
		cmd.Printf("Updated: %s\n", state.UpdatedAt.Format(time.RFC3339))
	}
	if b := state.LastBuild; b != nil {
		cmd.Println()
		cmd.Println("[Last build]")
		cmd.Printf("  ID:        %s\n", b.ID)
		cmd.Printf("  Status:    %s\n", b.Status)
		cmd.Printf("  Started:   %s\n", b.StartedAt.Format(time.RFC3339))
		if b.CompletedAt != nil {
			cmd.Printf("  Completed: %s\n", b.CompletedAt.Format(time.RFC3339))
		}
		cmd.Printf("  Processed: %d\n", b.Processed)
		cmd.Printf("  Failed:    %d\n", b.Failed)
		if state.SuccessRate != nil {
			cmd.Printf("  Success:   %d%%\n", *state.SuccessRate)
		}
		if b.Error != "" {
			cmd.Printf("  Error:     %s\n", b.Error)
		}
	}
	cmd.Println()
	cmd.Printf("Files: %d\n", len(state.Documents))
	return nil
}

func runReset(cmd *cobra.Command, _ []string) error {
	if knowledgeBaseService == nil {
		return errors.New("knowledge base service not configured")
	}

	userID := currentUser()
	if !resetForce {
		cmd.Printf("Delete the knowledge base of %q? [y/N]: ", userID)
		answer, _ := bufio.NewReader(cmd.InOrStdin()).ReadString('\n')
		answer = strings.ToLower(strings.TrimSpace(answer))
		if answer != "y" && answer != "yes" {
			cmd.Println("Cancelled.")
			return nil
		}
	}

	if err := knowledgeBaseService.Reset(cmd.Context(), userID); err != nil {
		return fmt.Errorf("failed to reset knowledge base: %w", err)
	}

	cmd.Println("Knowledge base reset.")
	return nil
}

func runHealthcheck(cmd *cobra.Command, _ []string) error {
	if healthService == nil {
		return errors.New("health service not configured")
	}

	report, err := healthService.Check(cmd.Context(), currentUser())
	if err != nil {
		return fmt.Errorf("healthcheck failed: %w", err)
	}

	if healthcheckJSON {
		return outputJSON(cmd, report)
	}

	printHealthReport(cmd, report)
	return nil
}

func printHealthReport(cmd *cobra.Command, report *domain.HealthReport) {
	s := report.Summary
	cmd.Printf("Status: %s\n", report.Status)
	cmd.Printf("  Total: %d  OK: %d  Missing: %d  Legacy: %d  Non-canonical: %d  Orphaned: %d\n",
		s.Total, s.OK, s.Missing, s.Legacy, s.NonCanonical, s.Orphaned)
	if e := report.Embedding; e != nil {
		if e.Reachable {
			cmd.Printf("  Embedding: %s reachable\n", e.Model)
		} else {
			cmd.Printf("  Embedding: %s unreachable (%s), retrieval is lexical only\n", e.Model, e.Error)
		}
	}

	for i := range report.Documents {
		d := report.Documents[i]
		if len(d.Issues) == 0 {
			continue
		}
		cmd.Println()
		cmd.Printf("  %s (%s)\n", d.Filename, d.DocumentID)
		cmd.Printf("    Stored key: %s\n", d.StorageKey)
		if d.FoundKey != "" {
			cmd.Printf("    Found at:   %s\n", d.FoundKey)
		}
		for _, issue := range d.Issues {
			cmd.Printf("    Issue:      %s\n", issue)
		}
	}

	if len(report.Orphans) > 0 {
		cmd.Println()
		cmd.Println("  Orphaned blobs:")
		for _, key := range report.Orphans {
			cmd.Printf("    %s\n", key)
		}
	}
}
