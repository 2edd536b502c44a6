// Package cli implements the astraqa command line interface with cobra.
// Commands call the driving ports only; cmd/astraqa wires the adapters
// behind them with SetServices before Execute.
package cli

import (
	"context"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/astraqa-kb/internal/core/ports/driving"
	"github.com/custodia-labs/astraqa-kb/internal/logger"
)

// version is set at build time with -ldflags "-X ...cli.version=v1.2.3".
var version = "dev"

// DefaultUserID owns the knowledge base when neither --user nor
// ASTRAQA_USER names one.
const DefaultUserID = "local"

// EnvUser overrides the default user.
const EnvUser = "ASTRAQA_USER"

var (
	buildOrchestrator    driving.BuildOrchestrator
	retrievalService     driving.RetrievalService
	knowledgeBaseService driving.KnowledgeBaseService
	healthService        driving.HealthService
	settingsService      driving.SettingsService
)

var (
	userFlag      string
	verboseFlag   bool
	logFormatFlag string
)

var rootCmd = &cobra.Command{
	Use:   "astraqa",
	Short: "Build and query per-user knowledge bases",
	Long: `astraqa turns uploaded documents into a searchable knowledge base.

Upload PDF, DOCX, XLSX, JSON or text files, build the knowledge base, then
retrieve the passages most relevant to a question. Retrieval uses vector
search when an embedding provider and Qdrant are configured, and full-text
search otherwise.`,
	SilenceUsage: true,
	PersistentPreRun: func(_ *cobra.Command, _ []string) {
		logger.SetVerbose(verboseFlag)
		logger.SetFormat(logFormatFlag)
	},
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&userFlag, "user", "u", "", "user owning the knowledge base (default $ASTRAQA_USER or \"local\")")
	rootCmd.PersistentFlags().BoolVarP(&verboseFlag, "verbose", "v", false, "enable debug logging")
	rootCmd.PersistentFlags().StringVar(&logFormatFlag, "log-format", "text", "log format: text or json")
}

// Services holds the driving ports the commands call.
type Services struct {
	Build         driving.BuildOrchestrator
	Retrieval     driving.RetrievalService
	KnowledgeBase driving.KnowledgeBaseService
	Health        driving.HealthService
	Settings      driving.SettingsService
}

// SetServices injects the driving ports. Nil ports make their commands
// report the service as not configured.
func SetServices(s Services) {
	buildOrchestrator = s.Build
	retrievalService = s.Retrieval
	knowledgeBaseService = s.KnowledgeBase
	healthService = s.Health
	settingsService = s.Settings
}

// Execute runs the root command.
func Execute(ctx context.Context) error {
	return rootCmd.ExecuteContext(ctx)
}

// currentUser resolves the user every command acts for.
func currentUser() string {
	if u := strings.TrimSpace(userFlag); u != "" {
		return u
	}
	if u := strings.TrimSpace(os.Getenv(EnvUser)); u != "" {
		return u
	}
	return DefaultUserID
}
