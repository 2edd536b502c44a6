package cli

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/astraqa-kb/internal/core/domain"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Manage application settings",
	Long: `View and change the settings stored in ~/.astraqa/config.toml.

Environment variables (OLLAMA_BASE_URL, HF_API_KEY, QDRANT_URL, ...) and a
.env file in the working directory take precedence over the config file.`,
	RunE: runConfigShow,
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show effective settings",
	RunE:  runConfigShow,
}

var configSetCmd = &cobra.Command{
	Use:   "set [key] [value]",
	Short: "Set a config value",
	Long: `Persist one config value. Run "astraqa config keys" for the list of keys.

Examples:
  astraqa config set vector.url http://localhost:6333
  astraqa config set embedding.ollama_base_url http://localhost:11434
  astraqa config set chunker.max_chars 2000`,
	Args: cobra.ExactArgs(2),
	RunE: runConfigSet,
}

var configKeysCmd = &cobra.Command{
	Use:   "keys",
	Short: "List config keys",
	Args:  cobra.NoArgs,
	RunE:  runConfigKeys,
}

func init() {
	configCmd.AddCommand(configShowCmd)
	configCmd.AddCommand(configSetCmd)
	configCmd.AddCommand(configKeysCmd)
	rootCmd.AddCommand(configCmd)
}

func runConfigShow(cmd *cobra.Command, _ []string) error {
	if settingsService == nil {
		return errors.New("settings service not configured")
	}

	settings, err := settingsService.Get()
	if err != nil {
		return fmt.Errorf("failed to get settings: %w", err)
	}

	cmd.Println("Current Settings")
	cmd.Println("================")
	cmd.Println()

	e := settings.Embedding
	cmd.Println("[Embedding]")
	cmd.Printf("  Provider: %s\n", e.Provider().Description())
	switch e.Provider() {
	case domain.EmbeddingProviderOllama:
		cmd.Printf("  Base URL: %s\n", e.OllamaBaseURL)
		cmd.Printf("  Model: %s\n", e.Model())
	case domain.EmbeddingProviderHuggingFace:
		cmd.Printf("  API Key: %s\n", maskAPIKey(e.HFAPIKey))
		cmd.Printf("  Model: %s\n", e.Model())
	}
	cmd.Printf("  Batch size: %d\n", e.BatchSize)
	cmd.Printf("  Concurrency: %d\n", e.Concurrency)
	cmd.Printf("  Query cache: %d\n", e.CacheSize)
	cmd.Println()

	v := settings.VectorIndex
	cmd.Println("[Vector]")
	if v.IsConfigured() {
		cmd.Printf("  URL: %s\n", v.URL)
		if v.APIKey != "" {
			cmd.Printf("  API Key: %s\n", maskAPIKey(v.APIKey))
		}
		cmd.Printf("  Collection: %s\n", v.Collection)
	} else {
		cmd.Println("  Status: not configured")
	}
	cmd.Println()

	cmd.Println("[Blob]")
	blobURL := settings.Blob.BaseURL
	if blobURL == "" {
		blobURL = "(default ~/.astraqa/blobs)"
	}
	cmd.Printf("  Base URL: %s\n", blobURL)
	cmd.Println()

	cmd.Println("[Chunker]")
	cmd.Printf("  Max chars: %d\n", settings.Chunker.MaxChars)
	cmd.Printf("  Overlap chars: %d\n", settings.Chunker.OverlapChars)
	cmd.Println()

	cmd.Println("[Server]")
	cmd.Printf("  Address: %s\n", settings.Server.Addr)

	return nil
}

func runConfigSet(cmd *cobra.Command, args []string) error {
	if settingsService == nil {
		return errors.New("settings service not configured")
	}

	if err := settingsService.Set(args[0], args[1]); err != nil {
		return fmt.Errorf("failed to set %s: %w", args[0], err)
	}

	cmd.Printf("Set %s\n", args[0])
	return nil
}

func runConfigKeys(cmd *cobra.Command, _ []string) error {
	if settingsService == nil {
		return errors.New("settings service not configured")
	}

	for _, k := range settingsService.Keys() {
		cmd.Println(k)
	}
	return nil
}

// maskAPIKey masks an API key for display.
func maskAPIKey(key string) string {
	if len(key) <= 8 {
		return "****"
	}
	return key[:4] + "..." + key[len(key)-4:]
}
