// Command astraqa builds per-user knowledge bases from uploaded documents
// and serves retrieval over the CLI, a REST API and MCP.
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/custodia-labs/astraqa-kb/internal/adapters/driven/ai"
	"github.com/custodia-labs/astraqa-kb/internal/adapters/driven/blob"
	"github.com/custodia-labs/astraqa-kb/internal/adapters/driven/config/file"
	"github.com/custodia-labs/astraqa-kb/internal/adapters/driven/storage/sqlite"
	"github.com/custodia-labs/astraqa-kb/internal/adapters/driving/cli"
	"github.com/custodia-labs/astraqa-kb/internal/core/services"
	"github.com/custodia-labs/astraqa-kb/internal/extractors"
	"github.com/custodia-labs/astraqa-kb/internal/logger"
	"github.com/custodia-labs/astraqa-kb/internal/postprocessors/chunker"
)

// Directory overrides for the config file and the SQLite database.
const (
	envConfigDir = "ASTRAQA_CONFIG_DIR"
	envDataDir   = "ASTRAQA_DATA_DIR"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx); err != nil {
		stop()
		os.Exit(1)
	}
}

func run(ctx context.Context) error {
	if err := file.LoadEnvFile(".env"); err != nil {
		logger.Warn("%v", err)
	}

	configStore, err := file.NewConfigStore(os.Getenv(envConfigDir))
	if err != nil {
		logger.Error("config: %v", err)
		return err
	}
	settingsService := services.NewSettingsService(configStore)

	settings, err := settingsService.Get()
	if err != nil {
		// Only the config commands can run until the settings are fixed.
		logger.Warn("settings: %v", err)
		cli.SetServices(cli.Services{Settings: settingsService})
		return cli.Execute(ctx)
	}

	store, err := sqlite.NewStore(os.Getenv(envDataDir))
	if err != nil {
		logger.Error("storage: %v", err)
		return err
	}
	defer store.Close()

	blobs, err := blob.New(settings.Blob.BaseURL)
	if err != nil {
		logger.Error("blob storage: %v", err)
		return err
	}

	backends := ai.Initialise(*settings)
	defer backends.Close()
	for _, w := range backends.Warnings {
		logger.Warn("retrieval backend: %s", w)
	}

	buildOpts := []services.BuildOption{
		services.WithEmbeddingBatches(settings.Embedding.BatchSize, settings.Embedding.Concurrency),
	}
	if backends.VectorEnabled() {
		buildOpts = append(buildOpts, services.WithVectorIndexing(backends.VectorIndex, backends.EmbeddingService))
	} else {
		logger.Debug("vector search disabled, retrieval is lexical only")
	}

	chunks := chunker.New(
		chunker.WithChunkSize(settings.Chunker.MaxChars),
		chunker.WithOverlap(settings.Chunker.OverlapChars),
	)

	cli.SetServices(cli.Services{
		Build: services.NewBuildOrchestrator(
			store.DocumentStore(), store.BuildStore(), blobs,
			extractors.Default(), chunks, buildOpts...,
		),
		Retrieval: services.NewRetrievalService(
			store.DocumentStore(), store.LexicalIndex(),
			backends.VectorIndex, backends.EmbeddingService,
		),
		KnowledgeBase: services.NewKnowledgeBaseService(
			store.DocumentStore(), store.BuildStore(), blobs, backends.VectorIndex,
		),
		Health: services.NewHealthService(
			store.DocumentStore(), blobs,
			services.WithEmbeddingCheck(backends.EmbeddingService),
		),
		Settings: settingsService,
	})

	return cli.Execute(ctx)
}
