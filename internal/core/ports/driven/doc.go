// Package driven defines the interfaces that core calls OUT to infrastructure.
//
// These are the "driven" or "secondary" ports in hexagonal architecture.
// Core services depend on these interfaces, and infrastructure adapters
// implement them.
//
// # Required Interfaces
//
// These must be provided for the application to function:
//
//   - DocumentStore: Document and chunk persistence
//   - BuildStore: Build, job and knowledge base status persistence
//   - LexicalIndex: Full-text ranking over persisted chunks. Always available.
//   - BlobStore: Raw uploaded bytes addressed by storage key
//   - ExtractorRegistry: Converts raw documents into plain text
//   - Chunker: Splits extracted text into overlapping windows
//   - ConfigStore: Application configuration
//
// # Optional Interfaces
//
// These can be nil - the application degrades gracefully:
//
//   - VectorIndex: Vector storage/search (Qdrant). Only used when EmbeddingService is configured.
//   - EmbeddingService: Generates vector embeddings. Nil means the "none" provider.
//
// # Import Rules
//
//   - Can Import: domain package only
//   - Cannot Import: Any adapter or extractor package
package driven
