// Package domain defines the core business entities for the knowledge base.
//
// This package is part of the hexagonal architecture's innermost layer.
// It has NO external dependencies and defines the fundamental types:
//
//   - Document: An uploaded artifact owned by a user
//   - Chunk: A fixed-size text window derived from a document
//   - Build / Job: One pipeline run and its per-document work items
//   - KnowledgeBaseStatus: The per-user cached build state
//   - RetrievedChunk: The ephemeral output unit of retrieval
//
// # Architectural Position
//
// Domain is at the centre of the hexagon. It may only import
// the Go standard library. All other packages depend on domain,
// never the reverse.
//
// # Import Rules
//
//   - Can Import: Standard library only
//   - Cannot Import: Any internal/ package, any external dependency
package domain
