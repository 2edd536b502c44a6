// Package services implements the driving port interfaces.
// Services contain the core business logic and orchestrate
// calls to driven ports (adapters).
//
// The build pipeline, retrieval with lexical fallback, document
// management, storage health checks and settings resolution live here.
// Services never import adapters; wiring happens in the CLI.
package services
