// Package file provides file-based implementations of driven port interfaces.
// These adapters persist data to the local filesystem.
//
// Adapters:
//   - ConfigStore: TOML-based configuration storage (~/.astraqa/config.toml)
//   - LoadEnvFile: .env loading ahead of environment overrides
package file
