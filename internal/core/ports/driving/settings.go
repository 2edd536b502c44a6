package driving

import "github.com/custodia-labs/astraqa-kb/internal/core/domain"

// SettingsService resolves application settings from the config file and
// the environment.
type SettingsService interface {
	// Get returns the effective settings: environment, then config file,
	// then defaults.
	Get() (*domain.AppSettings, error)

	// Set validates and persists one config file value by key.
	Set(key, value string) error

	// Keys returns the recognised config keys in display order.
	Keys() []string
}
