package domain

import "context"

// Setting is a dynamic configuration value stored in the database. These
// override environment defaults without a restart.
type Setting struct {
	Key   string
	Value string
}

// ISettingsRepository defines the contract for persisting dynamic settings.
type ISettingsRepository interface {
	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key string, value string) error
	Delete(ctx context.Context, key string) error

	// InitSchema creates the necessary tables
	InitSchema(ctx context.Context) error
}

// Common keys defined in the system
const (
	KeyDefaultTone     = "default_tone"
	KeyContentProvider = "content_provider"
	KeyContentModel    = "content_model"
	KeyMaxContentChars = "max_content_chars"
)
