package repositories

import (
	"context"

	"github.com/palisadehq/palisade/internal/entities"
)

// ConfigRepository loads the authorization configuration from its
// backing store. Implementations return a fully parsed, versioned
// snapshot; the engine never touches the serialized form.
type ConfigRepository interface {
	// Load reads and parses the complete configuration.
	Load(ctx context.Context) (*entities.ConfigSnapshot, error)
}
