package vault

import (
	"fmt"

	"go.uber.org/fx"
)

// FXModule provides the Vault selected by Config.Backend.
var FXModule = fx.Module("vault",
	fx.Provide(New),
)

// New returns the configured backend.
func New(cfg Config) (Vault, error) {
	switch cfg.Backend {
	case "", BackendKeyring:
		return NewKeyring(cfg.ServiceName), nil
	case BackendMemory:
		return NewMemory(), nil
	default:
		return nil, fmt.Errorf("vault: unsupported backend %q (must be 'keyring' or 'memory')", cfg.Backend)
	}
}
