package vault

const (
	BackendKeyring = "keyring"
	BackendMemory  = "memory"

	// DefaultServiceName is the keyring service the passwords are stored under.
	DefaultServiceName = "workbench"
)

// Config selects the credential backend.
type Config struct {
	// Backend is "keyring" (default) or "memory".
	Backend     string `yaml:"backend" mapstructure:"backend" envconfig:"VAULT_BACKEND"`
	ServiceName string `yaml:"service_name" mapstructure:"service_name" envconfig:"VAULT_SERVICE_NAME"`
}
