package postgres

import "time"

const (
	// DefaultConnectTimeout bounds the TCP and startup handshake.
	DefaultConnectTimeout = 10 * time.Second

	// DefaultApplicationName is reported to the server as application_name.
	DefaultApplicationName = "workbench"
)

// Config holds driver-wide settings. Per-connection settings come from
// database.ConnectionContext.
type Config struct {
	ConnectTimeout  time.Duration `yaml:"connect_timeout" mapstructure:"connect_timeout" envconfig:"POSTGRES_CONNECT_TIMEOUT"`
	ApplicationName string        `yaml:"application_name" mapstructure:"application_name" envconfig:"POSTGRES_APPLICATION_NAME"`

	// StatementTimeout is sent as the statement_timeout runtime parameter
	// when non-zero, so the server also abandons long statements.
	StatementTimeout time.Duration `yaml:"statement_timeout" mapstructure:"statement_timeout" envconfig:"POSTGRES_STATEMENT_TIMEOUT"`
}

func (c Config) withDefaults() Config {
	if c.ConnectTimeout == 0 {
		c.ConnectTimeout = DefaultConnectTimeout
	}
	if c.ApplicationName == "" {
		c.ApplicationName = DefaultApplicationName
	}
	return c
}
