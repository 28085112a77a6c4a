package connection

import "time"

const (
	defaultConnectTimeout     = 15 * time.Second
	defaultHealthCheckTimeout = 5 * time.Second
	defaultCloseTimeout       = 5 * time.Second
	defaultEventBuffer        = 16
)

// Config tunes a Manager. Zero values select the defaults.
type Config struct {
	// ConnectTimeout bounds a connect attempt including TLS and auth.
	ConnectTimeout time.Duration `yaml:"connect_timeout" mapstructure:"connect_timeout"`

	// HealthCheckInterval enables the health monitor when > 0.
	HealthCheckInterval time.Duration `yaml:"health_check_interval" mapstructure:"health_check_interval"`

	// HealthCheckTimeout bounds a single health ping.
	HealthCheckTimeout time.Duration `yaml:"health_check_timeout" mapstructure:"health_check_timeout"`

	// CloseTimeout bounds closing a handle.
	CloseTimeout time.Duration `yaml:"close_timeout" mapstructure:"close_timeout"`

	// EventBuffer is the channel size of each subscriber.
	EventBuffer int `yaml:"event_buffer" mapstructure:"event_buffer"`
}

func (c Config) withDefaults() Config {
	if c.ConnectTimeout <= 0 {
		c.ConnectTimeout = defaultConnectTimeout
	}
	if c.HealthCheckTimeout <= 0 {
		c.HealthCheckTimeout = defaultHealthCheckTimeout
	}
	if c.CloseTimeout <= 0 {
		c.CloseTimeout = defaultCloseTimeout
	}
	if c.EventBuffer <= 0 {
		c.EventBuffer = defaultEventBuffer
	}
	return c
}
