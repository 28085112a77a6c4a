package tabs

import (
	"time"
)

const (
	defaultFlushInterval       = 2 * time.Second
	defaultShutdownConcurrency = 4
	defaultEventBuffer         = 64
)

// Config tunes a Synchronizer. Zero values select the defaults.
type Config struct {
	// FlushInterval is the period of the checkpoint loop.
	FlushInterval time.Duration `yaml:"flush_interval" mapstructure:"flush_interval"`

	// ShutdownConcurrency bounds how many tabs are torn down at once.
	ShutdownConcurrency int `yaml:"shutdown_concurrency" mapstructure:"shutdown_concurrency"`

	// EventBuffer is the channel size of each subscriber.
	EventBuffer int `yaml:"event_buffer" mapstructure:"event_buffer"`
}

func (c Config) withDefaults() Config {
	if c.FlushInterval <= 0 {
		c.FlushInterval = defaultFlushInterval
	}
	if c.ShutdownConcurrency <= 0 {
		c.ShutdownConcurrency = defaultShutdownConcurrency
	}
	if c.EventBuffer <= 0 {
		c.EventBuffer = defaultEventBuffer
	}
	return c
}
