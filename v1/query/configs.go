package query

import (
	"time"

	"github.com/Aleph-Alpha/workbench/v1/results"
)

const (
	defaultTimeout = 15 * time.Second
	defaultMaxRows = 10000
)

// Config tunes an Engine. Zero values select the defaults.
type Config struct {
	// Timeout bounds every request. Defaults to 15s.
	Timeout time.Duration `yaml:"timeout" mapstructure:"timeout"`

	// PageSize is the browse page size. Defaults to results.DefaultPageSize.
	PageSize int `yaml:"page_size" mapstructure:"page_size"`

	// MaxRows caps rows kept from free SQL. Defaults to 10000.
	MaxRows int `yaml:"max_rows" mapstructure:"max_rows"`

	// MaxCachedResults bounds the per-tab result cache.
	MaxCachedResults int `yaml:"max_cached_results" mapstructure:"max_cached_results"`
}

func (c Config) withDefaults() Config {
	if c.Timeout <= 0 {
		c.Timeout = defaultTimeout
	}
	if c.PageSize <= 0 {
		c.PageSize = results.DefaultPageSize
	}
	if c.MaxRows <= 0 {
		c.MaxRows = defaultMaxRows
	}
	if c.MaxCachedResults <= 0 {
		c.MaxCachedResults = results.DefaultMaxEntries
	}
	return c
}
