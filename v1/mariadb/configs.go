package mariadb

import "time"

const (
	DefaultConnectTimeout = 10 * time.Second
	DefaultCharset        = "utf8mb4"
)

// Config holds driver-wide settings.
type Config struct {
	ConnectTimeout time.Duration `yaml:"connect_timeout" mapstructure:"connect_timeout" envconfig:"MARIADB_CONNECT_TIMEOUT"`
	ReadTimeout    time.Duration `yaml:"read_timeout" mapstructure:"read_timeout" envconfig:"MARIADB_READ_TIMEOUT"`
	WriteTimeout   time.Duration `yaml:"write_timeout" mapstructure:"write_timeout" envconfig:"MARIADB_WRITE_TIMEOUT"`
	Charset        string        `yaml:"charset" mapstructure:"charset" envconfig:"MARIADB_CHARSET"`

	// Loc is the time zone used for DATETIME values, e.g. "UTC". Defaults to Local.
	Loc string `yaml:"loc" mapstructure:"loc" envconfig:"MARIADB_LOC"`
}

func (c Config) withDefaults() Config {
	if c.ConnectTimeout == 0 {
		c.ConnectTimeout = DefaultConnectTimeout
	}
	if c.Charset == "" {
		c.Charset = DefaultCharset
	}
	return c
}
