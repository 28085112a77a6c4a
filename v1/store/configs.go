package store

import "time"

const (
	BackendFile     = "file"
	BackendPostgres = "postgres"
	BackendObject   = "s3"

	DefaultFileName = "tabs.json"
)

// Config selects and configures the record store backend.
type Config struct {
	// Backend is "file" (default), "postgres" or "s3".
	Backend string `yaml:"backend" mapstructure:"backend" envconfig:"STORE_BACKEND"`

	// Path is the JSON file for the file backend.
	Path string `yaml:"path" mapstructure:"path" envconfig:"STORE_PATH"`

	Postgres GormConfig   `yaml:"postgres" mapstructure:"postgres"`
	Object   ObjectConfig `yaml:"s3" mapstructure:"s3"`
}

// ObjectConfig configures the S3-compatible backend.
type ObjectConfig struct {
	Endpoint        string `yaml:"endpoint" mapstructure:"endpoint" envconfig:"STORE_S3_ENDPOINT"`
	AccessKeyID     string `yaml:"access_key_id" mapstructure:"access_key_id" envconfig:"STORE_S3_ACCESS_KEY_ID"`
	SecretAccessKey string `yaml:"secret_access_key" mapstructure:"secret_access_key" envconfig:"STORE_S3_SECRET_ACCESS_KEY"`
	UseSSL          bool   `yaml:"use_ssl" mapstructure:"use_ssl" envconfig:"STORE_S3_USE_SSL"`
	Region          string `yaml:"region" mapstructure:"region" envconfig:"STORE_S3_REGION"`
	Bucket          string `yaml:"bucket" mapstructure:"bucket" envconfig:"STORE_S3_BUCKET"`

	// Key is the object name. Defaults to the base name of the file
	// backend's default path.
	Key string `yaml:"key" mapstructure:"key" envconfig:"STORE_S3_KEY"`

	// CreateBucket creates a missing bucket instead of failing.
	CreateBucket bool `yaml:"create_bucket" mapstructure:"create_bucket" envconfig:"STORE_S3_CREATE_BUCKET"`
}

// GormConfig configures the PostgreSQL backend.
type GormConfig struct {
	Host     string `yaml:"host" mapstructure:"host" envconfig:"STORE_POSTGRES_HOST"`
	Port     string `yaml:"port" mapstructure:"port" envconfig:"STORE_POSTGRES_PORT"`
	User     string `yaml:"user" mapstructure:"user" envconfig:"STORE_POSTGRES_USER"`
	Password string `yaml:"password" mapstructure:"password" envconfig:"STORE_POSTGRES_PASSWORD"`
	DbName   string `yaml:"db_name" mapstructure:"db_name" envconfig:"STORE_POSTGRES_DB"`
	SSLMode  string `yaml:"ssl_mode" mapstructure:"ssl_mode" envconfig:"STORE_POSTGRES_SSLMODE"`

	MaxOpenConns    int           `yaml:"max_open_conns" mapstructure:"max_open_conns"`
	MaxIdleConns    int           `yaml:"max_idle_conns" mapstructure:"max_idle_conns"`
	ConnMaxLifetime time.Duration `yaml:"conn_max_lifetime" mapstructure:"conn_max_lifetime"`
}
