package main

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"

	"github.com/Aleph-Alpha/workbench/v1/logger"
	"github.com/Aleph-Alpha/workbench/v1/postgres"
	"github.com/Aleph-Alpha/workbench/v1/store"
	"github.com/Aleph-Alpha/workbench/v1/vault"
	"github.com/Aleph-Alpha/workbench/v1/workspace"
)

const (
	// DefaultConfigFileName is looked up as workbench.yaml.
	DefaultConfigFileName = "workbench"
	// EnvPrefix prefixes environment overrides, e.g. WORKBENCH_QUERY_TIMEOUT.
	EnvPrefix = "WORKBENCH"
)

// loadConfig resolves the configuration from defaults, the config file,
// WORKBENCH_* environment variables and bound flags, in increasing order
// of priority.
func loadConfig(v *viper.Viper, cfgFile string) (workspace.Config, error) {
	setDefaults(v)

	if cfgFile != "" {
		v.SetConfigFile(cfgFile)
	} else {
		v.AddConfigPath(v.GetString("data_dir"))
		v.AddConfigPath(".")
		v.SetConfigName(DefaultConfigFileName)
		v.SetConfigType("yaml")
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return workspace.Config{}, fmt.Errorf("reading config file %s: %w", v.ConfigFileUsed(), err)
		}
	}

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	var cfg workspace.Config
	if err := v.Unmarshal(&cfg); err != nil {
		return workspace.Config{}, fmt.Errorf("decoding config: %w", err)
	}
	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("data_dir", defaultDataDir())
	v.SetDefault("default_driver", postgres.DriverName)

	v.SetDefault("logger.level", logger.Error)
	v.SetDefault("logger.service_name", "workbench")
	v.SetDefault("logger.enable_tracing", false)

	v.SetDefault("metrics.address", "")
	v.SetDefault("metrics.service_name", "workbench")
	v.SetDefault("tracer.service_name", "workbench")
	v.SetDefault("tracer.enable_export", false)

	v.SetDefault("vault.backend", vault.BackendKeyring)
	v.SetDefault("vault.service_name", vault.DefaultServiceName)

	v.SetDefault("store.backend", store.BackendFile)
	v.SetDefault("store.path", "")
	v.SetDefault("store.s3.endpoint", "")
	v.SetDefault("store.s3.bucket", "")
	v.SetDefault("store.s3.access_key_id", "")
	v.SetDefault("store.s3.secret_access_key", "")

	v.SetDefault("connection.connect_timeout", "15s")
	v.SetDefault("connection.close_timeout", "5s")
	v.SetDefault("query.timeout", "15s")
	v.SetDefault("query.page_size", 50)
	v.SetDefault("query.max_rows", 10000)
	v.SetDefault("tabs.flush_interval", "2s")
}

// defaultDataDir is $XDG_CONFIG_HOME/workbench or the platform equivalent.
func defaultDataDir() string {
	dir, err := os.UserConfigDir()
	if err != nil {
		return ".workbench"
	}
	return filepath.Join(dir, "workbench")
}
