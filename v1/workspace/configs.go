package workspace

import (
	"fmt"
	"path/filepath"

	"github.com/Aleph-Alpha/workbench/v1/connection"
	"github.com/Aleph-Alpha/workbench/v1/database"
	"github.com/Aleph-Alpha/workbench/v1/logger"
	"github.com/Aleph-Alpha/workbench/v1/mariadb"
	"github.com/Aleph-Alpha/workbench/v1/metrics"
	"github.com/Aleph-Alpha/workbench/v1/postgres"
	"github.com/Aleph-Alpha/workbench/v1/query"
	"github.com/Aleph-Alpha/workbench/v1/store"
	"github.com/Aleph-Alpha/workbench/v1/tabs"
	"github.com/Aleph-Alpha/workbench/v1/tracer"
	"github.com/Aleph-Alpha/workbench/v1/vault"
)

// Config aggregates the configuration of every component of a workspace.
type Config struct {
	Logger     logger.Config     `yaml:"logger" mapstructure:"logger"`
	Metrics    metrics.Config    `yaml:"metrics" mapstructure:"metrics"`
	Tracer     tracer.Config     `yaml:"tracer" mapstructure:"tracer"`
	Vault      vault.Config      `yaml:"vault" mapstructure:"vault"`
	Store      store.Config      `yaml:"store" mapstructure:"store"`
	Postgres   postgres.Config   `yaml:"postgres" mapstructure:"postgres"`
	MariaDB    mariadb.Config    `yaml:"mariadb" mapstructure:"mariadb"`
	Connection connection.Config `yaml:"connection" mapstructure:"connection"`
	Query      query.Config      `yaml:"query" mapstructure:"query"`
	Tabs       tabs.Config       `yaml:"tabs" mapstructure:"tabs"`

	// DataDir holds the tab checkpoint file when Store.Path is empty.
	DataDir string `yaml:"data_dir" mapstructure:"data_dir"`

	// DefaultDriver serves connection contexts that leave Driver empty.
	// Defaults to postgres.
	DefaultDriver string `yaml:"default_driver" mapstructure:"default_driver"`

	// Connections are the saved connection contexts.
	Connections []database.ConnectionContext `yaml:"connections" mapstructure:"connections"`
}

// LookupConnection returns the saved connection context with id. An empty
// id selects the only saved connection.
func (c Config) LookupConnection(id string) (database.ConnectionContext, error) {
	if id == "" && len(c.Connections) == 1 {
		return c.Connections[0], nil
	}
	for _, cc := range c.Connections {
		if cc.ID == id {
			return cc, nil
		}
	}
	if id == "" {
		return database.ConnectionContext{}, fmt.Errorf("%w: %d saved connections, pick one", ErrUnknownConnection, len(c.Connections))
	}
	return database.ConnectionContext{}, fmt.Errorf("%w: %q", ErrUnknownConnection, id)
}

func (c Config) tabsPath() string {
	return filepath.Join(c.DataDir, store.DefaultFileName)
}

func (c Config) defaultDriver() string {
	if c.DefaultDriver == "" {
		return postgres.DriverName
	}
	return c.DefaultDriver
}
