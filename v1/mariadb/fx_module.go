package mariadb

import (
	"go.uber.org/fx"

	"github.com/Aleph-Alpha/workbench/v1/database"
)

// FXModule provides *Driver and contributes it to the "database.drivers"
// value group.
//
// A mariadb.Config and a logger.Logger must be available in the container.
var FXModule = fx.Module("mariadb",
	fx.Provide(
		NewDriver,
		fx.Annotate(
			ProvideDriver,
			fx.ResultTags(`group:"database.drivers"`),
		),
	),
)

// ProvideDriver exposes *Driver as database.Driver.
func ProvideDriver(d *Driver) database.Driver {
	return d
}
