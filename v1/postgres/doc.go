// Package postgres implements database.Driver for PostgreSQL on top of
// github.com/jackc/pgx/v5.
//
// Each Connect opens exactly one *pgx.Conn; there is no pool, because the
// workbench holds a single connection per tab. The returned handle also
// implements database.MetadataProvider so the query engine can look up
// primary keys for editable results.
//
// Basic usage:
//
//	drv := postgres.NewDriver(postgres.Config{ApplicationName: "workbench"}, log)
//	h, err := drv.Connect(ctx, database.ConnectionContext{
//	    ID:       "local",
//	    Host:     "localhost",
//	    Port:     5432,
//	    Username: "postgres",
//	    Database: "app",
//	}, password)
//	if err != nil {
//	    // err is a *database.ConnectionError
//	}
//	defer h.Close(ctx)
//
// Native failures are mapped by TranslateError: SQLSTATE 28P01 and 28000
// become authentication failures, 3D000 a missing database, and dial or
// timeout errors the network and timeout kinds.
//
// With fx, include FXModule; it contributes the driver to the
// "database.drivers" value group consumed by the workspace registry.
package postgres
