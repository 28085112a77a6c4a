// Package database defines what the workbench needs from a SQL server
// driver: a Driver that opens exactly one Handle per connection context,
// the Rows a query yields, optional metadata lookups, and the typed
// ConnectionError every driver translates its native failures into.
//
// The concrete drivers live in sibling packages:
//   - postgres.Driver (github.com/jackc/pgx/v5)
//   - mariadb.Driver (github.com/go-sql-driver/mysql)
//
// A Registry selects between them by ConnectionContext.Driver and itself
// satisfies Driver, so the connection manager never knows which server it
// talks to:
//
//	reg := database.NewRegistry(postgres.NewDriver(log), mariadb.NewDriver(log))
//	h, err := reg.Connect(ctx, database.ConnectionContext{
//	    ID:       "local",
//	    Driver:   "postgres",
//	    Host:     "localhost",
//	    Port:     5432,
//	    Username: "postgres",
//	    Database: "app",
//	}, password)
//
// # TLS
//
// TLSMode is modelled abstractly. When a context leaves it empty,
// DefaultTLSMode picks disable for loopback hosts and unix sockets and
// require for everything else. Drivers map the mode to their transport.
//
// # Dialects
//
// Statements the workbench generates itself (table browse, row update and
// delete) are rendered through Dialect so identifier quoting and bind
// placeholders match the server.
package database
