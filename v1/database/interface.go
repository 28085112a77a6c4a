package database

import (
	"context"
)

// Driver opens connections to one kind of server.
//
//go:generate mockgen -source=interface.go -destination=mock_database.go -package=database
type Driver interface {
	// Name is the value of ConnectionContext.Driver this driver serves.
	Name() string

	// Connect opens a single live connection. Failures are returned as
	// *ConnectionError.
	Connect(ctx context.Context, cc ConnectionContext, password string) (Handle, error)
}

// Handle is one live connection. It is owned by exactly one connection
// manager and is not safe for concurrent use.
type Handle interface {
	// Query runs a statement that returns rows.
	Query(ctx context.Context, sql string, args ...any) (Rows, error)

	// Exec runs a statement and returns the number of affected rows.
	Exec(ctx context.Context, sql string, args ...any) (int64, error)

	// Ping verifies the connection is still usable.
	Ping(ctx context.Context) error

	// Close releases the connection. It must be called exactly once.
	Close(ctx context.Context) error

	// Dialect returns the SQL dialect spoken over this connection.
	Dialect() Dialect
}

// Rows is a forward-only cursor over a query result.
type Rows interface {
	Columns() []string
	Next() bool
	Values() ([]any, error)
	Err() error
	Close()
}

// MetadataProvider is implemented by handles that can describe tables.
type MetadataProvider interface {
	// PrimaryKey returns the primary key columns of ref in key order.
	// An empty slice means the table has no primary key.
	PrimaryKey(ctx context.Context, ref TableRef) ([]string, error)
}
