// Package mariadb implements database.Driver for MariaDB and MySQL using
// github.com/go-sql-driver/mysql.
//
// A database/sql pool capped at one connection backs every handle, and the
// handle pins a single *sql.Conn from it, so session state such as USE or
// SET statements survives between queries the way a desktop client expects.
//
//	drv := mariadb.NewDriver(mariadb.Config{}, log)
//	h, err := drv.Connect(ctx, database.ConnectionContext{
//	    ID:       "shop",
//	    Driver:   "mariadb",
//	    Host:     "127.0.0.1",
//	    Port:     3306,
//	    Username: "root",
//	    Database: "shop",
//	}, password)
//
// TLS modes map onto the driver's tls parameter: disable is "false",
// require is "skip-verify", verify-full is "true", and verify-ca uses a
// registered configuration that checks the chain but not the host name.
package mariadb
