package mariadb

import (
	"database/sql/driver"
	"errors"

	"github.com/go-sql-driver/mysql"

	"github.com/Aleph-Alpha/workbench/v1/database"
)

// Server error numbers that change how a connect failure is reported.
const (
	erDBAccessDenied     = 1044
	erAccessDenied       = 1045
	erBadDB              = 1049
	erConCount           = 1040
	erServerShutdown     = 1053
	erQueryInterrupted   = 1317
	erAccessDeniedNoPass = 1698
)

// TranslateError maps a go-sql-driver connect error onto a
// *database.ConnectionError. dbName is reported for unknown databases.
func TranslateError(err error, dbName string) *database.ConnectionError {
	if err == nil {
		return nil
	}

	var myErr *mysql.MySQLError
	if errors.As(err, &myErr) {
		switch myErr.Number {
		case erAccessDenied, erDBAccessDenied, erAccessDeniedNoPass:
			return database.NewConnectionError(database.KindAuthenticationFailed, err)
		case erBadDB:
			return &database.ConnectionError{Kind: database.KindDatabaseNotFound, Database: dbName, Cause: err}
		case erConCount, erServerShutdown:
			return database.NewConnectionError(database.KindNetworkUnreachable, err)
		case erQueryInterrupted:
			return database.NewConnectionError(database.KindCancelled, err)
		}
		return database.NewConnectionError(database.KindUnknown, err)
	}

	if errors.Is(err, driver.ErrBadConn) || errors.Is(err, mysql.ErrInvalidConn) {
		return database.NewConnectionError(database.KindNetworkUnreachable, err)
	}

	return database.ClassifyError(err)
}
