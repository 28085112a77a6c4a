package postgres

import (
	"errors"

	"github.com/jackc/pgx/v5/pgconn"

	"github.com/Aleph-Alpha/workbench/v1/database"
)

// SQLSTATE codes that change how a connect failure is reported.
const (
	codeInvalidPassword          = "28P01"
	codeInvalidAuthorization     = "28000"
	codeInvalidCatalogName       = "3D000"
	codeCannotConnectNow         = "57P03"
	codeTooManyConnections       = "53300"
	codeQueryCanceled            = "57014"
	codeAdminShutdown            = "57P01"
	codeConnectionFailure        = "08006"
	codeConnectionDoesNotExist   = "08003"
	codeSQLClientUnableToConnect = "08001"
)

// TranslateError maps a pgx connect error onto a *database.ConnectionError.
// dbName is reported for missing databases.
func TranslateError(err error, dbName string) *database.ConnectionError {
	if err == nil {
		return nil
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case codeInvalidPassword, codeInvalidAuthorization:
			return database.NewConnectionError(database.KindAuthenticationFailed, err)
		case codeInvalidCatalogName:
			return &database.ConnectionError{Kind: database.KindDatabaseNotFound, Database: dbName, Cause: err}
		case codeCannotConnectNow, codeAdminShutdown, codeTooManyConnections,
			codeConnectionFailure, codeConnectionDoesNotExist, codeSQLClientUnableToConnect:
			return database.NewConnectionError(database.KindNetworkUnreachable, err)
		case codeQueryCanceled:
			return database.NewConnectionError(database.KindCancelled, err)
		}
		return database.NewConnectionError(database.KindUnknown, err)
	}

	if pgconn.Timeout(err) {
		return database.NewConnectionError(database.KindTimeout, err)
	}

	cerr := database.ClassifyError(err)
	if cerr.Kind == database.KindUnknown {
		var connectErr *pgconn.ConnectError
		if errors.As(err, &connectErr) {
			return database.NewConnectionError(database.KindNetworkUnreachable, err)
		}
	}
	return cerr
}
