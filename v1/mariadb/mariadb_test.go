package mariadb

import (
	"context"
	"database/sql/driver"
	"errors"
	"fmt"
	"testing"

	"github.com/go-sql-driver/mysql"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Aleph-Alpha/workbench/v1/database"
	"github.com/Aleph-Alpha/workbench/v1/logger"
)

func TestTranslateError(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want database.ErrorKind
	}{
		{"access denied", &mysql.MySQLError{Number: 1045}, database.KindAuthenticationFailed},
		{"db access denied", &mysql.MySQLError{Number: 1044}, database.KindAuthenticationFailed},
		{"unknown database", &mysql.MySQLError{Number: 1049}, database.KindDatabaseNotFound},
		{"too many connections", &mysql.MySQLError{Number: 1040}, database.KindNetworkUnreachable},
		{"wrapped", fmt.Errorf("dial: %w", &mysql.MySQLError{Number: 1045}), database.KindAuthenticationFailed},
		{"bad conn", driver.ErrBadConn, database.KindNetworkUnreachable},
		{"invalid conn", mysql.ErrInvalidConn, database.KindNetworkUnreachable},
		{"deadline", context.DeadlineExceeded, database.KindTimeout},
		{"plain", errors.New("weird"), database.KindUnknown},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := TranslateError(tt.err, "shop")
			assert.Equal(t, tt.want, got.Kind)
		})
	}
	assert.Equal(t, "shop", TranslateError(&mysql.MySQLError{Number: 1049}, "shop").Database)
}

func TestMySQLConfig(t *testing.T) {
	d := NewDriver(Config{}, logger.NewNop())

	mcfg, err := d.mysqlConfig(database.ConnectionContext{
		Host:     "db.example.com",
		Port:     3307,
		Username: "app",
		Database: "shop",
	}, "pw")
	require.NoError(t, err)
	assert.Equal(t, "tcp", mcfg.Net)
	assert.Equal(t, "db.example.com:3307", mcfg.Addr)
	assert.Equal(t, "skip-verify", mcfg.TLSConfig)
	assert.Equal(t, "pw", mcfg.Passwd)
	assert.Equal(t, DefaultConnectTimeout, mcfg.Timeout)
	assert.Equal(t, "utf8mb4", mcfg.Params["charset"])

	mcfg, err = d.mysqlConfig(database.ConnectionContext{Host: "/run/mysqld/mysqld.sock"}, "")
	require.NoError(t, err)
	assert.Equal(t, "unix", mcfg.Net)
	assert.Equal(t, "false", mcfg.TLSConfig)

	mcfg, err = d.mysqlConfig(database.ConnectionContext{Host: "localhost", TLSMode: database.TLSVerifyCA}, "")
	require.NoError(t, err)
	assert.Equal(t, verifyCATLSConfig, mcfg.TLSConfig)
	assert.Equal(t, "localhost:3306", mcfg.Addr)

	_, err = d.mysqlConfig(database.ConnectionContext{Host: "localhost", TLSMode: "odd"}, "")
	assert.ErrorIs(t, err, database.ErrInvalidConnectionContext)
}
