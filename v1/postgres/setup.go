package postgres

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/jackc/pgx/v5"

	"github.com/Aleph-Alpha/workbench/v1/database"
	"github.com/Aleph-Alpha/workbench/v1/logger"
)

// DriverName is the ConnectionContext.Driver value served by this package.
const DriverName = "postgres"

// Driver opens single pgx connections.
type Driver struct {
	cfg    Config
	logger logger.Logger
}

var _ database.Driver = (*Driver)(nil)

// NewDriver returns a PostgreSQL driver.
func NewDriver(cfg Config, log logger.Logger) *Driver {
	return &Driver{cfg: cfg.withDefaults(), logger: log}
}

// Name implements database.Driver.
func (d *Driver) Name() string {
	return DriverName
}

// Connect implements database.Driver.
func (d *Driver) Connect(ctx context.Context, cc database.ConnectionContext, password string) (database.Handle, error) {
	connConfig, err := pgx.ParseConfig(d.connString(cc, password))
	if err != nil {
		return nil, database.NewConnectionError(database.KindUnknown, fmt.Errorf("invalid connection settings: %w", err))
	}

	conn, err := pgx.ConnectConfig(ctx, connConfig)
	if err != nil {
		cerr := TranslateError(err, cc.Database)
		d.logger.Debug("postgres connect failed", err, map[string]interface{}{
			"connection_id": cc.ID,
			"host":          cc.Host,
			"kind":          cerr.Kind.String(),
		})
		return nil, cerr
	}

	d.logger.Debug("postgres connection established", nil, map[string]interface{}{
		"connection_id": cc.ID,
		"host":          cc.Host,
		"database":      cc.Database,
		"tls_mode":      string(cc.EffectiveTLSMode()),
	})

	return &handle{conn: conn}, nil
}

// connString renders a keyword/value connection string. The TLS mode maps
// one to one onto libpq sslmode values.
func (d *Driver) connString(cc database.ConnectionContext, password string) string {
	params := []struct{ key, value string }{
		{"host", cc.Host},
		{"user", cc.Username},
		{"password", password},
		{"dbname", cc.Database},
		{"sslmode", string(cc.EffectiveTLSMode())},
		{"application_name", d.cfg.ApplicationName},
		{"connect_timeout", strconv.Itoa(int(d.cfg.ConnectTimeout.Seconds()))},
	}
	if cc.Port > 0 {
		params = append(params, struct{ key, value string }{"port", strconv.Itoa(cc.Port)})
	}
	if d.cfg.StatementTimeout > 0 {
		params = append(params, struct{ key, value string }{"statement_timeout", strconv.FormatInt(d.cfg.StatementTimeout.Milliseconds(), 10)})
	}

	parts := make([]string, 0, len(params))
	for _, p := range params {
		if p.value == "" {
			continue
		}
		parts = append(parts, p.key+"="+quoteConnValue(p.value))
	}
	return strings.Join(parts, " ")
}

func quoteConnValue(v string) string {
	if !strings.ContainsAny(v, ` '\`) {
		return v
	}
	r := strings.NewReplacer(`\`, `\\`, `'`, `\'`)
	return "'" + r.Replace(v) + "'"
}
