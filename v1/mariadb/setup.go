package mariadb

import (
	"context"
	"crypto/tls"
	"crypto/x509"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/go-sql-driver/mysql"

	"github.com/Aleph-Alpha/workbench/v1/database"
	"github.com/Aleph-Alpha/workbench/v1/logger"
)

// DriverName is the ConnectionContext.Driver value served by this package.
const DriverName = "mariadb"

const verifyCATLSConfig = "workbench-verify-ca"

var registerTLSOnce sync.Once

// Driver opens single MariaDB/MySQL connections.
type Driver struct {
	cfg    Config
	logger logger.Logger
}

var _ database.Driver = (*Driver)(nil)

// NewDriver returns a MariaDB/MySQL driver.
func NewDriver(cfg Config, log logger.Logger) *Driver {
	registerTLSOnce.Do(func() {
		_ = mysql.RegisterTLSConfig(verifyCATLSConfig, verifyCAConfig())
	})
	return &Driver{cfg: cfg.withDefaults(), logger: log}
}

// Name implements database.Driver.
func (d *Driver) Name() string {
	return DriverName
}

// Connect implements database.Driver.
func (d *Driver) Connect(ctx context.Context, cc database.ConnectionContext, password string) (database.Handle, error) {
	mcfg, err := d.mysqlConfig(cc, password)
	if err != nil {
		return nil, database.NewConnectionError(database.KindUnknown, err)
	}

	connector, err := mysql.NewConnector(mcfg)
	if err != nil {
		return nil, database.NewConnectionError(database.KindUnknown, fmt.Errorf("invalid connection settings: %w", err))
	}

	db := sql.OpenDB(connector)
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	conn, err := db.Conn(ctx)
	if err == nil {
		err = conn.PingContext(ctx)
		if err != nil {
			_ = conn.Close()
		}
	}
	if err != nil {
		_ = db.Close()
		cerr := TranslateError(err, cc.Database)
		d.logger.Debug("mariadb connect failed", err, map[string]interface{}{
			"connection_id": cc.ID,
			"host":          cc.Host,
			"kind":          cerr.Kind.String(),
		})
		return nil, cerr
	}

	d.logger.Debug("mariadb connection established", nil, map[string]interface{}{
		"connection_id": cc.ID,
		"host":          cc.Host,
		"database":      cc.Database,
		"tls_mode":      string(cc.EffectiveTLSMode()),
	})

	return &handle{db: db, conn: conn}, nil
}

func (d *Driver) mysqlConfig(cc database.ConnectionContext, password string) (*mysql.Config, error) {
	mcfg := mysql.NewConfig()
	mcfg.User = cc.Username
	mcfg.Passwd = password
	mcfg.DBName = cc.Database
	mcfg.Timeout = d.cfg.ConnectTimeout
	mcfg.ReadTimeout = d.cfg.ReadTimeout
	mcfg.WriteTimeout = d.cfg.WriteTimeout
	mcfg.ParseTime = true
	mcfg.Params = map[string]string{"charset": d.cfg.Charset}

	if strings.HasPrefix(cc.Host, "/") {
		mcfg.Net = "unix"
		mcfg.Addr = cc.Host
	} else {
		mcfg.Net = "tcp"
		port := cc.Port
		if port == 0 {
			port = 3306
		}
		mcfg.Addr = database.ConnectionContext{Host: cc.Host, Port: port}.Address()
	}

	if d.cfg.Loc != "" {
		loc, err := time.LoadLocation(d.cfg.Loc)
		if err != nil {
			return nil, fmt.Errorf("invalid loc %q: %w", d.cfg.Loc, err)
		}
		mcfg.Loc = loc
	} else {
		mcfg.Loc = time.Local
	}

	switch cc.EffectiveTLSMode() {
	case database.TLSDisable:
		mcfg.TLSConfig = "false"
	case database.TLSRequire:
		mcfg.TLSConfig = "skip-verify"
	case database.TLSVerifyCA:
		mcfg.TLSConfig = verifyCATLSConfig
	case database.TLSVerifyFull:
		mcfg.TLSConfig = "true"
	default:
		return nil, fmt.Errorf("%w: unknown tls mode %q", database.ErrInvalidConnectionContext, cc.TLSMode)
	}

	return mcfg, nil
}

// verifyCAConfig verifies the server chain against the system roots while
// accepting any host name.
func verifyCAConfig() *tls.Config {
	return &tls.Config{
		InsecureSkipVerify: true,
		VerifyConnection: func(cs tls.ConnectionState) error {
			if len(cs.PeerCertificates) == 0 {
				return errors.New("server presented no certificate")
			}
			opts := x509.VerifyOptions{Intermediates: x509.NewCertPool()}
			for _, c := range cs.PeerCertificates[1:] {
				opts.Intermediates.AddCert(c)
			}
			_, err := cs.PeerCertificates[0].Verify(opts)
			return err
		},
	}
}
