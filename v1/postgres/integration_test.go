//go:build integration

package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"net"
	"strconv"
	"testing"
	"time"

	"github.com/docker/docker/api/types/container"
	"github.com/docker/go-connections/nat"
	_ "github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
	"go.uber.org/fx"
	"go.uber.org/fx/fxtest"

	"github.com/Aleph-Alpha/workbench/v1/database"
	"github.com/Aleph-Alpha/workbench/v1/logger"
)

// PostgresContainer is a throwaway server for driver tests.
type PostgresContainer struct {
	testcontainers.Container
	Host string
	Port int
}

func (c *PostgresContainer) ConnectionContext() database.ConnectionContext {
	return database.ConnectionContext{
		ID:       "integration",
		Driver:   DriverName,
		Host:     c.Host,
		Port:     c.Port,
		Username: "testuser",
		Database: "testdb",
		TLSMode:  database.TLSDisable,
	}
}

func setupPostgresContainer(ctx context.Context) (*PostgresContainer, error) {
	port, err := getFreePort()
	if err != nil {
		return nil, fmt.Errorf("could not get free port: %w", err)
	}

	portBindings := nat.PortMap{
		"5432/tcp": []nat.PortBinding{{HostPort: strconv.Itoa(port)}},
	}

	req := testcontainers.ContainerRequest{
		Image: "postgres:15",
		Env: map[string]string{
			"POSTGRES_USER":     "testuser",
			"POSTGRES_PASSWORD": "testpass",
			"POSTGRES_DB":       "testdb",
		},
		ExposedPorts: []string{"5432/tcp"},
		HostConfigModifier: func(cfg *container.HostConfig) {
			cfg.PortBindings = portBindings
		},
		WaitingFor: wait.ForLog("database system is ready to accept connections").WithStartupTimeout(30 * time.Second),
	}

	c, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: req,
		Started:          true,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to start postgres container: %w", err)
	}

	host, err := c.Host(ctx)
	if err != nil {
		_ = c.Terminate(ctx)
		return nil, fmt.Errorf("failed to get host: %w", err)
	}

	mappedPort, err := c.MappedPort(ctx, "5432")
	if err != nil {
		_ = c.Terminate(ctx)
		return nil, fmt.Errorf("failed to get mapped port: %w", err)
	}

	if err := waitForPostgresReady(host, mappedPort.Port(), 30*time.Second); err != nil {
		_ = c.Terminate(ctx)
		return nil, fmt.Errorf("postgres container not ready: %w", err)
	}

	return &PostgresContainer{Container: c, Host: host, Port: mappedPort.Int()}, nil
}

func getFreePort() (int, error) {
	l, err := net.Listen("tcp", "localhost:0")
	if err != nil {
		return 0, err
	}
	defer func() { _ = l.Close() }()
	return l.Addr().(*net.TCPAddr).Port, nil
}

// waitForPostgresReady probes through lib/pq, independent of the driver under test.
func waitForPostgresReady(host, port string, timeout time.Duration) error {
	dsn := fmt.Sprintf("host=%s port=%s user=testuser password=testpass dbname=testdb sslmode=disable", host, port)
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		db, err := sql.Open("postgres", dsn)
		if err == nil {
			err = db.Ping()
			_ = db.Close()
			if err == nil {
				return nil
			}
		}
		time.Sleep(500 * time.Millisecond)
	}
	return fmt.Errorf("timed out after %s", timeout)
}

func TestDriverAgainstPostgres(t *testing.T) {
	if testing.Short() {
		t.Skip("Skipping integration test in short mode")
	}

	ctx := context.Background()
	pgc, err := setupPostgresContainer(ctx)
	require.NoError(t, err)
	defer func() {
		if err := pgc.Terminate(ctx); err != nil {
			t.Fatalf("failed to terminate container: %s", err)
		}
	}()

	var drivers struct {
		fx.In
		All []database.Driver `group:"database.drivers"`
	}
	app := fxtest.New(t,
		fx.Provide(
			func() Config { return Config{} },
			func() logger.Logger { return logger.NewNop() },
		),
		FXModule,
		fx.Populate(&drivers),
	)
	app.RequireStart()
	defer app.RequireStop()

	require.Len(t, drivers.All, 1)
	drv := drivers.All[0]
	assert.Equal(t, DriverName, drv.Name())

	t.Run("AuthenticationFailed", func(t *testing.T) {
		_, err := drv.Connect(ctx, pgc.ConnectionContext(), "wrong")
		assert.ErrorIs(t, err, database.ErrAuthenticationFailed)
	})

	t.Run("DatabaseNotFound", func(t *testing.T) {
		cc := pgc.ConnectionContext()
		cc.Database = "missing"
		_, err := drv.Connect(ctx, cc, "testpass")
		assert.ErrorIs(t, err, database.ErrDatabaseNotFound)
	})

	h, err := drv.Connect(ctx, pgc.ConnectionContext(), "testpass")
	require.NoError(t, err)
	defer func() { _ = h.Close(ctx) }()

	require.NoError(t, h.Ping(ctx))

	_, err = h.Exec(ctx, `CREATE TABLE public.users (tenant int, id int, name text, PRIMARY KEY (tenant, id))`)
	require.NoError(t, err)
	n, err := h.Exec(ctx, `INSERT INTO public.users VALUES (1, 1, 'ada'), (1, 2, 'grace'), (2, 1, 'edsger')`)
	require.NoError(t, err)
	assert.Equal(t, int64(3), n)

	t.Run("BrowsePage", func(t *testing.T) {
		ref := database.TableRef{Schema: "public", Table: "users"}
		rows, err := h.Query(ctx, h.Dialect().BrowseQuery(ref, 3, 1))
		require.NoError(t, err)
		cols, data, err := database.CollectRows(ctx, rows, 0)
		require.NoError(t, err)
		assert.Equal(t, []string{"tenant", "id", "name"}, cols)
		assert.Len(t, data, 2)
	})

	t.Run("PrimaryKey", func(t *testing.T) {
		pk, err := h.(database.MetadataProvider).PrimaryKey(ctx, database.TableRef{Schema: "public", Table: "users"})
		require.NoError(t, err)
		assert.Equal(t, []string{"tenant", "id"}, pk)
	})

	t.Run("UpdateCellByPrimaryKey", func(t *testing.T) {
		ref := database.TableRef{Schema: "public", Table: "users"}
		sql := h.Dialect().UpdateCellQuery(ref, "name", []string{"tenant", "id"})
		n, err := h.Exec(ctx, sql, "ada lovelace", 1, 1)
		require.NoError(t, err)
		assert.Equal(t, int64(1), n)
	})

	t.Run("QueryHonoursContext", func(t *testing.T) {
		qctx, cancel := context.WithTimeout(ctx, 100*time.Millisecond)
		defer cancel()
		_, err := h.Exec(qctx, "SELECT pg_sleep(5)")
		assert.Error(t, err)
	})
}
