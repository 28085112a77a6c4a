package main

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Aleph-Alpha/workbench/v1/database"
	"github.com/Aleph-Alpha/workbench/v1/database/dbtest"
	"github.com/Aleph-Alpha/workbench/v1/logger"
	"github.com/Aleph-Alpha/workbench/v1/query"
	"github.com/Aleph-Alpha/workbench/v1/sqlclass"
	"github.com/Aleph-Alpha/workbench/v1/store"
	"github.com/Aleph-Alpha/workbench/v1/tabs"
	"github.com/Aleph-Alpha/workbench/v1/vault"
	"github.com/Aleph-Alpha/workbench/v1/workspace"
)

const testConfigYAML = `
data_dir: %s
query:
  page_size: 25
vault:
  backend: memory
connections:
  - id: local
    driver: fake
    host: localhost
    port: 5432
    username: ann
    database: app
`

func writeConfig(t *testing.T) (path, dataDir string) {
	t.Helper()
	dir := t.TempDir()
	path = filepath.Join(dir, "workbench.yaml")
	require.NoError(t, os.WriteFile(path, []byte(strings.Replace(testConfigYAML, "%s", dir, 1)), 0o600))
	return path, dir
}

func TestLoadConfig_FileAndEnv(t *testing.T) {
	path, dir := writeConfig(t)
	t.Setenv("WORKBENCH_QUERY_TIMEOUT", "30s")

	cfg, err := loadConfig(viper.New(), path)
	require.NoError(t, err)

	assert.Equal(t, dir, cfg.DataDir)
	assert.Equal(t, 25, cfg.Query.PageSize)
	assert.Equal(t, 30*time.Second, cfg.Query.Timeout)
	assert.Equal(t, 10000, cfg.Query.MaxRows)
	assert.Equal(t, vault.BackendMemory, cfg.Vault.Backend)
	assert.Equal(t, store.BackendFile, cfg.Store.Backend)
	assert.Equal(t, logger.Error, cfg.Logger.Level)

	require.Len(t, cfg.Connections, 1)
	cc := cfg.Connections[0]
	assert.Equal(t, "local", cc.ID)
	assert.Equal(t, 5432, cc.Port)
	assert.Equal(t, "app", cc.Database)
}

func TestLoadConfig_MissingDefaultFileIsFine(t *testing.T) {
	v := viper.New()
	v.Set("data_dir", t.TempDir())
	cfg, err := loadConfig(v, "")
	require.NoError(t, err)
	assert.Equal(t, 15*time.Second, cfg.Connection.ConnectTimeout)
	assert.Empty(t, cfg.Connections)
}

func TestLoadConfig_ExplicitFileMustExist(t *testing.T) {
	_, err := loadConfig(viper.New(), filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}

type harness struct {
	cli   *cli
	out   *bytes.Buffer
	drv   *dbtest.Driver
	vault *vault.Memory
}

func newHarness(t *testing.T, stdin string) *harness {
	t.Helper()
	drv := dbtest.New("fake", database.DialectPostgres)
	drv.AddTable(database.TableRef{Schema: "public", Table: "users"},
		[]string{"id", "name"}, []string{"id"},
		[]any{1, "ann"}, []any{2, nil})

	out := &bytes.Buffer{}
	h := &harness{cli: newCLI(strings.NewReader(stdin), out), out: out, drv: drv, vault: vault.NewMemory()}
	h.cli.open = func(ctx context.Context, cfg workspace.Config) (*workspace.Workspace, error) {
		w := workspace.New(cfg, tabs.Dependencies{
			Driver: drv,
			Store:  store.NewFileStore[tabs.TabRecord](filepath.Join(cfg.DataDir, store.DefaultFileName), logger.NewNop()),
			Logger: logger.NewNop(),
			Vault:  h.vault,
		})
		return w, w.Start(ctx)
	}
	h.cli.vault = func(vault.Config) (vault.Vault, error) { return h.vault, nil }
	return h
}

func (h *harness) run(t *testing.T, args ...string) error {
	t.Helper()
	path, _ := writeConfig(t)
	root := h.cli.command()
	root.SetArgs(append([]string{"--config", path}, args...))
	return root.ExecuteContext(context.Background())
}

func TestQueryCommand(t *testing.T) {
	h := newHarness(t, "")
	require.NoError(t, h.run(t, "query", "SELECT * FROM users"))

	out := h.out.String()
	assert.Contains(t, out, "ann")
	assert.Contains(t, out, "NULL")
	assert.Contains(t, out, "(2 rows")
	assert.Equal(t, int64(0), h.drv.Live(), "workspace closed after the command")
}

func TestQueryCommand_Failure(t *testing.T) {
	h := newHarness(t, "")
	h.drv.SetQueryError(assert.AnError)
	err := h.run(t, "query", "SELECT * FROM users")
	assert.ErrorIs(t, err, query.ErrQueryFailed)
}

func TestBrowseCommand(t *testing.T) {
	h := newHarness(t, "")
	require.NoError(t, h.run(t, "browse", "public.users", "--page-size", "1"))

	out := h.out.String()
	assert.Contains(t, out, "ann")
	assert.Contains(t, out, "(1 row,")
	assert.Contains(t, out, "more rows available: --page 1")

	assert.Error(t, h.run(t, "browse", " "))
}

func TestTestConnectionCommand(t *testing.T) {
	h := newHarness(t, "")
	require.NoError(t, h.run(t, "test-connection", "--connection", "local"))
	assert.Contains(t, h.out.String(), `connection "local" OK (localhost:5432)`)
	assert.Equal(t, int64(1), h.drv.Opened())

	assert.ErrorIs(t, h.run(t, "test-connection", "-c", "nope"), workspace.ErrUnknownConnection)
}

func TestPasswordCommands(t *testing.T) {
	h := newHarness(t, "s3cret\n")
	require.NoError(t, h.run(t, "password", "set", "local"))
	got, err := h.vault.Get("local")
	require.NoError(t, err)
	assert.Equal(t, "s3cret", got)

	require.NoError(t, h.run(t, "password", "delete", "local"))
	_, err = h.vault.Get("local")
	assert.True(t, vault.IsNotFound(err))

	assert.ErrorIs(t, h.run(t, "password", "set", "nope"), workspace.ErrUnknownConnection)
}

func TestPasswordSet_EmptyInput(t *testing.T) {
	h := newHarness(t, "\n")
	assert.ErrorIs(t, h.run(t, "password", "set", "local"), ErrEmptyPassword)
}

func TestPrintOutcome(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, printOutcome(&buf, query.Outcome{
		Success:      true,
		QueryType:    sqlclass.Update,
		RowsAffected: 1,
	}))
	assert.Equal(t, "update: 1 row affected (0s)\n", buf.String())

	err := printOutcome(&buf, query.Outcome{Err: &query.QueryError{Kind: query.KindTimeout}})
	assert.ErrorIs(t, err, query.ErrQueryTimeout)
}

func TestFormatValue(t *testing.T) {
	ts := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	assert.Equal(t, "NULL", formatValue(nil))
	assert.Equal(t, "raw", formatValue([]byte("raw")))
	assert.Equal(t, "2026-01-02T03:04:05Z", formatValue(ts))
	assert.Equal(t, "42", formatValue(42))
}
