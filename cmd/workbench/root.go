package main

import (
	"context"
	"io"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/Aleph-Alpha/workbench/v1/vault"
	"github.com/Aleph-Alpha/workbench/v1/workspace"
)

// cli carries the state shared by all commands.
type cli struct {
	v          *viper.Viper
	cfgFile    string
	connection string
	cfg        workspace.Config

	in  io.Reader
	out io.Writer

	// open and vault build the workspace and the credential vault; replaced
	// in tests.
	open  func(ctx context.Context, cfg workspace.Config) (*workspace.Workspace, error)
	vault func(cfg vault.Config) (vault.Vault, error)
}

func newRootCmd(in io.Reader, out io.Writer) *cobra.Command {
	return newCLI(in, out).command()
}

func newCLI(in io.Reader, out io.Writer) *cli {
	return &cli{
		v:   viper.New(),
		in:  in,
		out: out,
		open: func(ctx context.Context, cfg workspace.Config) (*workspace.Workspace, error) {
			return workspace.Open(ctx, cfg)
		},
		vault: vault.New,
	}
}

func (c *cli) command() *cobra.Command {
	root := &cobra.Command{
		Use:          "workbench",
		Short:        "Query and browse SQL databases through persisted workspace tabs",
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(c.v, c.cfgFile)
			if err != nil {
				return err
			}
			c.cfg = cfg
			return nil
		},
	}
	root.SetIn(c.in)
	root.SetOut(c.out)
	root.SetErr(os.Stderr)

	flags := root.PersistentFlags()
	flags.StringVar(&c.cfgFile, "config", "", "config file (default: <data-dir>/workbench.yaml or ./workbench.yaml)")
	flags.StringVarP(&c.connection, "connection", "c", "", "saved connection id (may be omitted when only one is saved)")
	flags.String("data-dir", "", "directory holding the tab checkpoint and config")
	flags.String("log-level", "", "log level (debug, info, warning, error)")
	flags.Duration("timeout", 0, "query timeout, e.g. 30s")
	_ = c.v.BindPFlag("data_dir", flags.Lookup("data-dir"))
	_ = c.v.BindPFlag("logger.level", flags.Lookup("log-level"))
	_ = c.v.BindPFlag("query.timeout", flags.Lookup("timeout"))

	root.AddCommand(
		c.newQueryCmd(),
		c.newBrowseCmd(),
		c.newTestConnectionCmd(),
		c.newPasswordCmd(),
	)
	return root
}

// withWorkspace opens the workspace, runs fn and closes the workspace,
// which checkpoints the tabs.
func (c *cli) withWorkspace(ctx context.Context, fn func(w *workspace.Workspace) error) (err error) {
	w, err := c.open(ctx, c.cfg)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := w.Close(context.WithoutCancel(ctx)); err == nil {
			err = cerr
		}
	}()
	return fn(w)
}
