package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/Aleph-Alpha/workbench/v1/workspace"
)

func (c *cli) newTestConnectionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "test-connection",
		Short: "Check that a saved connection can be reached",
		Long: `Open and close a probe connection. The state of the workspace tabs is
not changed.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.withWorkspace(cmd.Context(), func(w *workspace.Workspace) error {
				cc, err := c.cfg.LookupConnection(c.connection)
				if err != nil {
					return err
				}
				if err := w.TestConnection(cmd.Context(), cc.ID); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "connection %q OK (%s)\n", cc.ID, cc.Address())
				return nil
			})
		},
	}
}
