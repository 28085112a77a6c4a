package main

import (
	"fmt"
	"io"
	"time"

	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"

	"github.com/Aleph-Alpha/workbench/v1/database"
	"github.com/Aleph-Alpha/workbench/v1/query"
	"github.com/Aleph-Alpha/workbench/v1/workspace"
)

func (c *cli) newQueryCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "query [sql]",
		Short: "Run a statement in the active tab",
		Long: `Connect the active tab and run the statement. Without an argument the
tab's saved query text is run again.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			req := query.SQL("")
			if len(args) == 1 {
				req = query.SQL(args[0])
			}
			return c.run(cmd, req)
		},
	}
}

func (c *cli) newBrowseCmd() *cobra.Command {
	var page, pageSize int
	cmd := &cobra.Command{
		Use:   "browse <schema.table>",
		Short: "Show one page of a table",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ref := database.ParseTableRef(args[0])
			if ref.IsZero() {
				return fmt.Errorf("invalid table %q", args[0])
			}
			return c.run(cmd, query.Browse(ref, page, pageSize))
		},
	}
	cmd.Flags().IntVarP(&page, "page", "p", 0, "0-based page number")
	cmd.Flags().IntVar(&pageSize, "page-size", 0, "rows per page (default: query.page_size)")
	return cmd
}

func (c *cli) run(cmd *cobra.Command, req query.Request) error {
	return c.withWorkspace(cmd.Context(), func(w *workspace.Workspace) error {
		if _, err := w.Connect(cmd.Context(), c.connection); err != nil {
			return err
		}
		out, err := w.Run(cmd.Context(), req)
		if err != nil {
			return err
		}
		return printOutcome(cmd.OutOrStdout(), out)
	})
}

// printOutcome renders a result set as a table, or the affected row count
// for statements without one.
func printOutcome(w io.Writer, out query.Outcome) error {
	if !out.Success {
		if out.Err != nil {
			return out.Err
		}
		return query.ErrQueryFailed
	}

	if len(out.Columns) == 0 {
		fmt.Fprintf(w, "%s: %d row%s affected (%s)\n",
			out.QueryType, out.RowsAffected, plural(out.RowsAffected), out.Elapsed.Round(time.Millisecond))
		return nil
	}

	table := tablewriter.NewWriter(w)
	table.SetAutoFormatHeaders(false)
	table.SetAutoWrapText(false)
	table.SetHeader(out.Columns)
	for _, row := range out.Rows {
		cells := make([]string, len(row))
		for i, v := range row {
			cells[i] = formatValue(v)
		}
		table.Append(cells)
	}
	table.Render()

	n := int64(len(out.Rows))
	fmt.Fprintf(w, "(%d row%s, %s)\n", n, plural(n), out.Elapsed.Round(time.Millisecond))
	if out.Truncated {
		fmt.Fprintln(w, "result truncated; refine the query to see the remaining rows")
	}
	if out.HasNextPage {
		fmt.Fprintf(w, "more rows available: --page %d\n", out.Pagination.Page+1)
	}
	return nil
}

func formatValue(v any) string {
	switch t := v.(type) {
	case nil:
		return "NULL"
	case []byte:
		return string(t)
	case time.Time:
		return t.Format(time.RFC3339Nano)
	default:
		return fmt.Sprint(t)
	}
}

func plural(n int64) string {
	if n == 1 {
		return ""
	}
	return "s"
}
