// workbench is a command line front end for a workbench session: it runs
// queries and browses tables through the persisted tabs of the workspace.
package main

import (
	"os"
)

func main() {
	if err := newRootCmd(os.Stdin, os.Stdout).Execute(); err != nil {
		os.Exit(1)
	}
}
