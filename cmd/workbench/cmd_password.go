package main

import (
	"bufio"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/Aleph-Alpha/workbench/v1/vault"
)

// ErrEmptyPassword is returned when no password was entered.
var ErrEmptyPassword = errors.New("password cannot be empty")

func (c *cli) newPasswordCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "password",
		Short: "Manage saved connection passwords in the system keyring",
	}

	set := &cobra.Command{
		Use:   "set <connection-id>",
		Short: "Save the password of a connection",
		Long: `Save the password of a saved connection. On a terminal the password is
read without echo; otherwise the first line of stdin is used.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cc, err := c.cfg.LookupConnection(args[0])
			if err != nil {
				return err
			}
			v, err := c.vault(c.cfg.Vault)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.ErrOrStderr(), "Password for %s@%s: ", cc.Username, cc.Address())
			secret, err := c.readPassword()
			fmt.Fprintln(cmd.ErrOrStderr())
			if err != nil {
				return err
			}
			if err := v.Set(cc.ID, secret); err != nil {
				return fmt.Errorf("saving password: %w", err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "saved password for %q\n", cc.ID)
			return nil
		},
	}

	del := &cobra.Command{
		Use:   "delete <connection-id>",
		Short: "Remove the password of a connection",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cc, err := c.cfg.LookupConnection(args[0])
			if err != nil {
				return err
			}
			v, err := c.vault(c.cfg.Vault)
			if err != nil {
				return err
			}
			if err := v.Delete(cc.ID); err != nil {
				return fmt.Errorf("deleting password: %w", err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "deleted password for %q\n", cc.ID)
			return nil
		},
	}

	cmd.AddCommand(set, del)
	return cmd
}

func (c *cli) readPassword() (string, error) {
	if f, ok := c.in.(*os.File); ok && term.IsTerminal(int(f.Fd())) {
		b, err := term.ReadPassword(int(f.Fd()))
		if err != nil {
			return "", fmt.Errorf("reading password: %w", err)
		}
		if len(b) == 0 {
			return "", ErrEmptyPassword
		}
		return string(b), nil
	}

	line, err := bufio.NewReader(c.in).ReadString('\n')
	line = strings.TrimRight(line, "\r\n")
	if line == "" {
		if err != nil {
			return "", fmt.Errorf("reading password: %w", err)
		}
		return "", ErrEmptyPassword
	}
	return line, nil
}
