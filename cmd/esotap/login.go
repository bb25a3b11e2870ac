package main

import (
	"bufio"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
)

func newLoginCmd(opts *options) *cobra.Command {
	var username string

	cmd := &cobra.Command{
		Use:   "login",
		Short: "verify archive credentials",
		Long: `Verify archive credentials against the SSO service.

Tokens live only in memory, so this command checks that the configured
(or prompted) credentials work; put them in the configuration file to
use them for downloads.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if username == "" {
				username = opts.cfg.Username
			}
			password := opts.cfg.Password

			reader := bufio.NewReader(os.Stdin)
			if username == "" {
				fmt.Fprint(os.Stderr, "Username: ")
				line, err := reader.ReadString('\n')
				if err != nil {
					return err
				}
				username = strings.TrimSpace(line)
			}
			if password == "" {
				fmt.Fprint(os.Stderr, "Password: ")
				line, err := reader.ReadString('\n')
				if err != nil {
					return err
				}
				password = strings.TrimSpace(line)
			}

			// Skip the eager config login; this command does its own.
			cfg := *opts.cfg
			cfg.Username = ""
			probe := *opts
			probe.cfg = &cfg

			client, shutdown, err := probe.newClient(cmd.Context())
			if err != nil {
				return err
			}
			defer shutdown()

			if !client.Login(cmd.Context(), username, password) {
				return fmt.Errorf("login failed for %s", username)
			}
			fmt.Printf("Authenticated as %s\n", username)
			return nil
		},
	}

	cmd.Flags().StringVarP(&username, "username", "u", "", "archive account name")

	return cmd
}
