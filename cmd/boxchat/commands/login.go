package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"boxchat/internal/domain"
)

func (c *cli) loginCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "login <username> <password>",
		Short: "Log in and print the bearer token",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			username := domain.Username(args[0])
			if err := c.wire.IDs.Login(cmd.Context(), username, args[1]); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Logged in as %s\nToken: %s\n", username, c.wire.Relay.Token())
			return nil
		},
	}
}
