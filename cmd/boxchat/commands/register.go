package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"boxchat/internal/domain"
)

func (c *cli) registerCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "register <username> <password>",
		Short: "Create an account on the relay",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			username := domain.Username(args[0])
			if err := c.wire.IDs.Register(cmd.Context(), username, args[1]); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Registered %s\nFingerprint: %s\n", username, c.wire.IDs.Fingerprint())
			return nil
		},
	}
}
