package commands

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"boxchat/internal/domain"
)

// send <username> <password> <to> <message...>: sign in, then encrypt and
// send one message to <to>.
func (c *cli) sendCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "send <username> <password> <to> <message...>",
		Short: "Encrypt and send a message to a peer",
		Args:  cobra.MinimumNArgs(4),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			username, to := domain.Username(args[0]), domain.Username(args[2])
			text := strings.Join(args[3:], " ")

			if err := c.wire.IDs.SignIn(ctx, username, args[1]); err != nil {
				return err
			}
			id, err := c.wire.Messages.SendMessage(ctx, to, []byte(text))
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Sent message %d to %s\n", id, to)
			return nil
		},
	}
}
