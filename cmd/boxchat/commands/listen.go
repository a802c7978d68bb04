package commands

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"boxchat/internal/domain"
	"boxchat/internal/instrument"
	messagesvc "boxchat/internal/services/message"
)

// listen <username> <password>: sign in, then print inbound messages until
// SIGINT or SIGTERM. The cursor is saved per relay and username, so a
// restarted listener resumes where it stopped.
func (c *cli) listenCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "listen <username> <password>",
		Short: "Poll for messages and print them",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			w := c.wire
			username := domain.Username(args[0])
			if err := w.IDs.SignIn(ctx, username, args[1]); err != nil {
				return err
			}

			account, ok, err := w.Accounts.LoadAccountProfile(w.Config.Relay.URL, username)
			if err != nil {
				return err
			}
			if !ok {
				account = domain.AccountProfile{ServerURL: w.Config.Relay.URL, Username: username}
			}

			if addr := w.Config.Metrics.Address; addr != "" {
				srv, err := instrument.Serve(addr)
				if err != nil {
					return fmt.Errorf("metrics: %w", err)
				}
				defer srv.Close()
				w.Log.GetLogger("metrics").Noticef("Serving metrics on http://%s/metrics", srv.Addr())
			}

			out := cmd.OutOrStdout()
			poller, err := messagesvc.NewPoller(messagesvc.PollerConfig{
				Receiver: w.Messages,
				Handler: func(m domain.DecryptedMessage) {
					fmt.Fprintf(out, "[%d] %s: %s\n", m.ID, m.From, m.Plaintext)
				},
				Log:      w.Log.GetLogger("poller"),
				Interval: w.Config.Poll.Interval,
				Store:    w.Accounts,
				Account:  account,
			})
			if err != nil {
				return err
			}

			fmt.Fprintf(out, "Listening as %s (fingerprint %s), press Ctrl-C to stop\n", username, w.IDs.Fingerprint())
			if err := poller.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
				return err
			}
			return nil
		},
	}
}
