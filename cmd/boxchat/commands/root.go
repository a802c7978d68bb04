package commands

import (
	"errors"
	"time"

	"github.com/spf13/cobra"

	"boxchat/internal/app"
)

type cli struct {
	configPath string
	relayURL   string
	home       string
	logLevel   string
	logFile    string
	interval   time.Duration
	metrics    string

	wire *app.Wire
}

// Execute runs the boxchat root command.
func Execute() error {
	return NewRootCommand().Execute()
}

// NewRootCommand builds the command tree.
func NewRootCommand() *cobra.Command {
	c := new(cli)
	root := &cobra.Command{
		Use:               "boxchat",
		Short:             "End-to-end encrypted chat over an untrusted relay",
		SilenceUsage:      true,
		PersistentPreRunE: c.setup,
	}

	f := root.PersistentFlags()
	f.StringVar(&c.configPath, "config", "", "config file (default $XDG_CONFIG_HOME/boxchat/config.toml)")
	f.StringVar(&c.relayURL, "relay", "", "relay base URL (e.g. http://127.0.0.1:8000)")
	f.StringVar(&c.home, "home", "", "state dir (default ~/.boxchat)")
	f.StringVar(&c.logLevel, "log-level", "", "ERROR, WARNING, NOTICE, INFO or DEBUG")
	f.StringVar(&c.logFile, "log-file", "", "log to this file instead of stderr")
	f.DurationVar(&c.interval, "interval", 0, "poll interval for listen")
	f.StringVar(&c.metrics, "metrics", "", "serve prometheus metrics on this address")

	root.AddCommand(
		c.registerCmd(),
		c.loginCmd(),
		c.sendCmd(),
		c.listenCmd(),
	)
	// PersistentPostRunE is skipped when RunE fails, so each command tears
	// the wire down itself.
	for _, sub := range root.Commands() {
		run := sub.RunE
		sub.RunE = func(cmd *cobra.Command, args []string) error {
			return errors.Join(run(cmd, args), c.teardown())
		}
	}
	return root
}

func (c *cli) setup(cmd *cobra.Command, _ []string) error {
	if cmd.RunE == nil { // help and completion
		return nil
	}
	cfg, err := app.LoadConfig(c.configPath)
	if err != nil {
		return err
	}

	flags := cmd.Flags()
	if flags.Changed("relay") {
		cfg.Relay.URL = c.relayURL
	}
	if flags.Changed("home") {
		cfg.Home = c.home
	}
	if flags.Changed("log-level") {
		cfg.Logging.Level = c.logLevel
	}
	if flags.Changed("log-file") {
		cfg.Logging.File = c.logFile
	}
	if flags.Changed("interval") {
		cfg.Poll.Interval = c.interval
	}
	if flags.Changed("metrics") {
		cfg.Metrics.Address = c.metrics
	}

	c.wire, err = app.NewWire(*cfg)
	return err
}

func (c *cli) teardown() error {
	if c.wire == nil {
		return nil
	}
	err := c.wire.Close()
	c.wire = nil
	return err
}
