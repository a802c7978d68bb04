package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"boxchat/internal/instrument"
	"boxchat/internal/log"
	"boxchat/internal/relayserver"
)

type options struct {
	listen   string
	db       string
	logFile  string
	logLevel string
	metrics  string
}

func main() {
	if err := newCommand().Execute(); err != nil {
		os.Exit(1)
	}
}

func newCommand() *cobra.Command {
	var o options
	cmd := &cobra.Command{
		Use:          "relay",
		Short:        "Store-and-forward relay for boxchat",
		Args:         cobra.NoArgs,
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return run(ctx, o)
		},
	}
	f := cmd.Flags()
	f.StringVar(&o.listen, "listen", ":8000", "listen address")
	f.StringVar(&o.db, "db", "", "bbolt database file (default in-memory)")
	f.StringVar(&o.logFile, "log-file", "", "log to this file instead of stderr")
	f.StringVar(&o.logLevel, "log-level", "INFO", "ERROR, WARNING, NOTICE, INFO or DEBUG")
	f.StringVar(&o.metrics, "metrics", "", "serve prometheus metrics on this address")
	return cmd
}

func run(ctx context.Context, o options) error {
	backend, err := log.New(o.logFile, o.logLevel, false)
	if err != nil {
		return err
	}
	defer backend.Close()
	logger := backend.GetLogger("relay")

	var store relayserver.Store
	if o.db != "" {
		if store, err = relayserver.NewBoltStore(o.db); err != nil {
			logger.Errorf("Opening %s: %v", o.db, err)
			return err
		}
		logger.Noticef("Using database %s", o.db)
	} else {
		store = relayserver.NewMemoryStore()
		logger.Notice("Using in-memory store, state is lost on exit")
	}
	defer store.Close()

	srv, err := relayserver.New(relayserver.Config{Store: store, Log: logger})
	if err != nil {
		return err
	}

	if o.metrics != "" {
		m, err := instrument.Serve(o.metrics)
		if err != nil {
			logger.Errorf("Metrics listener: %v", err)
			return err
		}
		defer m.Close()
		logger.Noticef("Serving metrics on http://%s/metrics", m.Addr())
	}

	hs := &http.Server{
		Addr:              o.listen,
		Handler:           srv.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	errCh := make(chan error, 1)
	go func() { errCh <- hs.ListenAndServe() }()
	logger.Noticef("Relay listening on %s", o.listen)

	select {
	case err := <-errCh:
		logger.Errorf("Listener failed: %v", err)
		return err
	case <-ctx.Done():
	}

	logger.Notice("Shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := hs.Shutdown(shutdownCtx); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}
