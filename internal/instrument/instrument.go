// Package instrument holds the prometheus counters for the client and the
// relay and serves them over HTTP.
package instrument

import (
	"errors"
	"net"
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "boxchat"

var (
	MessagesSent = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "client",
			Name:      "messages_sent_total",
			Help:      "Number of messages sealed and accepted by the relay",
		},
	)
	MessagesReceived = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "client",
			Name:      "messages_received_total",
			Help:      "Number of inbound messages decrypted successfully",
		},
	)
	MessagesRejected = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "client",
			Name:      "messages_rejected_total",
			Help:      "Number of inbound messages skipped, by reason",
		},
		[]string{"reason"},
	)
	Polls = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "client",
			Name:      "polls_total",
			Help:      "Number of inbox poll rounds",
		},
	)
	PollFailures = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "client",
			Name:      "poll_failures_total",
			Help:      "Number of poll rounds aborted by a transport error",
		},
	)
	RelayRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "relay",
			Name:      "requests_total",
			Help:      "Number of relay HTTP requests, by route and status code",
		},
		[]string{"route", "code"},
	)
)

func init() {
	prometheus.MustRegister(
		MessagesSent,
		MessagesReceived,
		MessagesRejected,
		Polls,
		PollFailures,
		RelayRequests,
	)
}

// ObserveRequest counts one relay request.
func ObserveRequest(route string, code int) {
	RelayRequests.WithLabelValues(route, strconv.Itoa(code)).Inc()
}

// Server serves /metrics until Close.
type Server struct {
	srv *http.Server
	ln  net.Listener
}

// Serve exposes the default registry on addr at /metrics. It returns once
// the listener is bound.
func Serve(addr string) (*Server, error) {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, err
	}
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	s := &Server{
		srv: &http.Server{Handler: mux, ReadHeaderTimeout: 5 * time.Second},
		ln:  ln,
	}
	go func() {
		if err := s.srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			_ = ln.Close()
		}
	}()
	return s, nil
}

// Addr is the bound listen address.
func (s *Server) Addr() string { return s.ln.Addr().String() }

// Close stops the server.
func (s *Server) Close() error { return s.srv.Close() }
