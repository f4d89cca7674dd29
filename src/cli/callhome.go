// Copyright (c) 2026 H0llyW00dzZ All rights reserved.
//
// By accessing or using this software, you agree to be bound by the terms
// of the License Agreement, which you can find at LICENSE files.

package cli

import (
	"context"
	"errors"
	"net"
	"net/http"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"
	"golang.org/x/time/rate"

	"github.com/H0llyW00dzZ/netconf-tls-client/src/callhome"
	"github.com/H0llyW00dzZ/netconf-tls-client/src/metrics"
	"github.com/H0llyW00dzZ/netconf-tls-client/src/session"
	"github.com/H0llyW00dzZ/netconf-tls-client/src/transport/nctls"
)

func newCallHomeCommand(a *app) *cobra.Command {
	var (
		listen      []string
		metricsAddr string
		count       int
		watchCRL    bool
	)

	cmd := &cobra.Command{
		Use:   "callhome",
		Short: "Accept call-home sessions from NETCONF servers",
		Long:  "Listens for servers that dial in (RFC 8071), establishes each session with the responder settings, prints it and closes it.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := a.load(nctls.RoleResponder)
			if err != nil {
				return err
			}
			if cmd.Flags().Changed("listen") || len(cfg.CallHome.Addresses) == 0 {
				cfg.CallHome.Addresses = listen
			}
			if cmd.Flags().Changed("metrics-addr") {
				cfg.CallHome.MetricsAddr = metricsAddr
			}
			if cmd.Flags().Changed("watch-crl") {
				cfg.CallHome.WatchCRL = watchCRL
			}

			reg, err := a.registry(cfg)
			if err != nil {
				return err
			}
			defer reg.Destroy()

			ctx, cancel := context.WithCancel(cmd.Context())
			defer cancel()

			var wg sync.WaitGroup
			defer func() {
				cancel()
				wg.Wait()
			}()

			if cfg.CallHome.MetricsAddr != "" {
				srv, err := a.serveMetrics(cfg.CallHome.MetricsAddr)
				if err != nil {
					return err
				}
				defer func() {
					shutdownCtx, done := context.WithTimeout(context.Background(), 5*time.Second)
					defer done()
					_ = srv.Shutdown(shutdownCtx)
				}()
			}

			if cfg.CallHome.WatchCRL {
				wg.Add(1)
				go func() {
					defer wg.Done()
					if err := reg.Responder().WatchCRL(ctx); err != nil && !errors.Is(err, context.Canceled) {
						a.log.Warnf("CRL watch stopped: %v", err)
					}
				}()
			}

			var served atomic.Int64
			var printMu sync.Mutex
			handler := func(_ context.Context, s *session.Session) {
				defer s.Close()
				printMu.Lock()
				a.printf("%s", renderSession(s))
				printMu.Unlock()
				if n := served.Add(1); count > 0 && n >= int64(count) {
					cancel()
				}
			}

			l := callhome.New(a.newClient(reg, cfg), handler,
				callhome.WithLogger(a.log),
				callhome.WithRateLimit(rate.Limit(cfg.CallHome.AcceptRate), cfg.CallHome.AcceptBurst),
			)
			for _, addr := range cfg.CallHome.Addresses {
				bound, err := l.Add(ctx, addr)
				if err != nil {
					return err
				}
				a.printf("listening on %s\n", bound)
			}
			return l.Serve(ctx)
		},
	}

	cmd.Flags().StringSliceVarP(&listen, "listen", "l", []string{net.JoinHostPort("", strconv.Itoa(callhome.DefaultPort))}, "addresses to accept call-home connections on")
	cmd.Flags().StringVar(&metricsAddr, "metrics-addr", "", "serve Prometheus metrics on this address")
	cmd.Flags().IntVarP(&count, "count", "n", 0, "exit after this many sessions (0: run until interrupted)")
	cmd.Flags().BoolVar(&watchCRL, "watch-crl", false, "rebuild the revocation store when CRL files change")
	return cmd
}

// serveMetrics exposes the collectors on addr until the returned server is shut down.
func (a *app) serveMetrics(addr string) (*http.Server, error) {
	reg := prometheus.NewRegistry()
	if err := metrics.Register(reg); err != nil {
		return nil, err
	}

	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, err
	}

	mux := http.NewServeMux()
	mux.Handle("/metrics", metrics.Handler(reg))
	srv := &http.Server{Handler: mux, ReadHeaderTimeout: 5 * time.Second}

	go func() {
		if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			a.log.Errorf("metrics server: %v", err)
		}
	}()
	a.log.Printf("metrics available at http://%s/metrics", ln.Addr())
	return srv, nil
}
