package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/spf13/cobra"

	"github.com/nvandessel/osteon/internal/httpapi"
)

const shutdownTimeout = 10 * time.Second

func newServeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the HTTP API",
		Long: `Serve simulations, stored runs and Prometheus metrics over HTTP.

Endpoints:
  GET  /healthz
  GET  /strength?days=&ph=&temperature=&oxygen=&factor_policy=&maturation=&activation=
  POST /simulate        (scenario JSON body)
  GET  /runs?limit=
  GET  /runs/{id}
  GET  /metrics`,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := signalContext(cmd.Context())
			defer cancel()

			a, err := newApp(ctx, cmd)
			if err != nil {
				return err
			}
			defer a.Close()

			addr, _ := cmd.Flags().GetString("addr")
			if addr == "" {
				addr = a.cfg.Server.Addr
			}

			h := httpapi.New(a.runner(), a.runs, a.metrics, a.logger)
			srv := &http.Server{
				Addr:              addr,
				Handler:           h.Router(),
				ReadHeaderTimeout: 10 * time.Second,
			}
			return serveUntilDone(ctx, srv, a)
		},
	}
	cmd.Flags().String("addr", "", "Listen address (default from config, :8090)")
	return cmd
}

// serveUntilDone runs srv until ctx is canceled, then shuts it down.
func serveUntilDone(ctx context.Context, srv *http.Server, a *app) error {
	errCh := make(chan error, 1)
	go func() {
		a.logger.Info("serving HTTP API", "addr", srv.Addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("http server failed: %w", err)
	case <-ctx.Done():
	}

	a.logger.Info("shutting down HTTP API")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("http shutdown failed: %w", err)
	}
	return nil
}
