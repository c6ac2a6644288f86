package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/hanpama/mongograph/internal/otel"
	"github.com/hanpama/mongograph/internal/server"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

func newServeCmd(g *globalFlags, dial dialFunc) *cobra.Command {
	var (
		addr         string
		pretty       bool
		timeout      time.Duration
		otelEndpoint string
		otelService  string
	)
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP GraphQL endpoint",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := g.load(cmd)
			if err != nil {
				return err
			}
			fl := cmd.Flags()
			if fl.Changed("server.addr") {
				cfg.Server.Addr = addr
			}
			if fl.Changed("server.pretty") {
				cfg.Server.Pretty = pretty
			}
			if fl.Changed("server.timeout") {
				cfg.Server.Timeout = timeout
			}
			if fl.Changed("otel.endpoint") {
				cfg.OTel.Endpoint = otelEndpoint
			}
			if fl.Changed("otel.service") {
				cfg.OTel.Service = otelService
			}
			if err := cfg.Validate(true); err != nil {
				return err
			}

			logger, cleanup, err := setupLogging(cfg)
			if err != nil {
				return err
			}
			defer cleanup()

			shutdown, err := otel.Setup(cfg.OTel.Endpoint, cfg.OTel.Service)
			if err != nil {
				return fmt.Errorf("otel setup: %w", err)
			}
			defer func() { _ = shutdown(context.Background()) }()

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			conn, closeConn, err := dial(ctx, cfg.Mongo)
			if err != nil {
				return err
			}
			defer func() { _ = closeConn(context.Background()) }()

			sopts := []server.Option{server.WithTimeout(cfg.Server.Timeout)}
			if cfg.Server.Pretty {
				sopts = append(sopts, server.WithPretty())
			}
			if cfg.Server.MaxBodyBytes > 0 {
				sopts = append(sopts, server.WithMaxBodyBytes(cfg.Server.MaxBodyBytes))
			}
			if len(cfg.Server.CORSOrigins) > 0 {
				sopts = append(sopts, server.WithCORS(cfg.Server.CORSOrigins...))
			}
			h := server.New(newClient(cfg, conn), sopts...)

			srv := &http.Server{Addr: cfg.Server.Addr, Handler: h.Mux()}
			errc := make(chan error, 1)
			go func() { errc <- srv.ListenAndServe() }()
			logger.Info("GraphQL server listening",
				zap.String("addr", cfg.Server.Addr),
				zap.String("database", cfg.Mongo.Database))

			select {
			case err := <-errc:
				return err
			case <-ctx.Done():
			}
			logger.Info("shutting down")
			sctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()
			if err := srv.Shutdown(sctx); err != nil && !errors.Is(err, http.ErrServerClosed) {
				return err
			}
			return nil
		},
	}
	fl := cmd.Flags()
	fl.StringVar(&addr, "server.addr", ":8080", "HTTP listen address")
	fl.BoolVar(&pretty, "server.pretty", false, "Pretty-print JSON responses")
	fl.DurationVar(&timeout, "server.timeout", 10*time.Second, "Per-request timeout")
	fl.StringVar(&otelEndpoint, "otel.endpoint", "", "OTLP collector endpoint")
	fl.StringVar(&otelService, "otel.service", "mongograph", "OpenTelemetry service name")
	return cmd
}
