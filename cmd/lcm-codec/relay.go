// Copyright (C) 2019-2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package main

import (
	"context"
	"encoding/json"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/pkg/errors"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"
	"google.golang.org/grpc"

	"github.com/luxfi/lcm"
)

type relayConfig struct {
	listen   string
	httpAddr string
	grpcAddr string
	binds    []string
}

func (a *app) relayCmd() *cobra.Command {
	cfg := relayConfig{}

	cmd := &cobra.Command{
		Use:   "relay",
		Short: "Run a bus relay",
		Long: `Run a bus relay. Clients connect over framed TCP to publish and subscribe;
publications are also accepted over JSON-RPC at /rpc and over gRPC.

A channel bound with --bind CHANNEL=TYPE only carries messages of that type.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return a.relay(ctx, cfg)
		},
	}

	flags := cmd.Flags()
	flags.StringVar(&cfg.listen, "listen", fmt.Sprintf(":%d", lcm.DefaultPort), "TCP bus address")
	flags.StringVar(&cfg.httpAddr, "http", "", "HTTP address for /rpc and /metrics (disabled when empty)")
	flags.StringVar(&cfg.grpcAddr, "grpc", "", "gRPC address (disabled when empty)")
	flags.StringArrayVar(&cfg.binds, "bind", nil, "bind CHANNEL=TYPE (repeatable)")

	return cmd
}

func (a *app) relay(ctx context.Context, cfg relayConfig) error {
	metrics := prometheus.NewRegistry()
	metrics.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	server, err := lcm.Listen(cfg.listen, lcm.WithServerLogger(a.log), lcm.WithRegisterer(metrics))
	if err != nil {
		return errors.Wrap(err, "listen")
	}
	defer server.Close()

	if err := a.bind(server, cfg.binds); err != nil {
		return err
	}

	errc := make(chan error, 3)
	go func() { errc <- server.Serve(ctx) }()

	if cfg.httpAddr != "" {
		hs := &http.Server{
			Addr:              cfg.httpAddr,
			Handler:           a.router(server, metrics),
			ReadHeaderTimeout: 10 * time.Second,
		}
		go func() {
			if err := hs.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
				errc <- errors.Wrap(err, "http")
			}
		}()
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			_ = hs.Shutdown(shutdownCtx)
		}()
	}

	if cfg.grpcAddr != "" {
		lis, err := net.Listen("tcp", cfg.grpcAddr)
		if err != nil {
			return errors.Wrap(err, "grpc listen")
		}
		gs := grpc.NewServer()
		lcm.RegisterGRPC(gs, server)
		go func() { errc <- errors.Wrap(gs.Serve(lis), "grpc") }()
		defer gs.GracefulStop()
	}

	a.log.Info().
		Str("listen", server.Addr()).
		Str("http", cfg.httpAddr).
		Str("grpc", cfg.grpcAddr).
		Int("bindings", len(cfg.binds)).
		Msg("relay started")

	select {
	case <-ctx.Done():
		a.log.Info().Msg("relay stopping")
		return nil
	case err := <-errc:
		return err
	}
}

// bind applies CHANNEL=TYPE bindings.
func (a *app) bind(server *lcm.BusServer, binds []string) error {
	for _, b := range binds {
		channel, typeName, ok := strings.Cut(b, "=")
		if !ok || channel == "" {
			return errors.Errorf("bind %q: want CHANNEL=TYPE", b)
		}
		t, err := a.reg.Type(typeName)
		if err != nil {
			return errors.WithMessagef(err, "bind %q", b)
		}
		server.Bind(channel, t)
		a.log.Debug().Str("channel", channel).Str("type", t.Name()).Msg("channel bound")
	}
	return nil
}

type typeInfo struct {
	Name        string   `json:"name"`
	Fingerprint string   `json:"fingerprint"`
	Fields      []string `json:"fields"`
}

func (a *app) router(server *lcm.BusServer, metrics *prometheus.Registry) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)

	r.Handle("/rpc", lcm.HTTPHandler(server))
	r.Handle("/metrics", promhttp.HandlerFor(metrics, promhttp.HandlerOpts{}))
	r.Get("/types", func(w http.ResponseWriter, _ *http.Request) {
		var out []typeInfo
		for _, t := range a.reg.Types() {
			info := typeInfo{Name: t.Name(), Fingerprint: fmt.Sprintf("0x%016x", t.Fingerprint())}
			for _, f := range t.Schema().Fields {
				info.Fields = append(info.Fields, f.String())
			}
			out = append(out, info)
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(out)
	})
	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	return r
}
