// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Gatepass-gateway is the edge reverse proxy. It authenticates bearer
// tokens with the issuer's introspection endpoint, signs an attestation
// for each authenticated request, and forwards it to the upstream
// service owning the request path. Whitelisted paths are forwarded
// without authentication. Inbound X-Gatepass-* headers are always
// discarded.
//
// Configuration comes from --config or GATEPASS_CONFIG; see lib/config
// for the keys, gateway section, and whitelist.
package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/pflag"
	"golang.org/x/sync/errgroup"

	"github.com/bureau-foundation/gatepass/lib/attestation"
	"github.com/bureau-foundation/gatepass/lib/clock"
	"github.com/bureau-foundation/gatepass/lib/config"
	"github.com/bureau-foundation/gatepass/lib/gateway"
	"github.com/bureau-foundation/gatepass/lib/keys"
	"github.com/bureau-foundation/gatepass/lib/process"
	"github.com/bureau-foundation/gatepass/lib/secret"
	"github.com/bureau-foundation/gatepass/lib/service"
	"github.com/bureau-foundation/gatepass/lib/version"
	"github.com/bureau-foundation/gatepass/lib/whitelist"
)

// upstreamWriteTimeout bounds streaming an upstream response through.
const upstreamWriteTimeout = 5 * time.Minute

func main() {
	if err := run(); err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			return
		}
		process.Fatal(err)
	}
}

func run() error {
	var (
		configPath  string
		showVersion bool
	)
	flags := pflag.NewFlagSet("gatepass-gateway", pflag.ContinueOnError)
	flags.StringVar(&configPath, "config", "", "config file (default $GATEPASS_CONFIG)")
	flags.BoolVar(&showVersion, "version", false, "print version information and exit")
	if err := flags.Parse(os.Args[1:]); err != nil {
		return err
	}
	if showVersion {
		fmt.Printf("gatepass-gateway %s\n", version.Info())
		return nil
	}

	cfg, err := config.LoadPath(configPath)
	if err != nil {
		return err
	}
	if err := cfg.RequireGateway(); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	logger := service.NewLogger().With("service", "gatepass-gateway")

	algorithm, err := keys.ParseAlgorithm(cfg.Keys.Algorithm)
	if err != nil {
		return err
	}
	signingKey, err := keys.LoadPrivateKeyFile(cfg.Keys.PrivateKeyFile, cfg.Keys.PrivateKeyIdentityFile, algorithm)
	if err != nil {
		return err
	}
	defer signingKey.Close()

	matcher, err := whitelist.New(cfg.Whitelist)
	if err != nil {
		return err
	}

	introspection := gateway.IntrospectionConfig{
		Endpoint: cfg.Gateway.Introspection.Endpoint,
		ClientID: cfg.Gateway.Introspection.ClientID,
		Timeout:  cfg.Gateway.Introspection.Timeout,
	}
	if path := cfg.Gateway.Introspection.ClientSecretFile; path != "" {
		clientSecret, err := secret.ReadFile(path)
		if err != nil {
			return fmt.Errorf("reading introspection client secret: %w", err)
		}
		introspection.ClientSecret = string(clientSecret.Bytes())
		clientSecret.Close()
	}
	authenticator, err := gateway.NewIntrospectionAuthenticator(introspection)
	if err != nil {
		return err
	}

	routes := make([]gateway.Route, 0, len(cfg.Gateway.Routes))
	for _, route := range cfg.Gateway.Routes {
		routes = append(routes, gateway.Route{Prefix: route.Prefix, Scope: route.Scope, Upstream: route.Upstream})
	}

	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	edge, err := gateway.New(gateway.Config{
		Routes:               routes,
		Whitelist:            matcher,
		Authenticator:        authenticator,
		Signer:               attestation.NewSigner(signingKey, clock.Real()),
		ForwardAuthorization: cfg.Gateway.ForwardAuthorization,
		Logger:               logger,
		Registerer:           registry,
	})
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	group, ctx := errgroup.WithContext(ctx)
	group.Go(func() error {
		return service.NewHTTPServer(service.HTTPServerConfig{
			Address:      cfg.Gateway.Listen,
			Handler:      edge,
			WriteTimeout: upstreamWriteTimeout,
			Logger:       logger,
		}).Serve(ctx)
	})
	if cfg.Gateway.MetricsListen != "" {
		group.Go(func() error {
			return service.NewHTTPServer(service.HTTPServerConfig{
				Address: cfg.Gateway.MetricsListen,
				Handler: promhttp.HandlerFor(registry, promhttp.HandlerOpts{Registry: registry}),
				Logger:  logger.With("listener", "metrics"),
			}).Serve(ctx)
		})
	}

	logger.Info("gateway running",
		"version", version.Info(),
		"listen", cfg.Gateway.Listen,
		"routes", len(routes),
		"key_id", signingKey.Public().ID(),
		"environment", cfg.Environment,
	)

	err = group.Wait()
	logger.Info("shutting down")
	return err
}
