// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Gatepass-echo is a sample service behind the gateway. Every route is
// wrapped by the guard: the attestation is verified, the operation's
// permission is checked against the caller's authority, and only then
// does the handler run.
//
// Operations (each must be declared in permissions_file):
//
//   - health (GET /health): liveness; normally whitelisted
//   - whoami (GET /whoami): the verified caller
//   - echo (POST /echo): the request body, back to the caller
//
// Authorities come from gatepass-authority over authority.socket or
// authority.url and are cached for authority.ttl.
package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/pflag"
	"golang.org/x/sync/errgroup"

	"github.com/bureau-foundation/gatepass/lib/attestation"
	"github.com/bureau-foundation/gatepass/lib/authority"
	"github.com/bureau-foundation/gatepass/lib/clock"
	"github.com/bureau-foundation/gatepass/lib/config"
	"github.com/bureau-foundation/gatepass/lib/guard"
	"github.com/bureau-foundation/gatepass/lib/keys"
	"github.com/bureau-foundation/gatepass/lib/permission"
	"github.com/bureau-foundation/gatepass/lib/process"
	"github.com/bureau-foundation/gatepass/lib/service"
	"github.com/bureau-foundation/gatepass/lib/version"
	"github.com/bureau-foundation/gatepass/lib/whitelist"
)

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
	flags := pflag.NewFlagSet("gatepass-echo", pflag.ContinueOnError)
	flags.StringVar(&configPath, "config", "", "config file (default $GATEPASS_CONFIG)")
	flags.BoolVar(&showVersion, "version", false, "print version information and exit")
	if err := flags.Parse(os.Args[1:]); err != nil {
		return err
	}
	if showVersion {
		fmt.Printf("gatepass-echo %s\n", version.Info())
		return nil
	}

	cfg, err := config.LoadPath(configPath)
	if err != nil {
		return err
	}
	if err := cfg.RequireService(); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	logger := service.NewLogger().With("service", "gatepass-echo", "scope", cfg.Service.Scope)

	algorithm, err := keys.ParseAlgorithm(cfg.Keys.Algorithm)
	if err != nil {
		return err
	}
	publicKey, err := keys.LoadPublicKeyFile(cfg.Keys.PublicKeyFile, algorithm)
	if err != nil {
		return err
	}
	verifier, err := attestation.NewVerifier(attestation.VerifierConfig{
		PublicKey: publicKey,
		Validity:  cfg.Validity(),
		Clock:     clock.Real(),
	})
	if err != nil {
		return err
	}

	matcher, err := whitelist.New(cfg.Whitelist)
	if err != nil {
		return err
	}

	registry, err := permission.LoadRegistryFile(cfg.PermissionsFile)
	if err != nil {
		return err
	}

	var source authority.Source
	if cfg.Authority.Socket != "" {
		source = authority.NewSocketSource(cfg.Authority.Socket)
	} else {
		source, err = authority.NewHTTPSource(cfg.Authority.URL, nil)
		if err != nil {
			return err
		}
	}

	metrics := prometheus.NewRegistry()
	metrics.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	authorities := authority.NewCache(authority.Config{
		Source:  source,
		TTL:     cfg.Authority.TTL,
		Timeout: cfg.Authority.Timeout,
		Clock:   clock.Real(),
		Logger:  logger,
		Metrics: authority.NewMetrics(metrics),
	})

	serviceGuard := guard.New(guard.Config{
		Scope:     cfg.Service.Scope,
		Whitelist: matcher,
		Verifier:  verifier,
		Enforcer:  permission.NewEnforcer(registry, authorities),
		Logger:    logger,
		Metrics:   guard.NewMetrics(metrics),
	})

	handler, err := newHandler(serviceGuard, registry, clock.Real())
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	group, ctx := errgroup.WithContext(ctx)
	group.Go(func() error {
		return service.NewHTTPServer(service.HTTPServerConfig{
			Address: cfg.Service.Listen,
			Handler: handler,
			Logger:  logger,
		}).Serve(ctx)
	})
	if cfg.Service.MetricsListen != "" {
		group.Go(func() error {
			return service.NewHTTPServer(service.HTTPServerConfig{
				Address: cfg.Service.MetricsListen,
				Handler: promhttp.HandlerFor(metrics, promhttp.HandlerOpts{Registry: metrics}),
				Logger:  logger.With("listener", "metrics"),
			}).Serve(ctx)
		})
	}

	logger.Info("echo service running",
		"version", version.Info(),
		"listen", cfg.Service.Listen,
		"key_id", publicKey.ID(),
		"operations", len(registry.Operations()),
	)

	err = group.Wait()
	logger.Info("shutting down")
	return err
}
