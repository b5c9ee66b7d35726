// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Gatepass-authority serves user authorities from a YAML directory file
// to guarded services. It answers the CBOR "lookup" action on a Unix
// socket and, when directory.listen is set, GET /authorities/{username}
// over HTTP. Both answer with {roles, permissions}.
package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/pflag"
	"golang.org/x/sync/errgroup"

	"github.com/bureau-foundation/gatepass/lib/authority"
	"github.com/bureau-foundation/gatepass/lib/config"
	"github.com/bureau-foundation/gatepass/lib/process"
	"github.com/bureau-foundation/gatepass/lib/service"
	"github.com/bureau-foundation/gatepass/lib/version"
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
	flags := pflag.NewFlagSet("gatepass-authority", pflag.ContinueOnError)
	flags.StringVar(&configPath, "config", "", "config file (default $GATEPASS_CONFIG)")
	flags.BoolVar(&showVersion, "version", false, "print version information and exit")
	if err := flags.Parse(os.Args[1:]); err != nil {
		return err
	}
	if showVersion {
		fmt.Printf("gatepass-authority %s\n", version.Info())
		return nil
	}

	cfg, err := config.LoadPath(configPath)
	if err != nil {
		return err
	}
	if err := cfg.RequireDirectory(); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	logger := service.NewLogger().With("service", "gatepass-authority")

	directory, err := authority.LoadDirectory(cfg.Directory.File)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	group, ctx := errgroup.WithContext(ctx)
	if cfg.Directory.Socket != "" {
		socketServer := service.NewSocketServer(cfg.Directory.Socket, logger)
		socketServer.Handle(authority.LookupAction, directory.LookupHandler())
		group.Go(func() error {
			return socketServer.Serve(ctx)
		})
	}
	if cfg.Directory.Listen != "" {
		group.Go(func() error {
			return service.NewHTTPServer(service.HTTPServerConfig{
				Address: cfg.Directory.Listen,
				Handler: directory.HTTPHandler(),
				Logger:  logger,
			}).Serve(ctx)
		})
	}

	logger.Info("authority directory running",
		"version", version.Info(),
		"users", directory.Len(),
		"socket", cfg.Directory.Socket,
		"listen", cfg.Directory.Listen,
	)

	err = group.Wait()
	logger.Info("shutting down")
	return err
}
