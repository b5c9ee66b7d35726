// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package config provides YAML configuration loading for Gatepass
// binaries.
//
// Configuration is loaded from a single file specified by either the
// GATEPASS_CONFIG environment variable (via [Load]) or a --config flag
// (via [LoadFile]). There are no fallbacks, no ~/.config discovery,
// and no automatic file search. Unknown keys are errors.
//
// The configuration file supports environment-specific sections
// (development, staging, production) that override base values when
// [Config].Environment matches.
//
// Variable expansion is performed on path fields after loading:
// ${HOME} and ${VAR:-default} patterns are expanded. No other
// environment variables override config values.
//
// [Config.Validate] checks the shared settings and collects every
// problem with errors.Join. Each binary then calls its own check:
// [Config.RequireGateway], [Config.RequireService], or
// [Config.RequireDirectory].
//
// This package depends on no other Gatepass packages.
package config
