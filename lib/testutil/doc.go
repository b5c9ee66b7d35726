// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package testutil provides shared test helpers for Gatepass packages.
//
// [SocketDir] creates a short temporary directory for Unix domain
// sockets, whose paths are limited to 108 bytes; t.TempDir() paths can
// exceed that under some test runners.
//
// [RequireReceive] and [RequireClosed] wrap the
// select-with-timeout pattern so tests that wait on goroutines (the
// authority cache's coalesced lookups, server readiness) fail instead
// of hanging. They are the only place tests touch the wall clock; all
// time-dependent behavior under test runs on lib/clock's fake.
//
// All helpers call t.Fatalf on failure.
package testutil
