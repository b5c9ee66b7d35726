// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package whitelist decides which request paths bypass attestation.
//
// A whitelisted path skips signature verification and permission
// enforcement entirely. It is the only bypass in the system, so the
// matcher is deliberately small: patterns are validated when the
// matcher is built, lookups never fail, and anything unusual about a
// request path (dot segments, doubled slashes, a missing leading slash)
// resolves to "not whitelisted".
//
// Patterns are grouped by scope. The "common" scope applies to every
// service; each service additionally has its own scope, usually named
// after the service. Common patterns are tried first, then the scope's
// patterns, in declaration order. The first match wins and is returned
// so the caller can record which rule let the request through.
package whitelist
