// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package service provides the scaffolding shared by Gatepass binaries.
//
//   - NewLogger: the standard JSON logger on stderr.
//   - HTTPServer: TCP HTTP serving with readiness and graceful shutdown,
//     used by the gateway and by services running the guard.
//   - SocketServer and ServiceClient: a CBOR request-response protocol
//     on a Unix socket, one request per connection, with action
//     dispatch. The reference authority serves its "lookup" action this
//     way and the authority cache calls it through ServiceClient.
//
// Binaries compose these in their own main rather than subclassing a
// framework.
package service
