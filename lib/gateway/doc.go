// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package gateway is the edge reverse proxy that authenticates end
// users once and forwards a signed identity attestation to internal
// services.
//
// For each inbound request the Gateway:
//
//  1. removes every X-Gatepass-* header the client sent,
//  2. picks the route with the longest matching path prefix,
//  3. forwards whitelisted paths for the route's scope untouched,
//  4. authenticates the bearer token through an Authenticator,
//  5. refuses anything but an ACCESS token,
//  6. signs the identity bound to the token's jti and stamps the
//     attestation headers on the upstream request.
//
// Rejections use the same JSON body and status mapping as the
// service-side guard.
package gateway
