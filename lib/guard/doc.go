// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package guard is the service-side HTTP middleware that turns a
// gateway attestation into an authorized principal.
//
// For each request, in order:
//
//  1. If the path is whitelisted for the service's scope, the request
//     proceeds with no principal. Nothing else is checked.
//  2. The attestation headers are decoded and verified (signature, then
//     replay window).
//  3. The operation's permission requirement is enforced against the
//     user's authority.
//  4. The verified Principal is placed in the request context and the
//     operation runs.
//
// Every rejection is classified into exactly one Rejection, which fixes
// the HTTP status. Invalid and stale signatures are audit-logged with
// a fingerprint of the signature, never the signature itself.
package guard
