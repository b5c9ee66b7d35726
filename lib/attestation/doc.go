// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package attestation implements the identity attestation exchanged
// between the edge gateway and internal services.
//
// The gateway authenticates the end user once, then forwards the
// verified identity to services as five HTTP headers: user ID, username,
// the jti of the access token the user presented, a millisecond
// timestamp, and a signature over the other four. Services verify the
// signature with the gateway's public key and reject attestations whose
// timestamp falls outside the replay window. No service ever talks to
// the gateway or the token issuer to trust a request.
//
// # Canonical message (v1)
//
// The signed bytes are the Core Deterministic CBOR encoding of a
// five-element array:
//
//	["gatepass.attestation.v1", userId, username, tokenJti, timestamp]
//
// Strings are CBOR text strings (so no delimiter can be smuggled inside
// a field), and the timestamp is a CBOR integer of epoch milliseconds.
// The leading domain string versions the format and keeps a signature
// over an attestation from ever validating as anything else signed by
// the same key.
//
// The signature travels as "v1." followed by the unpadded base64url
// signature bytes. The signature scheme is fixed by the key pair (see
// lib/keys).
//
// # Replay window
//
// An attestation is fresh while |now - timestamp| <= validity. The
// bound is inclusive. Freshness is checked after, and independently of,
// the signature: a perfectly signed attestation outside the window is
// rejected with ErrStaleSignature. When both checks fail the signature
// failure is reported.
//
// Signer and Verifier hold no mutable state and are safe for
// unsynchronized concurrent use.
package attestation
