// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package codec provides gatepass's CBOR encoding configuration.
//
// Two things depend on byte-exact CBOR: the canonical attestation
// message (the gateway and every service must produce identical bytes
// for the same identity fields, or signatures never verify) and the
// Unix socket protocol spoken between services and the authority
// service. Both go through this package so the encoder options live in
// one place.
//
// The encoder uses Core Deterministic Encoding (RFC 8949 §4.2): sorted
// map keys, smallest integer encoding, no indefinite-length items.
//
//	data, err := codec.Marshal(value)
//	err = codec.Unmarshal(data, &value)
//
// For sockets:
//
//	encoder := codec.NewEncoder(conn)
//	decoder := codec.NewDecoder(conn)
//
// Types that only ever travel as CBOR use `cbor` struct tags. Types that
// are also served as JSON (authority records over HTTP) use `json` tags,
// which fxamacker/cbor reads as a fallback. Never put both on one field.
package codec
