// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Gatepass is the operator CLI for attestation keys and signatures.
//
// Subcommands:
//
//   - keygen: generate a signing key pair, optionally age-sealing the
//     private key to one or more recipients
//   - identity: generate an age identity for sealing keys
//   - sign: produce attestation headers for a user and token
//   - verify: check an attestation against a public key and the replay
//     window; exits 2 when the attestation is rejected
//   - version: print build information
package main
