// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package keys loads, generates, and uses the gateway's attestation key
// pair.
//
// Two signature schemes are supported and pinned by name:
//
//   - "ed25519": Ed25519 (RFC 8032). The default.
//   - "rsa-pkcs1v15-sha256": RSASSA-PKCS1-v1_5 over SHA-256, for
//     deployments whose key material is RSA. Keys shorter than 2048
//     bits are rejected.
//
// Both schemes are deterministic: the same key and message always yield
// the same signature.
//
// Private keys are read as PEM (PKCS#8 "PRIVATE KEY" or PKCS#1 "RSA
// PRIVATE KEY") or OpenSSH ("OPENSSH PRIVATE KEY", unencrypted). A
// private key file may also be age-sealed (see lib/sealed), in which
// case an identity file is required to open it. Public keys are read as
// PEM (PKIX "PUBLIC KEY" or PKCS#1 "RSA PUBLIC KEY") or as an OpenSSH
// authorized_keys line.
//
// Ed25519 private keys live in a secret.Buffer for their whole lifetime.
// RSA private keys cannot (the rsa package keeps big.Int values on the
// heap); prefer Ed25519 where the choice exists.
package keys
