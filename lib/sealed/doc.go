// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package sealed encrypts the gateway's signing key at rest with age.
//
// A sealed key file is an ASCII-armored age file whose plaintext is the
// PEM or OpenSSH private key. The gateway opens it at startup with an
// age X25519 identity that is provisioned separately (kernel keyring,
// TPM-unsealed file, or a tmpfs mount), so a copy of the configuration
// directory alone never yields the signing key.
//
// Identities and opened plaintext are returned as *secret.Buffer values.
package sealed
