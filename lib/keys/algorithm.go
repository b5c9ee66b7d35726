// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package keys

import "fmt"

// Algorithm names a signature scheme.
type Algorithm string

const (
	Ed25519           Algorithm = "ed25519"
	RSAPKCS1v15SHA256 Algorithm = "rsa-pkcs1v15-sha256"
)

// minimumRSABits is the smallest RSA modulus accepted for signing or
// verification.
const minimumRSABits = 2048

// ParseAlgorithm validates an algorithm name. The empty string selects
// Ed25519.
func ParseAlgorithm(name string) (Algorithm, error) {
	switch Algorithm(name) {
	case "", Ed25519:
		return Ed25519, nil
	case RSAPKCS1v15SHA256:
		return RSAPKCS1v15SHA256, nil
	default:
		return "", fmt.Errorf("keys: unknown algorithm %q (want %q or %q)", name, Ed25519, RSAPKCS1v15SHA256)
	}
}
