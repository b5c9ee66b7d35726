// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package attestation

import (
	"encoding/hex"

	"github.com/zeebo/blake3"
)

// auditDomainKey keys the BLAKE3 hash used for signature fingerprints.
// The ASCII domain name, zero-padded to 32 bytes.
var auditDomainKey = [32]byte{
	'g', 'a', 't', 'e', 'p', 'a', 's', 's', '.', 'a', 'u', 'd', 'i', 't', '.',
	's', 'i', 'g', 'n', 'a', 't', 'u', 'r', 'e', 0, 0, 0, 0, 0, 0, 0, 0,
}

// Fingerprint returns a short correlation ID for a signature string.
// Audit logs record the fingerprint instead of the signature so a log
// reader cannot lift a replayable attestation out of the logs.
func Fingerprint(signature string) string {
	hasher, err := blake3.NewKeyed(auditDomainKey[:])
	if err != nil {
		// NewKeyed only fails on a key that is not 32 bytes.
		panic("attestation: blake3 keyed hasher: " + err.Error())
	}
	hasher.Write([]byte(signature))
	return hex.EncodeToString(hasher.Sum(nil)[:12])
}
