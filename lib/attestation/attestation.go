// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package attestation

import (
	"encoding/base64"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/bureau-foundation/gatepass/lib/codec"
)

// Version is the canonical message and signature encoding version.
const Version = "v1"

// messageDomain is the first element of every v1 canonical message.
const messageDomain = "gatepass.attestation.v1"

// signaturePrefix precedes the base64url signature bytes.
const signaturePrefix = Version + "."

// DefaultValidity is the replay window used when none is configured.
const DefaultValidity = 300000 * time.Millisecond

// Errors returned by signing and verification. Every verification
// failure wraps exactly one of ErrInvalidSignature or
// ErrStaleSignature.
var (
	ErrSigning          = errors.New("attestation: signing failed")
	ErrInvalidSignature = errors.New("attestation: invalid signature")
	ErrStaleSignature   = errors.New("attestation: stale signature")
)

// Attestation is the identity bundle carried from gateway to service.
type Attestation struct {
	UserID   string
	Username string
	TokenJTI string

	// Timestamp is the signing time in Unix milliseconds.
	Timestamp int64

	// Signature is "v1." plus the unpadded base64url signature.
	Signature string
}

// Identity is the authenticated end user as the gateway knows it.
type Identity struct {
	UserID   string
	Username string
}

// Principal is the verified caller a service acts on behalf of.
type Principal struct {
	UserID   string
	Username string
	TokenJTI string
}

// canonicalMessage is the v1 signed structure, encoded as a CBOR array.
type canonicalMessage struct {
	_         struct{} `cbor:",toarray"`
	Domain    string
	UserID    string
	Username  string
	TokenJTI  string
	Timestamp int64
}

// CanonicalMessage returns the exact bytes signed for the given fields.
func CanonicalMessage(userID, username, tokenJTI string, timestamp int64) ([]byte, error) {
	return codec.Marshal(canonicalMessage{
		Domain:    messageDomain,
		UserID:    userID,
		Username:  username,
		TokenJTI:  tokenJTI,
		Timestamp: timestamp,
	})
}

// checkFields reports the first missing identity field, or nil.
func checkFields(userID, username, tokenJTI string, timestamp int64) error {
	switch {
	case userID == "":
		return errors.New("empty user ID")
	case username == "":
		return errors.New("empty username")
	case tokenJTI == "":
		return errors.New("empty token jti")
	case timestamp <= 0:
		return fmt.Errorf("non-positive timestamp %d", timestamp)
	}
	return nil
}

func encodeSignature(raw []byte) string {
	return signaturePrefix + base64.RawURLEncoding.EncodeToString(raw)
}

func decodeSignature(encoded string) ([]byte, error) {
	body, ok := strings.CutPrefix(encoded, signaturePrefix)
	if !ok {
		return nil, fmt.Errorf("signature does not start with %q", signaturePrefix)
	}
	raw, err := base64.RawURLEncoding.DecodeString(body)
	if err != nil {
		return nil, fmt.Errorf("signature is not unpadded base64url: %w", err)
	}
	if len(raw) == 0 {
		return nil, errors.New("signature is empty")
	}
	return raw, nil
}
