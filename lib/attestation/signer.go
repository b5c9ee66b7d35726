// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package attestation

import (
	"fmt"

	"github.com/bureau-foundation/gatepass/lib/clock"
	"github.com/bureau-foundation/gatepass/lib/keys"
	"github.com/bureau-foundation/gatepass/lib/token"
)

// Sign returns the v1 signature string for the given fields. It is a
// pure function of its inputs: the same key and fields always produce
// the same string. Returns an error wrapping ErrSigning for a nil key or
// any empty field.
func Sign(key *keys.PrivateKey, userID, username, tokenJTI string, timestamp int64) (string, error) {
	if key == nil {
		return "", fmt.Errorf("%w: no private key", ErrSigning)
	}
	if err := checkFields(userID, username, tokenJTI, timestamp); err != nil {
		return "", fmt.Errorf("%w: %v", ErrSigning, err)
	}

	message, err := CanonicalMessage(userID, username, tokenJTI, timestamp)
	if err != nil {
		return "", fmt.Errorf("%w: encoding canonical message: %v", ErrSigning, err)
	}
	raw, err := key.Sign(message)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrSigning, err)
	}
	return encodeSignature(raw), nil
}

// Signer builds attestations on the gateway.
type Signer struct {
	key   *keys.PrivateKey
	clock clock.Clock
}

// NewSigner returns a Signer using key. The Signer borrows the key; the
// caller closes it.
func NewSigner(key *keys.PrivateKey, clk clock.Clock) *Signer {
	if key == nil {
		panic("attestation.NewSigner: key is required")
	}
	if clk == nil {
		panic("attestation.NewSigner: clock is required")
	}
	return &Signer{key: key, clock: clk}
}

// Attest checks that t is an ACCESS token, then signs identity bound to
// t's jti at the current time. A refresh token yields an error wrapping
// token.ErrInvalidTokenType before any signing happens.
func (s *Signer) Attest(identity Identity, t *token.Token) (*Attestation, error) {
	if err := token.RequireAccess(t); err != nil {
		return nil, err
	}

	timestamp := s.clock.Now().UnixMilli()
	signature, err := Sign(s.key, identity.UserID, identity.Username, t.JTI, timestamp)
	if err != nil {
		return nil, err
	}
	return &Attestation{
		UserID:    identity.UserID,
		Username:  identity.Username,
		TokenJTI:  t.JTI,
		Timestamp: timestamp,
		Signature: signature,
	}, nil
}
