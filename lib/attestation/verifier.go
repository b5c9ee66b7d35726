// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package attestation

import (
	"fmt"
	"time"

	"github.com/bureau-foundation/gatepass/lib/clock"
	"github.com/bureau-foundation/gatepass/lib/keys"
	"github.com/bureau-foundation/gatepass/lib/token"
)

// VerifierConfig configures a Verifier.
type VerifierConfig struct {
	// PublicKey is the gateway's verification key. Required.
	PublicKey *keys.PublicKey

	// Validity is the replay window. Zero selects DefaultValidity.
	// Must be a whole number of milliseconds.
	Validity time.Duration

	// Clock supplies the current time. Required.
	Clock clock.Clock
}

// Verifier checks attestations on a service.
type Verifier struct {
	publicKey      *keys.PublicKey
	validityMillis int64
	clock          clock.Clock
}

// NewVerifier validates config and returns a Verifier.
func NewVerifier(config VerifierConfig) (*Verifier, error) {
	if config.PublicKey == nil {
		return nil, fmt.Errorf("attestation: verifier requires a public key")
	}
	if config.Clock == nil {
		return nil, fmt.Errorf("attestation: verifier requires a clock")
	}
	validity := config.Validity
	if validity == 0 {
		validity = DefaultValidity
	}
	if validity < 0 {
		return nil, fmt.Errorf("attestation: negative validity %v", validity)
	}
	if validity%time.Millisecond != 0 {
		return nil, fmt.Errorf("attestation: validity %v is not a whole number of milliseconds", validity)
	}
	return &Verifier{
		publicKey:      config.PublicKey,
		validityMillis: validity.Milliseconds(),
		clock:          config.Clock,
	}, nil
}

// Validity returns the configured replay window.
func (v *Verifier) Validity() time.Duration {
	return time.Duration(v.validityMillis) * time.Millisecond
}

// Verify checks a at the current time.
func (v *Verifier) Verify(a *Attestation) (*Principal, error) {
	return v.VerifyAt(a, v.clock.Now())
}

// VerifyAt checks a as of now:
//
//  1. Every field is present and the signature is well-formed v1.
//  2. The signature verifies over the canonical message.
//  3. |now - timestamp| <= validity.
//
// Failures in 1 and 2 wrap ErrInvalidSignature; failure in 3 wraps
// ErrStaleSignature.
func (v *Verifier) VerifyAt(a *Attestation, now time.Time) (*Principal, error) {
	if a == nil {
		return nil, fmt.Errorf("%w: no attestation", ErrInvalidSignature)
	}
	if err := checkFields(a.UserID, a.Username, a.TokenJTI, a.Timestamp); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidSignature, err)
	}
	signature, err := decodeSignature(a.Signature)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidSignature, err)
	}

	message, err := CanonicalMessage(a.UserID, a.Username, a.TokenJTI, a.Timestamp)
	if err != nil {
		return nil, fmt.Errorf("%w: encoding canonical message: %v", ErrInvalidSignature, err)
	}
	if !v.publicKey.Verify(message, signature) {
		return nil, fmt.Errorf("%w: signature does not match gateway key %s", ErrInvalidSignature, v.publicKey.ID())
	}

	skew := now.UnixMilli() - a.Timestamp
	if skew < 0 {
		skew = -skew
	}
	if skew > v.validityMillis {
		return nil, fmt.Errorf("%w: timestamp %d is %dms from now, window is %dms",
			ErrStaleSignature, a.Timestamp, skew, v.validityMillis)
	}

	return &Principal{
		UserID:   a.UserID,
		Username: a.Username,
		TokenJTI: a.TokenJTI,
	}, nil
}

// VerifyToken checks the token record a was built from before verifying
// a itself. A non-ACCESS token yields token.ErrInvalidTokenType whether
// or not the signature is valid. A jti mismatch is an invalid
// signature: the attestation does not describe this token.
func (v *Verifier) VerifyToken(a *Attestation, t *token.Token) (*Principal, error) {
	if err := token.RequireAccess(t); err != nil {
		return nil, err
	}
	if a != nil && a.TokenJTI != t.JTI {
		return nil, fmt.Errorf("%w: attestation jti %q does not match token jti %q", ErrInvalidSignature, a.TokenJTI, t.JTI)
	}
	return v.Verify(a)
}
