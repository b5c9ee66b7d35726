// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package token models the bearer tokens the gateway accepts from end
// users.
//
// Tokens are issued elsewhere. Gatepass only needs to know which kind a
// token is: an ACCESS token's jti may be bound into an identity
// attestation, a REFRESH token's never may. Expiry is checked by the
// issuer when the gateway authenticates the bearer; it is not re-derived
// here.
package token

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// Type distinguishes access tokens from refresh tokens.
type Type string

const (
	// Access tokens authorize API calls and supply the jti bound into
	// attestations.
	Access Type = "ACCESS"

	// Refresh tokens only obtain new access tokens.
	Refresh Type = "REFRESH"
)

// ParseType parses a token type name. Matching is case-insensitive
// because issuers disagree on casing ("access", "ACCESS").
func ParseType(s string) (Type, error) {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case string(Access):
		return Access, nil
	case string(Refresh):
		return Refresh, nil
	default:
		return "", fmt.Errorf("token: unknown token type %q", s)
	}
}

// ErrInvalidTokenType is returned when a token other than an ACCESS
// token is offered as the jti source of an attestation.
var ErrInvalidTokenType = errors.New("token: invalid token type for attestation")

// Token is the issuer's record of a bearer token.
type Token struct {
	// JTI is the token's unique identifier.
	JTI string `json:"jti"`

	// Type is ACCESS or REFRESH.
	Type Type `json:"type"`

	// Subject is the issuer's subject claim.
	Subject string `json:"sub"`

	// IssuedAt and ExpiresAt are informational; the issuer enforces
	// expiry.
	IssuedAt  time.Time `json:"iat"`
	ExpiresAt time.Time `json:"exp"`
}

// RequireAccess returns ErrInvalidTokenType unless t is an ACCESS token
// with a non-empty jti.
func RequireAccess(t *Token) error {
	if t == nil {
		return fmt.Errorf("%w: no token", ErrInvalidTokenType)
	}
	if t.Type != Access {
		return fmt.Errorf("%w: got %s, want %s", ErrInvalidTokenType, t.Type, Access)
	}
	if t.JTI == "" {
		return fmt.Errorf("%w: access token has no jti", ErrInvalidTokenType)
	}
	return nil
}
