// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package guard

import (
	"errors"
	"net/http"

	"github.com/bureau-foundation/gatepass/lib/attestation"
	"github.com/bureau-foundation/gatepass/lib/authority"
	"github.com/bureau-foundation/gatepass/lib/permission"
	"github.com/bureau-foundation/gatepass/lib/token"
)

// Rejection is the class of a failed request.
type Rejection struct {
	// Name is the stable identifier used in response bodies, logs, and
	// metrics.
	Name string

	// Status is the HTTP status code.
	Status int

	// Retryable reports whether the same request may succeed later.
	Retryable bool
}

// The rejection classes. Internal covers any error outside the known
// taxonomy and denies like the others.
var (
	RejectSigning          = Rejection{Name: "signing_error", Status: http.StatusInternalServerError}
	RejectInvalidSignature = Rejection{Name: "invalid_signature", Status: http.StatusUnauthorized}
	RejectStaleSignature   = Rejection{Name: "stale_signature", Status: http.StatusUnauthorized}
	RejectInvalidTokenType = Rejection{Name: "invalid_token_type", Status: http.StatusUnauthorized}
	RejectLookupFailure    = Rejection{Name: "authority_unavailable", Status: http.StatusServiceUnavailable, Retryable: true}
	RejectForbidden        = Rejection{Name: "forbidden", Status: http.StatusForbidden}
	RejectInternal         = Rejection{Name: "internal_error", Status: http.StatusInternalServerError}
)

// Classify maps err to its rejection class. The first matching
// sentinel wins, in the order of the request flow.
func Classify(err error) Rejection {
	switch {
	case errors.Is(err, attestation.ErrSigning):
		return RejectSigning
	case errors.Is(err, token.ErrInvalidTokenType):
		return RejectInvalidTokenType
	case errors.Is(err, attestation.ErrInvalidSignature):
		return RejectInvalidSignature
	case errors.Is(err, attestation.ErrStaleSignature):
		return RejectStaleSignature
	case errors.Is(err, authority.ErrLookupFailure):
		return RejectLookupFailure
	case errors.Is(err, permission.ErrForbidden):
		return RejectForbidden
	default:
		return RejectInternal
	}
}
