// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package guard

import (
	"context"

	"github.com/bureau-foundation/gatepass/lib/attestation"
)

type principalKey struct{}

// WithPrincipal returns a context carrying principal.
func WithPrincipal(ctx context.Context, principal *attestation.Principal) context.Context {
	return context.WithValue(ctx, principalKey{}, principal)
}

// PrincipalFromContext returns the verified caller, or false for a
// whitelisted request.
func PrincipalFromContext(ctx context.Context) (*attestation.Principal, bool) {
	principal, ok := ctx.Value(principalKey{}).(*attestation.Principal)
	return principal, ok && principal != nil
}
