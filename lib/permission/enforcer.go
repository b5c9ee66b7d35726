// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package permission

import (
	"context"
	"errors"
	"fmt"

	"github.com/bureau-foundation/gatepass/lib/authority"
)

// ErrForbidden matches every *ForbiddenError.
var ErrForbidden = errors.New("forbidden")

// DenyReason describes why a request was forbidden.
type DenyReason int

const (
	// ReasonMissingPermission means the user lacks the required code.
	ReasonMissingPermission DenyReason = iota

	// ReasonUndeclaredOperation means the operation is not in the
	// registry.
	ReasonUndeclaredOperation
)

// String returns a human-readable reason.
func (r DenyReason) String() string {
	switch r {
	case ReasonMissingPermission:
		return "missing permission"
	case ReasonUndeclaredOperation:
		return "undeclared operation"
	default:
		return fmt.Sprintf("DenyReason(%d)", int(r))
	}
}

// ForbiddenError reports a denied operation.
type ForbiddenError struct {
	Username  string
	Operation string
	// Required is the code the operation needs; empty for an
	// undeclared operation.
	Required string
	Reason   DenyReason
}

func (e *ForbiddenError) Error() string {
	if e.Reason == ReasonUndeclaredOperation {
		return fmt.Sprintf("forbidden: operation %q is not declared", e.Operation)
	}
	return fmt.Sprintf("forbidden: %q lacks %q for operation %q", e.Username, e.Required, e.Operation)
}

// Is matches ErrForbidden.
func (e *ForbiddenError) Is(target error) bool { return target == ErrForbidden }

// AuthorityGetter supplies a user's current authority. *authority.Cache
// implements it.
type AuthorityGetter interface {
	Get(ctx context.Context, username string) (*authority.Authority, error)
}

// Enforcer applies a Registry to verified callers. Safe for concurrent
// use once the registry is built.
type Enforcer struct {
	registry    *Registry
	authorities AuthorityGetter
}

// NewEnforcer returns an Enforcer for registry, fetching user
// authority from authorities.
func NewEnforcer(registry *Registry, authorities AuthorityGetter) *Enforcer {
	if registry == nil {
		panic("permission.NewEnforcer: registry is required")
	}
	if authorities == nil {
		panic("permission.NewEnforcer: authorities is required")
	}
	return &Enforcer{registry: registry, authorities: authorities}
}

// Registry returns the enforcer's registry.
func (e *Enforcer) Registry() *Registry { return e.registry }

// Authorize returns nil if username may invoke operation. Denials are
// *ForbiddenError. A failure to obtain username's authority is
// returned unchanged (an *authority.LookupError from the cache), so
// the caller can tell "no" from "could not ask".
//
// Authenticated-only operations do not consult the authority source.
func (e *Enforcer) Authorize(ctx context.Context, username, operation string) error {
	requirement, declared := e.registry.Lookup(operation)
	if !declared {
		return &ForbiddenError{
			Username:  username,
			Operation: operation,
			Reason:    ReasonUndeclaredOperation,
		}
	}
	if requirement.AuthenticatedOnly() {
		return nil
	}

	current, err := e.authorities.Get(ctx, username)
	if err != nil {
		return err
	}
	if !Permits(current, requirement) {
		return &ForbiddenError{
			Username:  username,
			Operation: operation,
			Required:  requirement.Code,
			Reason:    ReasonMissingPermission,
		}
	}
	return nil
}

// Permits reports whether holder satisfies requirement. A nil holder
// satisfies only authenticated-only requirements.
func Permits(holder *authority.Authority, requirement Requirement) bool {
	if requirement.AuthenticatedOnly() {
		return true
	}
	return holder.HasPermission(requirement.Code)
}
