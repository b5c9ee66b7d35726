// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package whitelist

import (
	"errors"
	"fmt"
	"slices"
)

// CommonScope names the patterns that apply to every service.
const CommonScope = "common"

// Matcher holds validated patterns by scope. It is immutable after New
// and safe for concurrent use.
type Matcher struct {
	common []string
	scopes map[string][]string
}

// New validates every pattern and returns a Matcher. The CommonScope
// entry, if present, becomes the common list. All invalid patterns are
// reported together.
func New(entries map[string][]string) (*Matcher, error) {
	var errs []error
	matcher := &Matcher{scopes: make(map[string][]string, len(entries))}
	for scope, patterns := range entries {
		if scope == "" {
			errs = append(errs, errors.New("whitelist: empty scope name"))
			continue
		}
		for _, pattern := range patterns {
			if err := ValidatePattern(pattern); err != nil {
				errs = append(errs, fmt.Errorf("whitelist scope %q: %w", scope, err))
			}
		}
		if scope == CommonScope {
			matcher.common = slices.Clone(patterns)
		} else {
			matcher.scopes[scope] = slices.Clone(patterns)
		}
	}
	if err := errors.Join(errs...); err != nil {
		return nil, err
	}
	return matcher, nil
}

// Match reports whether requestPath bypasses attestation for scope and,
// if so, which pattern matched. A nil Matcher whitelists nothing.
func (m *Matcher) Match(scope, requestPath string) (string, bool) {
	if m == nil {
		return "", false
	}
	for _, pattern := range m.common {
		if MatchPattern(pattern, requestPath) {
			return pattern, true
		}
	}
	for _, pattern := range m.scopes[scope] {
		if MatchPattern(pattern, requestPath) {
			return pattern, true
		}
	}
	return "", false
}

// Scope returns a single-scope view of m.
func (m *Matcher) Scope(scope string) Scoped {
	return Scoped{matcher: m, scope: scope}
}

// Scoped is a Matcher bound to one scope.
type Scoped struct {
	matcher *Matcher
	scope   string
}

// Match is Matcher.Match for the bound scope.
func (s Scoped) Match(requestPath string) (string, bool) {
	return s.matcher.Match(s.scope, requestPath)
}
