// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package authority

import (
	"slices"
)

// Record is the wire form of a user's authority, as returned by a
// Source. Order and duplicates carry no meaning.
type Record struct {
	Roles       []string `json:"roles" cbor:"roles" yaml:"roles"`
	Permissions []string `json:"permissions" cbor:"permissions" yaml:"permissions"`
}

// Authority is an immutable snapshot of one user's roles and permission
// codes. Safe for concurrent use.
type Authority struct {
	roles       map[string]struct{}
	permissions map[string]struct{}
}

// NewAuthority builds a snapshot from a record.
func NewAuthority(record Record) *Authority {
	return &Authority{
		roles:       toSet(record.Roles),
		permissions: toSet(record.Permissions),
	}
}

func toSet(values []string) map[string]struct{} {
	set := make(map[string]struct{}, len(values))
	for _, value := range values {
		set[value] = struct{}{}
	}
	return set
}

// HasPermission reports whether code is one of the permission codes,
// by exact string comparison.
func (a *Authority) HasPermission(code string) bool {
	if a == nil {
		return false
	}
	_, ok := a.permissions[code]
	return ok
}

// HasRole reports whether role is one of the roles.
func (a *Authority) HasRole(role string) bool {
	if a == nil {
		return false
	}
	_, ok := a.roles[role]
	return ok
}

// Permissions returns the permission codes in sorted order.
func (a *Authority) Permissions() []string {
	return sortedKeys(a.permissions)
}

// Roles returns the roles in sorted order.
func (a *Authority) Roles() []string {
	return sortedKeys(a.roles)
}

// Record returns the snapshot in wire form, sorted.
func (a *Authority) Record() Record {
	return Record{Roles: a.Roles(), Permissions: a.Permissions()}
}

func sortedKeys(set map[string]struct{}) []string {
	keys := make([]string, 0, len(set))
	for key := range set {
		keys = append(keys, key)
	}
	slices.Sort(keys)
	return keys
}
