// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package permission decides whether a verified user may invoke an
// operation.
//
// Every operation a service exposes is declared in a Registry at
// startup, either with the one permission code it requires or as
// "authenticated only". The Enforcer permits a request when the
// operation's code is an element of the user's permission set, compared
// as exact, case-sensitive strings. There is no hierarchy and no
// wildcard expansion: a user holding "user:*" does not hold "user:view".
//
// Anything the registry does not know about is denied.
package permission
