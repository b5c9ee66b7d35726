// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package authority caches each user's roles and permission codes, as
// reported by a remote authority directory.
//
// A Cache answers from memory while an entry is younger than its TTL.
// On a miss or an expired entry it performs one remote lookup per
// username no matter how many requests ask at once: concurrent callers
// for the same username share a single in-flight lookup and all receive
// its result. Entries are never refreshed in the background; the first
// access after expiry pays for the refresh.
//
// The remote lookup runs under the cache's own timeout, not any
// caller's context. A caller that gives up early gets its context
// error; the shared lookup keeps going for the others, and the timeout
// guarantees it eventually releases the username for the next attempt.
//
// Failed lookups (errors, timeouts, a missing record) are never cached
// and surface as *LookupError, which matches ErrLookupFailure. They are
// retryable.
//
// Two Source implementations are provided: SocketSource calls the
// "lookup" action of an authority service over the CBOR Unix socket
// protocol, HTTPSource fetches JSON from an HTTP directory.
package authority
