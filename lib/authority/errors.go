// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package authority

import (
	"errors"
	"fmt"
)

// ErrLookupFailure matches every *LookupError.
var ErrLookupFailure = errors.New("authority lookup failed")

// ErrNotFound is returned by a Source that has no record for the
// username. The cache reports it as a lookup failure like any other.
var ErrNotFound = errors.New("no authority record")

// errTimeout is the cause of a remote lookup cancelled by the cache's
// timeout.
var errTimeout = errors.New("remote lookup timed out")

// LookupError reports that a user's authority could not be obtained.
// The request that needed it may be retried.
type LookupError struct {
	Username string
	Err      error
}

func (e *LookupError) Error() string {
	return fmt.Sprintf("authority lookup for %q failed: %v", e.Username, e.Err)
}

func (e *LookupError) Unwrap() error { return e.Err }

// Is matches ErrLookupFailure.
func (e *LookupError) Is(target error) bool { return target == ErrLookupFailure }

// Retryable is always true: nothing about a failed lookup is cached.
func (e *LookupError) Retryable() bool { return true }
