// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package authority

import (
	"context"
)

// Source fetches a user's authority from the remote directory. A
// Source must honor ctx cancellation; the cache abandons a lookup whose
// context ends but cannot stop the goroutine running it.
type Source interface {
	Lookup(ctx context.Context, username string) (*Record, error)
}

// SourceFunc adapts a function to Source.
type SourceFunc func(ctx context.Context, username string) (*Record, error)

// Lookup calls f.
func (f SourceFunc) Lookup(ctx context.Context, username string) (*Record, error) {
	return f(ctx, username)
}
