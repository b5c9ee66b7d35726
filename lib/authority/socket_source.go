// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package authority

import (
	"context"
	"errors"
	"fmt"

	"github.com/bureau-foundation/gatepass/lib/service"
)

// LookupAction is the socket protocol action an authority service
// serves. The request carries "username"; the response data is a
// Record.
const LookupAction = "lookup"

// NotFoundMessage is the error text an authority service returns for an
// unknown username. SocketSource maps it back to ErrNotFound.
const NotFoundMessage = "not found"

// SocketSource looks users up through an authority service's Unix
// socket.
type SocketSource struct {
	client *service.ServiceClient
}

// NewSocketSource returns a Source calling the authority at socketPath.
func NewSocketSource(socketPath string) *SocketSource {
	return &SocketSource{client: service.NewServiceClient(socketPath)}
}

// Lookup implements Source.
func (s *SocketSource) Lookup(ctx context.Context, username string) (*Record, error) {
	var record Record
	err := s.client.Call(ctx, LookupAction, map[string]any{"username": username}, &record)
	if err != nil {
		var serviceErr *service.ServiceError
		if errors.As(err, &serviceErr) && serviceErr.Message == NotFoundMessage {
			return nil, fmt.Errorf("%w for %q at %s", ErrNotFound, username, s.client.SocketPath())
		}
		return nil, err
	}
	return &record, nil
}
