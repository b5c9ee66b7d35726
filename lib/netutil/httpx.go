// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package netutil provides bounded HTTP response reading for Gatepass's
// JSON clients: the authority directory source and the token
// introspection authenticator.
//
// Both talk to services outside the process, so every body read is
// capped at MaxResponseSize, and error bodies quoted into error
// messages are cut to MaxErrorBody.
package netutil

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"
)

// MaxResponseSize bounds JSON response body reads. Authority records
// and introspection responses are a few hundred bytes.
const MaxResponseSize int64 = 1 << 20

// MaxErrorBody bounds the part of an error response quoted by ErrorBody.
const MaxErrorBody = 512

// DecodeResponse reads a JSON response body (up to MaxResponseSize
// bytes) and decodes it into v. A body over the limit is an error
// rather than a truncated decode.
func DecodeResponse(body io.Reader, v any) error {
	data, err := io.ReadAll(io.LimitReader(body, MaxResponseSize+1))
	if err != nil {
		return fmt.Errorf("reading response body: %w", err)
	}
	if int64(len(data)) > MaxResponseSize {
		return fmt.Errorf("response body exceeds %d bytes", MaxResponseSize)
	}
	return json.Unmarshal(data, v)
}

// ErrorBody reads an HTTP error response body for a diagnostic message:
// trimmed, and cut to MaxErrorBody bytes. Read errors are ignored; a
// partial or empty body is still useful in an error message.
func ErrorBody(body io.Reader) string {
	data, _ := io.ReadAll(io.LimitReader(body, MaxErrorBody))
	return strings.TrimSpace(string(data))
}
