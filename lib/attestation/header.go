// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package attestation

import (
	"fmt"
	"net/http"
	"strconv"
	"strings"
)

// HTTP headers carrying an attestation. All share HeaderPrefix.
const (
	HeaderPrefix    = "X-Gatepass-"
	HeaderUserID    = "X-Gatepass-User-Id"
	HeaderUsername  = "X-Gatepass-Username"
	HeaderTokenJTI  = "X-Gatepass-Token-Jti"
	HeaderTimestamp = "X-Gatepass-Timestamp"
	HeaderSignature = "X-Gatepass-Signature"
)

// SetHeaders writes a into header, replacing any existing values.
func (a *Attestation) SetHeaders(header http.Header) {
	header.Set(HeaderUserID, a.UserID)
	header.Set(HeaderUsername, a.Username)
	header.Set(HeaderTokenJTI, a.TokenJTI)
	header.Set(HeaderTimestamp, strconv.FormatInt(a.Timestamp, 10))
	header.Set(HeaderSignature, a.Signature)
}

// FromHeaders reads an attestation from header. A missing, empty, or
// repeated field, or a timestamp that is not a decimal integer, is a
// structural mismatch and wraps ErrInvalidSignature.
func FromHeaders(header http.Header) (*Attestation, error) {
	var fields [5]string
	for index, name := range []string{HeaderUserID, HeaderUsername, HeaderTokenJTI, HeaderTimestamp, HeaderSignature} {
		values := header.Values(name)
		switch {
		case len(values) == 0 || values[0] == "":
			return nil, fmt.Errorf("%w: missing %s header", ErrInvalidSignature, name)
		case len(values) > 1:
			return nil, fmt.Errorf("%w: %d values for %s header", ErrInvalidSignature, len(values), name)
		}
		fields[index] = values[0]
	}

	timestamp, err := strconv.ParseInt(fields[3], 10, 64)
	if err != nil {
		return nil, fmt.Errorf("%w: malformed %s header: %v", ErrInvalidSignature, HeaderTimestamp, err)
	}

	return &Attestation{
		UserID:    fields[0],
		Username:  fields[1],
		TokenJTI:  fields[2],
		Timestamp: timestamp,
		Signature: fields[4],
	}, nil
}

// StripHeaders removes every header with HeaderPrefix. The gateway
// calls it on every inbound request so a client cannot supply its own
// attestation.
func StripHeaders(header http.Header) {
	for name := range header {
		if strings.HasPrefix(http.CanonicalHeaderKey(name), HeaderPrefix) {
			delete(header, name)
		}
	}
}
