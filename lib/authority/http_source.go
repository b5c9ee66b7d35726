// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package authority

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/bureau-foundation/gatepass/lib/netutil"
)

// HTTPSource looks users up with GET <base>/authorities/<username>,
// expecting a JSON Record. 404 means ErrNotFound; any other non-200
// status is a failure.
type HTTPSource struct {
	base   string
	client *http.Client
}

// NewHTTPSource returns a Source for the directory at baseURL. A nil
// client uses http.DefaultClient; the cache's timeout bounds each call
// either way.
func NewHTTPSource(baseURL string, client *http.Client) (*HTTPSource, error) {
	parsed, err := url.Parse(baseURL)
	if err != nil {
		return nil, fmt.Errorf("authority URL %q: %w", baseURL, err)
	}
	if parsed.Scheme != "http" && parsed.Scheme != "https" {
		return nil, fmt.Errorf("authority URL %q: scheme must be http or https", baseURL)
	}
	if client == nil {
		client = http.DefaultClient
	}
	return &HTTPSource{base: strings.TrimSuffix(baseURL, "/"), client: client}, nil
}

// Lookup implements Source.
func (s *HTTPSource) Lookup(ctx context.Context, username string) (*Record, error) {
	endpoint := s.base + "/authorities/" + url.PathEscape(username)
	request, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("building request: %w", err)
	}
	request.Header.Set("Accept", "application/json")

	response, err := s.client.Do(request)
	if err != nil {
		return nil, fmt.Errorf("GET %s: %w", endpoint, err)
	}
	defer response.Body.Close()

	switch response.StatusCode {
	case http.StatusOK:
	case http.StatusNotFound:
		return nil, fmt.Errorf("%w for %q at %s", ErrNotFound, username, s.base)
	default:
		return nil, fmt.Errorf("GET %s: unexpected status %s: %s", endpoint, response.Status, netutil.ErrorBody(response.Body))
	}

	var record Record
	if err := netutil.DecodeResponse(response.Body, &record); err != nil {
		return nil, fmt.Errorf("decoding authority record from %s: %w", endpoint, err)
	}
	return &record, nil
}
