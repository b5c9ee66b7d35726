// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package gateway

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/bureau-foundation/gatepass/lib/attestation"
	"github.com/bureau-foundation/gatepass/lib/netutil"
	"github.com/bureau-foundation/gatepass/lib/token"
)

// ErrUnauthenticated means the bearer token was missing, unknown,
// expired, or revoked.
var ErrUnauthenticated = errors.New("gateway: unauthenticated")

// Authentication is who a bearer token belongs to and what the token
// is.
type Authentication struct {
	Identity attestation.Identity
	Token    *token.Token
}

// Authenticator resolves a bearer token with its issuer. It returns an
// error wrapping ErrUnauthenticated for a token the issuer does not
// accept; any other error means the issuer could not be asked.
type Authenticator interface {
	Authenticate(ctx context.Context, bearer string) (*Authentication, error)
}

// AuthenticatorFunc adapts a function to Authenticator.
type AuthenticatorFunc func(ctx context.Context, bearer string) (*Authentication, error)

// Authenticate calls f.
func (f AuthenticatorFunc) Authenticate(ctx context.Context, bearer string) (*Authentication, error) {
	return f(ctx, bearer)
}

// IntrospectionAuthenticator asks a token issuer about a bearer with an
// OAuth 2.0 token introspection request (RFC 7662): a form POST of
// token=<bearer>, answered by JSON. Besides the standard "active",
// "sub", "username", "jti", "iat", and "exp" members, the response must
// carry "token_type" as ACCESS or REFRESH.
type IntrospectionAuthenticator struct {
	endpoint     string
	clientID     string
	clientSecret string
	client       *http.Client
}

// IntrospectionConfig configures an IntrospectionAuthenticator.
type IntrospectionConfig struct {
	// Endpoint is the introspection URL. Required.
	Endpoint string

	// ClientID and ClientSecret authenticate the gateway to the
	// issuer with HTTP basic auth when ClientID is set.
	ClientID     string
	ClientSecret string

	// Timeout bounds each introspection call. Defaults to 5 seconds.
	Timeout time.Duration

	// Transport overrides the HTTP transport.
	Transport http.RoundTripper
}

// NewIntrospectionAuthenticator validates config.
func NewIntrospectionAuthenticator(config IntrospectionConfig) (*IntrospectionAuthenticator, error) {
	parsed, err := url.Parse(config.Endpoint)
	if err != nil || (parsed.Scheme != "http" && parsed.Scheme != "https") || parsed.Host == "" {
		return nil, fmt.Errorf("introspection endpoint %q is not an http(s) URL", config.Endpoint)
	}
	timeout := config.Timeout
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	return &IntrospectionAuthenticator{
		endpoint:     config.Endpoint,
		clientID:     config.ClientID,
		clientSecret: config.ClientSecret,
		client:       &http.Client{Timeout: timeout, Transport: config.Transport},
	}, nil
}

type introspectionResponse struct {
	Active    bool   `json:"active"`
	Subject   string `json:"sub"`
	Username  string `json:"username"`
	JTI       string `json:"jti"`
	TokenType string `json:"token_type"`
	IssuedAt  int64  `json:"iat"`
	ExpiresAt int64  `json:"exp"`
}

// Authenticate implements Authenticator.
func (a *IntrospectionAuthenticator) Authenticate(ctx context.Context, bearer string) (*Authentication, error) {
	form := url.Values{"token": {bearer}}
	request, err := http.NewRequestWithContext(ctx, http.MethodPost, a.endpoint, strings.NewReader(form.Encode()))
	if err != nil {
		return nil, fmt.Errorf("building introspection request: %w", err)
	}
	request.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	request.Header.Set("Accept", "application/json")
	if a.clientID != "" {
		request.SetBasicAuth(a.clientID, a.clientSecret)
	}

	response, err := a.client.Do(request)
	if err != nil {
		return nil, fmt.Errorf("introspecting token: %w", err)
	}
	defer response.Body.Close()

	if response.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("introspecting token: unexpected status %s: %s", response.Status, netutil.ErrorBody(response.Body))
	}

	var introspected introspectionResponse
	if err := netutil.DecodeResponse(response.Body, &introspected); err != nil {
		return nil, fmt.Errorf("decoding introspection response: %w", err)
	}

	if !introspected.Active {
		return nil, fmt.Errorf("%w: token is not active", ErrUnauthenticated)
	}
	if introspected.Subject == "" || introspected.Username == "" {
		return nil, fmt.Errorf("%w: introspection response lacks sub or username", ErrUnauthenticated)
	}
	tokenType, err := token.ParseType(introspected.TokenType)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", token.ErrInvalidTokenType, err)
	}

	return &Authentication{
		Identity: attestation.Identity{
			UserID:   introspected.Subject,
			Username: introspected.Username,
		},
		Token: &token.Token{
			JTI:       introspected.JTI,
			Type:      tokenType,
			Subject:   introspected.Subject,
			IssuedAt:  unixOrZero(introspected.IssuedAt),
			ExpiresAt: unixOrZero(introspected.ExpiresAt),
		},
	}, nil
}

func unixOrZero(seconds int64) time.Time {
	if seconds == 0 {
		return time.Time{}
	}
	return time.Unix(seconds, 0)
}
