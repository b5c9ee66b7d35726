// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package gateway

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"net/http/httputil"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/bureau-foundation/gatepass/lib/attestation"
	"github.com/bureau-foundation/gatepass/lib/guard"
	"github.com/bureau-foundation/gatepass/lib/whitelist"
)

// Gateway-specific rejections, alongside the guard's taxonomy.
var (
	RejectNoRoute                  = guard.Rejection{Name: "no_route", Status: http.StatusNotFound}
	RejectUnauthenticated          = guard.Rejection{Name: "unauthenticated", Status: http.StatusUnauthorized}
	RejectAuthenticatorUnavailable = guard.Rejection{Name: "authenticator_unavailable", Status: http.StatusServiceUnavailable, Retryable: true}
	RejectUpstream                 = guard.Rejection{Name: "upstream_unavailable", Status: http.StatusBadGateway}
)

// Config configures a Gateway.
type Config struct {
	// Routes are the upstream services. At least one is required.
	Routes []Route

	// Whitelist may be nil, whitelisting nothing.
	Whitelist *whitelist.Matcher

	// Authenticator resolves bearer tokens. Required.
	Authenticator Authenticator

	// Signer builds attestations. Required.
	Signer *attestation.Signer

	// ForwardAuthorization keeps the client's Authorization header on
	// upstream requests. Off by default: services trust the
	// attestation, not the bearer.
	ForwardAuthorization bool

	// Transport overrides the upstream transport.
	Transport http.RoundTripper

	// Logger is the structured logger. Required.
	Logger *slog.Logger

	// Registerer receives the gateway's metrics when set.
	Registerer prometheus.Registerer
}

// Gateway is an http.Handler. Safe for concurrent use.
type Gateway struct {
	routes               []compiledRoute
	whitelist            *whitelist.Matcher
	authenticator        Authenticator
	signer               *attestation.Signer
	forwardAuthorization bool
	proxy                *httputil.ReverseProxy
	logger               *slog.Logger
	requests             *prometheus.CounterVec
}

type routeKey struct{}

// New validates config and builds a Gateway.
func New(config Config) (*Gateway, error) {
	if config.Authenticator == nil {
		return nil, errors.New("gateway: Authenticator is required")
	}
	if config.Signer == nil {
		return nil, errors.New("gateway: Signer is required")
	}
	if config.Logger == nil {
		return nil, errors.New("gateway: Logger is required")
	}
	routes, err := compileRoutes(config.Routes)
	if err != nil {
		return nil, err
	}

	g := &Gateway{
		routes:               routes,
		whitelist:            config.Whitelist,
		authenticator:        config.Authenticator,
		signer:               config.Signer,
		forwardAuthorization: config.ForwardAuthorization,
		logger:               config.Logger,
	}
	if config.Registerer != nil {
		g.requests = promauto.With(config.Registerer).NewCounterVec(
			prometheus.CounterOpts{
				Name: "gatepass_gateway_requests_total",
				Help: "Gateway requests by route scope and outcome: attested, bypass, or a rejection name.",
			},
			[]string{"scope", "outcome"},
		)
	}

	g.proxy = &httputil.ReverseProxy{
		Rewrite: func(proxyRequest *httputil.ProxyRequest) {
			route := proxyRequest.In.Context().Value(routeKey{}).(*compiledRoute)
			proxyRequest.SetURL(route.upstream)
			proxyRequest.SetXForwarded()
		},
		Transport: config.Transport,
		ErrorLog:  slog.NewLogLogger(config.Logger.Handler(), slog.LevelWarn),
		ErrorHandler: func(writer http.ResponseWriter, request *http.Request, err error) {
			route := request.Context().Value(routeKey{}).(*compiledRoute)
			g.logger.Warn("upstream request failed",
				"scope", route.Scope,
				"upstream", route.upstream.String(),
				"path", request.URL.Path,
				"error", err,
			)
			g.observe(route.Scope, RejectUpstream.Name)
			guard.WriteRejection(writer, RejectUpstream, 0)
		},
	}
	return g, nil
}

func (g *Gateway) observe(scope, outcome string) {
	if g.requests != nil {
		g.requests.WithLabelValues(scope, outcome).Inc()
	}
}

func (g *Gateway) route(requestPath string) *compiledRoute {
	for index := range g.routes {
		if g.routes[index].matches(requestPath) {
			return &g.routes[index]
		}
	}
	return nil
}

// ServeHTTP implements http.Handler.
func (g *Gateway) ServeHTTP(writer http.ResponseWriter, request *http.Request) {
	outbound := request.Clone(request.Context())
	attestation.StripHeaders(outbound.Header)

	requestPath := outbound.URL.Path
	route := g.route(requestPath)
	if route == nil {
		g.observe("", RejectNoRoute.Name)
		guard.WriteRejection(writer, RejectNoRoute, 0)
		return
	}
	outbound = outbound.WithContext(context.WithValue(outbound.Context(), routeKey{}, route))

	if pattern, matched := g.whitelist.Match(route.Scope, requestPath); matched {
		g.observe(route.Scope, "bypass")
		g.logger.Debug("whitelisted request", "scope", route.Scope, "path", requestPath, "pattern", pattern)
		g.dropAuthorization(outbound)
		g.proxy.ServeHTTP(writer, outbound)
		return
	}

	bearer, ok := bearerToken(outbound.Header.Get("Authorization"))
	if !ok {
		g.rejectUnauthenticated(writer, outbound, route, errors.New("missing bearer token"))
		return
	}

	authentication, err := g.authenticator.Authenticate(outbound.Context(), bearer)
	if err != nil {
		if errors.Is(err, ErrUnauthenticated) {
			g.rejectUnauthenticated(writer, outbound, route, err)
			return
		}
		rejection := guard.Classify(err)
		if rejection == guard.RejectInternal {
			rejection = RejectAuthenticatorUnavailable
		}
		g.reject(writer, outbound, route, rejection, err)
		return
	}
	if authentication == nil {
		g.rejectUnauthenticated(writer, outbound, route, errors.New("authenticator returned no identity"))
		return
	}

	attested, err := g.signer.Attest(authentication.Identity, authentication.Token)
	if err != nil {
		g.reject(writer, outbound, route, guard.Classify(err), err)
		return
	}

	attested.SetHeaders(outbound.Header)
	g.dropAuthorization(outbound)
	g.observe(route.Scope, "attested")
	g.proxy.ServeHTTP(writer, outbound)
}

// dropAuthorization removes the bearer from an upstream request unless
// the gateway is configured to forward it. Applies to attested and
// whitelisted requests alike.
func (g *Gateway) dropAuthorization(outbound *http.Request) {
	if !g.forwardAuthorization {
		outbound.Header.Del("Authorization")
	}
}

func (g *Gateway) rejectUnauthenticated(writer http.ResponseWriter, request *http.Request, route *compiledRoute, err error) {
	writer.Header().Set("WWW-Authenticate", `Bearer realm="gatepass"`)
	g.reject(writer, request, route, RejectUnauthenticated, err)
}

func (g *Gateway) reject(writer http.ResponseWriter, request *http.Request, route *compiledRoute, rejection guard.Rejection, err error) {
	g.observe(route.Scope, rejection.Name)
	level := slog.LevelInfo
	if rejection.Status >= http.StatusInternalServerError {
		level = slog.LevelWarn
	}
	g.logger.Log(request.Context(), level, "request rejected",
		"scope", route.Scope,
		"path", request.URL.Path,
		"rejection", rejection.Name,
		"error", err,
	)
	guard.WriteRejection(writer, rejection, time.Second)
}

// bearerToken extracts the token from an "Authorization: Bearer x"
// header value. The scheme is case-insensitive.
func bearerToken(header string) (string, bool) {
	scheme, value, found := strings.Cut(header, " ")
	if !found || !strings.EqualFold(scheme, "Bearer") {
		return "", false
	}
	value = strings.TrimSpace(value)
	return value, value != ""
}
