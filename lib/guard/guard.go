// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package guard

import (
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/bureau-foundation/gatepass/lib/attestation"
	"github.com/bureau-foundation/gatepass/lib/permission"
	"github.com/bureau-foundation/gatepass/lib/whitelist"
)

// Config configures a Guard.
type Config struct {
	// Scope selects the whitelist patterns for this service, in
	// addition to the common ones.
	Scope string

	// Whitelist may be nil, whitelisting nothing.
	Whitelist *whitelist.Matcher

	// Verifier checks attestations. Required.
	Verifier *attestation.Verifier

	// Enforcer checks permissions. Required.
	Enforcer *permission.Enforcer

	// RetryAfter is sent with retryable rejections. Defaults to
	// DefaultRetryAfter.
	RetryAfter time.Duration

	// Logger is the structured logger. Required.
	Logger *slog.Logger

	// Metrics is optional.
	Metrics *Metrics
}

// Guard wraps a service's operations. Safe for concurrent use.
type Guard struct {
	whitelist  whitelist.Scoped
	verifier   *attestation.Verifier
	enforcer   *permission.Enforcer
	retryAfter time.Duration
	logger     *slog.Logger
	metrics    *Metrics
}

// New creates a Guard.
func New(config Config) *Guard {
	if config.Verifier == nil {
		panic("guard.New: Verifier is required")
	}
	if config.Enforcer == nil {
		panic("guard.New: Enforcer is required")
	}
	if config.Logger == nil {
		panic("guard.New: Logger is required")
	}
	retryAfter := config.RetryAfter
	if retryAfter <= 0 {
		retryAfter = DefaultRetryAfter
	}
	return &Guard{
		whitelist:  config.Whitelist.Scope(config.Scope),
		verifier:   config.Verifier,
		enforcer:   config.Enforcer,
		retryAfter: retryAfter,
		logger:     config.Logger,
		metrics:    config.Metrics,
	}
}

// Handle wraps next as operation. Panics if operation is not declared
// in the enforcer's registry, so a handler can never be mounted without
// a permission decision.
func (g *Guard) Handle(operation string, next http.Handler) http.Handler {
	if _, declared := g.enforcer.Registry().Lookup(operation); !declared {
		panic(fmt.Sprintf("guard.Handle: operation %q is not declared in the permission registry", operation))
	}
	return http.HandlerFunc(func(writer http.ResponseWriter, request *http.Request) {
		g.serve(operation, next, writer, request)
	})
}

// HandleFunc is Handle for a handler function.
func (g *Guard) HandleFunc(operation string, next func(http.ResponseWriter, *http.Request)) http.Handler {
	return g.Handle(operation, http.HandlerFunc(next))
}

func (g *Guard) serve(operation string, next http.Handler, writer http.ResponseWriter, request *http.Request) {
	requestPath := request.URL.Path

	if pattern, matched := g.whitelist.Match(requestPath); matched {
		g.metrics.observe(operation, decisionBypass)
		g.logger.Debug("whitelisted request",
			"operation", operation,
			"path", requestPath,
			"pattern", pattern,
		)
		next.ServeHTTP(writer, request)
		return
	}

	decoded, err := attestation.FromHeaders(request.Header)
	if err != nil {
		g.reject(writer, operation, requestPath, nil, err)
		return
	}
	principal, err := g.verifier.Verify(decoded)
	if err != nil {
		g.reject(writer, operation, requestPath, decoded, err)
		return
	}

	if err := g.enforcer.Authorize(request.Context(), principal.Username, operation); err != nil {
		g.reject(writer, operation, requestPath, decoded, err)
		return
	}

	g.metrics.observe(operation, decisionAllow)
	next.ServeHTTP(writer, request.WithContext(WithPrincipal(request.Context(), principal)))
}

// reject logs err and writes its rejection. decoded is nil when the
// headers could not be parsed.
func (g *Guard) reject(writer http.ResponseWriter, operation, requestPath string, decoded *attestation.Attestation, err error) {
	rejection := Classify(err)
	g.metrics.observe(operation, rejection.Name)

	attributes := []any{
		"operation", operation,
		"path", requestPath,
		"rejection", rejection.Name,
		"error", err,
	}
	if decoded != nil {
		attributes = append(attributes,
			"username", decoded.Username,
			"token_jti", decoded.TokenJTI,
			"signature_fingerprint", attestation.Fingerprint(decoded.Signature),
		)
	}

	switch {
	case errors.Is(err, attestation.ErrStaleSignature):
		g.logger.Warn("stale attestation rejected", append([]any{"category", "security"}, attributes...)...)
	case errors.Is(err, attestation.ErrInvalidSignature):
		g.logger.Warn("invalid attestation rejected", append([]any{"category", "audit"}, attributes...)...)
	case rejection.Retryable:
		g.logger.Warn("request deferred", attributes...)
	case rejection == RejectInternal:
		g.logger.Error("request failed", attributes...)
	default:
		g.logger.Info("request rejected", attributes...)
	}

	WriteRejection(writer, rejection, g.retryAfter)
}
