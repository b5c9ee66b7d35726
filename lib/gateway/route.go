// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package gateway

import (
	"fmt"
	"net/url"
	"slices"
	"strings"
)

// Route sends requests under a path prefix to one upstream service.
type Route struct {
	// Prefix is matched on whole path segments: "/orders" covers
	// "/orders" and "/orders/7" but not "/ordersx". "/" covers
	// everything.
	Prefix string `yaml:"prefix"`

	// Scope names the service for whitelist lookups.
	Scope string `yaml:"scope"`

	// Upstream is the service's base URL.
	Upstream string `yaml:"upstream"`
}

type compiledRoute struct {
	Route
	upstream *url.URL
}

// compileRoutes validates routes and orders them longest prefix first.
func compileRoutes(routes []Route) ([]compiledRoute, error) {
	if len(routes) == 0 {
		return nil, fmt.Errorf("gateway: no routes configured")
	}
	seen := make(map[string]bool, len(routes))
	compiled := make([]compiledRoute, 0, len(routes))
	for _, route := range routes {
		if !strings.HasPrefix(route.Prefix, "/") {
			return nil, fmt.Errorf("gateway: route prefix %q must start with /", route.Prefix)
		}
		prefix := route.Prefix
		if prefix != "/" {
			prefix = strings.TrimSuffix(prefix, "/")
		}
		if seen[prefix] {
			return nil, fmt.Errorf("gateway: duplicate route prefix %q", prefix)
		}
		seen[prefix] = true
		if route.Scope == "" {
			return nil, fmt.Errorf("gateway: route %q has no scope", prefix)
		}
		upstream, err := url.Parse(route.Upstream)
		if err != nil || (upstream.Scheme != "http" && upstream.Scheme != "https") || upstream.Host == "" {
			return nil, fmt.Errorf("gateway: route %q upstream %q is not an http(s) URL", prefix, route.Upstream)
		}
		route.Prefix = prefix
		compiled = append(compiled, compiledRoute{Route: route, upstream: upstream})
	}
	slices.SortFunc(compiled, func(a, b compiledRoute) int {
		return len(b.Prefix) - len(a.Prefix)
	})
	return compiled, nil
}

// matches reports whether requestPath falls under the route's prefix.
func (r *compiledRoute) matches(requestPath string) bool {
	if r.Prefix == "/" {
		return true
	}
	rest, ok := strings.CutPrefix(requestPath, r.Prefix)
	return ok && (rest == "" || rest[0] == '/')
}
