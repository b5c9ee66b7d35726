// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/bureau-foundation/gatepass/lib/clock"
	"github.com/bureau-foundation/gatepass/lib/guard"
	"github.com/bureau-foundation/gatepass/lib/permission"
)

// maxEchoBody caps the echo request body.
const maxEchoBody = 1 << 20

// operation is one guarded route.
type operation struct {
	name    string
	pattern string
	handler func(http.ResponseWriter, *http.Request)
}

type echoService struct {
	clock clock.Clock
}

// newHandler mounts every operation behind serviceGuard. Operations
// missing from registry are a startup error rather than a guard panic.
func newHandler(serviceGuard *guard.Guard, registry *permission.Registry, clk clock.Clock) (http.Handler, error) {
	echo := &echoService{clock: clk}
	operations := []operation{
		{name: "health", pattern: "GET /health", handler: echo.health},
		{name: "whoami", pattern: "GET /whoami", handler: echo.whoami},
		{name: "echo", pattern: "POST /echo", handler: echo.echo},
	}

	var undeclared []string
	for _, op := range operations {
		if _, ok := registry.Lookup(op.name); !ok {
			undeclared = append(undeclared, op.name)
		}
	}
	if len(undeclared) > 0 {
		return nil, fmt.Errorf("permissions file does not declare operations: %s", strings.Join(undeclared, ", "))
	}

	mux := http.NewServeMux()
	for _, op := range operations {
		mux.Handle(op.pattern, serviceGuard.HandleFunc(op.name, op.handler))
	}
	return mux, nil
}

type healthResponse struct {
	Status string `json:"status"`
	Time   int64  `json:"time"`
}

type whoamiResponse struct {
	UserID   string `json:"user_id"`
	Username string `json:"username"`
	TokenJTI string `json:"token_jti"`
}

type echoResponse struct {
	Username string `json:"username"`
	Body     string `json:"body"`
}

func (s *echoService) health(writer http.ResponseWriter, request *http.Request) {
	writeJSON(writer, http.StatusOK, healthResponse{Status: "ok", Time: s.clock.Now().UnixMilli()})
}

func (s *echoService) whoami(writer http.ResponseWriter, request *http.Request) {
	principal, ok := guard.PrincipalFromContext(request.Context())
	if !ok {
		// Whitelisted whoami has nobody to report.
		writeJSON(writer, http.StatusOK, whoamiResponse{})
		return
	}
	writeJSON(writer, http.StatusOK, whoamiResponse{
		UserID:   principal.UserID,
		Username: principal.Username,
		TokenJTI: principal.TokenJTI,
	})
}

func (s *echoService) echo(writer http.ResponseWriter, request *http.Request) {
	body, err := io.ReadAll(http.MaxBytesReader(writer, request.Body, maxEchoBody))
	if err != nil {
		http.Error(writer, "request body too large", http.StatusRequestEntityTooLarge)
		return
	}
	response := echoResponse{Body: string(body)}
	if principal, ok := guard.PrincipalFromContext(request.Context()); ok {
		response.Username = principal.Username
	}
	writeJSON(writer, http.StatusOK, response)
}

func writeJSON(writer http.ResponseWriter, status int, value any) {
	writer.Header().Set("Content-Type", "application/json")
	writer.WriteHeader(status)
	json.NewEncoder(writer).Encode(value)
}
