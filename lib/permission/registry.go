// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package permission

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"slices"

	"github.com/tidwall/jsonc"
)

// Requirement is what an operation demands of its caller.
type Requirement struct {
	// Code is the permission code the caller must hold. Empty means
	// any verified caller may proceed.
	Code string
}

// AuthenticatedOnly reports whether the operation needs no permission
// code.
func (r Requirement) AuthenticatedOnly() bool { return r.Code == "" }

func (r Requirement) String() string {
	if r.AuthenticatedOnly() {
		return "authenticated"
	}
	return r.Code
}

// Registry maps operation names to requirements. It is built once at
// startup and read concurrently afterwards; Declare is not safe to call
// once requests are being served.
type Registry struct {
	operations map[string]Requirement
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{operations: make(map[string]Requirement)}
}

// Declare records that operation requires code. Panics on an empty
// operation or code, or a second declaration of operation: all three
// are programming errors caught at startup.
func (r *Registry) Declare(operation, code string) {
	if code == "" {
		panic(fmt.Sprintf("permission.Registry: empty code for operation %q (use DeclareAuthenticated)", operation))
	}
	r.declare(operation, Requirement{Code: code})
}

// DeclareAuthenticated records that operation is open to any verified
// caller.
func (r *Registry) DeclareAuthenticated(operation string) {
	r.declare(operation, Requirement{})
}

func (r *Registry) declare(operation string, requirement Requirement) {
	if operation == "" {
		panic("permission.Registry: empty operation name")
	}
	if _, exists := r.operations[operation]; exists {
		panic(fmt.Sprintf("permission.Registry: operation %q declared twice", operation))
	}
	r.operations[operation] = requirement
}

// Lookup returns operation's requirement and whether it is declared.
func (r *Registry) Lookup(operation string) (Requirement, bool) {
	requirement, ok := r.operations[operation]
	return requirement, ok
}

// Operations returns the declared operation names, sorted.
func (r *Registry) Operations() []string {
	names := make([]string, 0, len(r.operations))
	for name := range r.operations {
		names = append(names, name)
	}
	slices.Sort(names)
	return names
}

// registryFile is the on-disk form:
//
//	{
//	  "operations": {
//	    // operation: required code, or null for authenticated only
//	    "orders.list": "order:view",
//	    "profile.get": null,
//	  },
//	}
type registryFile struct {
	Operations map[string]*string `json:"operations"`
}

// ParseRegistry parses a JSONC registry document. Comments and trailing
// commas are allowed. An empty-string code is rejected: it would read
// as "requires nothing" by accident; write null to mean that.
func ParseRegistry(data []byte) (*Registry, error) {
	decoder := json.NewDecoder(bytes.NewReader(jsonc.ToJSON(data)))
	decoder.DisallowUnknownFields()
	var file registryFile
	if err := decoder.Decode(&file); err != nil {
		return nil, fmt.Errorf("parsing permission registry: %w", err)
	}
	if file.Operations == nil {
		return nil, fmt.Errorf("parsing permission registry: missing \"operations\"")
	}

	registry := NewRegistry()
	for operation, code := range file.Operations {
		switch {
		case operation == "":
			return nil, fmt.Errorf("permission registry: empty operation name")
		case code == nil:
			registry.DeclareAuthenticated(operation)
		case *code == "":
			return nil, fmt.Errorf("permission registry: operation %q has an empty code (use null for authenticated only)", operation)
		default:
			registry.Declare(operation, *code)
		}
	}
	return registry, nil
}

// LoadRegistryFile reads and parses a JSONC registry file.
func LoadRegistryFile(path string) (*Registry, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", path, err)
	}
	registry, err := ParseRegistry(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return registry, nil
}
