// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package permission

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestRegistryDeclare(t *testing.T) {
	registry := NewRegistry()
	registry.Declare("orders.list", "order:view")
	registry.DeclareAuthenticated("profile.get")

	requirement, ok := registry.Lookup("orders.list")
	if !ok || requirement.Code != "order:view" || requirement.AuthenticatedOnly() {
		t.Errorf("orders.list = %+v, %v", requirement, ok)
	}
	requirement, ok = registry.Lookup("profile.get")
	if !ok || !requirement.AuthenticatedOnly() {
		t.Errorf("profile.get = %+v, %v", requirement, ok)
	}
	if _, ok := registry.Lookup("orders.delete"); ok {
		t.Error("undeclared operation found")
	}

	if diff := cmp.Diff([]string{"orders.list", "profile.get"}, registry.Operations()); diff != "" {
		t.Errorf("Operations mismatch (-want +got):\n%s", diff)
	}
}

func TestRegistryDeclarePanics(t *testing.T) {
	tests := []struct {
		name    string
		declare func(*Registry)
	}{
		{"empty operation", func(r *Registry) { r.Declare("", "order:view") }},
		{"empty code", func(r *Registry) { r.Declare("orders.list", "") }},
		{"duplicate", func(r *Registry) {
			r.Declare("orders.list", "order:view")
			r.DeclareAuthenticated("orders.list")
		}},
	}
	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			defer func() {
				if recover() == nil {
					t.Error("did not panic")
				}
			}()
			test.declare(NewRegistry())
		})
	}
}

func TestParseRegistry(t *testing.T) {
	registry, err := ParseRegistry([]byte(`{
		// Orders service.
		"operations": {
			"orders.list": "order:view",
			"orders.cancel": "order:cancel", /* support only */
			"profile.get": null,
		},
	}`))
	if err != nil {
		t.Fatalf("ParseRegistry: %v", err)
	}

	want := map[string]Requirement{
		"orders.list":   {Code: "order:view"},
		"orders.cancel": {Code: "order:cancel"},
		"profile.get":   {},
	}
	got := make(map[string]Requirement)
	for _, operation := range registry.Operations() {
		got[operation], _ = registry.Lookup(operation)
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("registry mismatch (-want +got):\n%s", diff)
	}
}

func TestParseRegistryRejects(t *testing.T) {
	tests := []struct {
		name     string
		document string
		want     string
	}{
		{"empty code", `{"operations": {"orders.list": ""}}`, "empty code"},
		{"missing operations", `{}`, "missing"},
		{"unknown field", `{"operations": {}, "wildcards": true}`, "unknown field"},
		{"empty operation", `{"operations": {"": "x"}}`, "empty operation"},
		{"not json", `operations: {}`, "parsing"},
	}
	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			_, err := ParseRegistry([]byte(test.document))
			if err == nil || !strings.Contains(err.Error(), test.want) {
				t.Errorf("error = %v, want containing %q", err, test.want)
			}
		})
	}
}

func TestLoadRegistryFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "permissions.jsonc")
	if err := os.WriteFile(path, []byte(`{"operations": {"echo": "echo:call"}}`), 0o600); err != nil {
		t.Fatal(err)
	}
	registry, err := LoadRegistryFile(path)
	if err != nil {
		t.Fatalf("LoadRegistryFile: %v", err)
	}
	if requirement, _ := registry.Lookup("echo"); requirement.Code != "echo:call" {
		t.Errorf("echo requirement = %+v", requirement)
	}

	if _, err := LoadRegistryFile(filepath.Join(t.TempDir(), "absent.jsonc")); err == nil {
		t.Error("missing file accepted")
	}
}
