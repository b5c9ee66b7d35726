// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package netutil

import (
	"bytes"
	"fmt"
	"strings"
	"testing"
)

func TestDecodeResponse(t *testing.T) {
	t.Run("valid JSON", func(t *testing.T) {
		body := bytes.NewReader([]byte(`{"roles":["admin"],"permissions":["user:view"]}`))
		var result struct {
			Roles       []string `json:"roles"`
			Permissions []string `json:"permissions"`
		}
		if err := DecodeResponse(body, &result); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if len(result.Roles) != 1 || result.Permissions[0] != "user:view" {
			t.Fatalf("got %+v", result)
		}
	})

	t.Run("invalid JSON", func(t *testing.T) {
		if err := DecodeResponse(bytes.NewReader([]byte(`not json`)), &struct{}{}); err == nil {
			t.Fatal("expected error for invalid JSON")
		}
	})

	t.Run("oversized body", func(t *testing.T) {
		oversized := `"` + strings.Repeat("a", int(MaxResponseSize)) + `"`
		var value string
		if err := DecodeResponse(strings.NewReader(oversized), &value); err == nil {
			t.Fatal("expected error for body over the limit")
		}
	})

	t.Run("read error propagates", func(t *testing.T) {
		if err := DecodeResponse(&failReader{}, &struct{}{}); err == nil {
			t.Fatal("expected error from failing reader")
		}
	})
}

func TestErrorBody(t *testing.T) {
	tests := []struct {
		name string
		body string
		want string
	}{
		{"trimmed", "authority directory unavailable\n", "authority directory unavailable"},
		{"empty", "", ""},
		{"truncated", strings.Repeat("x", MaxErrorBody+100), strings.Repeat("x", MaxErrorBody)},
	}
	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			if got := ErrorBody(strings.NewReader(test.body)); got != test.want {
				t.Errorf("ErrorBody = %q (len %d), want len %d", got, len(got), len(test.want))
			}
		})
	}

	t.Run("read error yields empty string", func(t *testing.T) {
		if got := ErrorBody(&failReader{}); got != "" {
			t.Errorf("got %q, want empty", got)
		}
	})
}

type failReader struct{}

func (*failReader) Read([]byte) (int, error) {
	return 0, fmt.Errorf("simulated read failure")
}
