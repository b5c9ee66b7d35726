// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package token

import (
	"errors"
	"testing"
)

func TestRequireAccess(t *testing.T) {
	tests := []struct {
		name    string
		token   *Token
		wantErr bool
	}{
		{"access", &Token{JTI: "abc123", Type: Access}, false},
		{"refresh", &Token{JTI: "abc123", Type: Refresh}, true},
		{"empty type", &Token{JTI: "abc123"}, true},
		{"lowercase type is not normalized", &Token{JTI: "abc123", Type: "access"}, true},
		{"access without jti", &Token{Type: Access}, true},
		{"nil", nil, true},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			err := RequireAccess(test.token)
			if test.wantErr {
				if !errors.Is(err, ErrInvalidTokenType) {
					t.Errorf("RequireAccess() = %v, want ErrInvalidTokenType", err)
				}
				return
			}
			if err != nil {
				t.Errorf("RequireAccess() = %v, want nil", err)
			}
		})
	}
}

func TestParseType(t *testing.T) {
	tests := []struct {
		input   string
		want    Type
		wantErr bool
	}{
		{"ACCESS", Access, false},
		{"access", Access, false},
		{" Refresh ", Refresh, false},
		{"id", "", true},
		{"", "", true},
	}

	for _, test := range tests {
		got, err := ParseType(test.input)
		if test.wantErr {
			if err == nil {
				t.Errorf("ParseType(%q) = %q, want error", test.input, got)
			}
			continue
		}
		if err != nil {
			t.Errorf("ParseType(%q): %v", test.input, err)
			continue
		}
		if got != test.want {
			t.Errorf("ParseType(%q) = %q, want %q", test.input, got, test.want)
		}
	}
}
