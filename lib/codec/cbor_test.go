// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package codec

import (
	"bytes"
	"strings"
	"testing"
)

type lookupRequest struct {
	Action   string `cbor:"action"`
	Username string `cbor:"username,omitempty"`
}

type authorityRecord struct {
	Roles       []string `json:"roles"`
	Permissions []string `json:"permissions"`
}

func TestMarshalUnmarshal(t *testing.T) {
	original := lookupRequest{Action: "lookup", Username: "alice"}

	data, err := Marshal(original)
	if err != nil {
		t.Fatalf("Marshal: %v", err)
	}

	var decoded lookupRequest
	if err := Unmarshal(data, &decoded); err != nil {
		t.Fatalf("Unmarshal: %v", err)
	}
	if decoded != original {
		t.Errorf("decoded = %+v, want %+v", decoded, original)
	}
}

func TestMarshalDeterministicMaps(t *testing.T) {
	// Go randomizes map iteration; the encoded bytes must not follow it.
	value := map[string]any{
		"username": "alice",
		"action":   "lookup",
		"token":    []byte{1, 2, 3},
		"z":        1,
		"a":        2,
	}

	first, err := Marshal(value)
	if err != nil {
		t.Fatalf("Marshal: %v", err)
	}
	for range 50 {
		again, err := Marshal(value)
		if err != nil {
			t.Fatalf("Marshal: %v", err)
		}
		if !bytes.Equal(first, again) {
			t.Fatal("map encoding is not deterministic")
		}
	}
}

func TestJSONTagFallback(t *testing.T) {
	data, err := Marshal(authorityRecord{
		Roles:       []string{"admin"},
		Permissions: []string{"user:view"},
	})
	if err != nil {
		t.Fatalf("Marshal: %v", err)
	}

	diagnostic, err := Diagnose(data)
	if err != nil {
		t.Fatalf("Diagnose: %v", err)
	}
	if !strings.Contains(diagnostic, `"permissions"`) {
		t.Errorf("diagnostic %s does not use json tag names", diagnostic)
	}
}

func TestUnmarshalAnyUsesStringKeys(t *testing.T) {
	data, err := Marshal(map[string]any{"action": "lookup"})
	if err != nil {
		t.Fatalf("Marshal: %v", err)
	}

	var decoded any
	if err := Unmarshal(data, &decoded); err != nil {
		t.Fatalf("Unmarshal: %v", err)
	}
	object, ok := decoded.(map[string]any)
	if !ok {
		t.Fatalf("decoded type = %T, want map[string]any", decoded)
	}
	if object["action"] != "lookup" {
		t.Errorf("action = %v, want lookup", object["action"])
	}
}

func TestStreamEncoderDecoder(t *testing.T) {
	var buffer bytes.Buffer
	encoder := NewEncoder(&buffer)
	for _, name := range []string{"alice", "bob"} {
		if err := encoder.Encode(lookupRequest{Action: "lookup", Username: name}); err != nil {
			t.Fatalf("Encode: %v", err)
		}
	}

	decoder := NewDecoder(&buffer)
	for _, want := range []string{"alice", "bob"} {
		var request lookupRequest
		if err := decoder.Decode(&request); err != nil {
			t.Fatalf("Decode: %v", err)
		}
		if request.Username != want {
			t.Errorf("Username = %q, want %q", request.Username, want)
		}
	}
}

func TestUnmarshalRejectsDeepNesting(t *testing.T) {
	// 40 nested one-element arrays: 0x81 repeated, then 0x00.
	data := append(bytes.Repeat([]byte{0x81}, 40), 0x00)
	var decoded any
	if err := Unmarshal(data, &decoded); err == nil {
		t.Fatal("Unmarshal accepted 40 levels of nesting")
	}
}
