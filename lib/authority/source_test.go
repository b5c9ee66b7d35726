// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package authority

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	"github.com/bureau-foundation/gatepass/lib/service"
	"github.com/bureau-foundation/gatepass/lib/testutil"
)

const directoryYAML = `
users:
  alice:
    roles:
      - support
    permissions:
      - "user:view"
      - "ticket:edit"
  bob:
    permissions: []
`

func writeDirectory(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "directory.yaml")
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatal(err)
	}
	return path
}

func loadTestDirectory(t *testing.T) *Directory {
	t.Helper()
	directory, err := LoadDirectory(writeDirectory(t, directoryYAML))
	if err != nil {
		t.Fatalf("LoadDirectory: %v", err)
	}
	return directory
}

var wantAlice = &Record{
	Roles:       []string{"support"},
	Permissions: []string{"ticket:edit", "user:view"},
}

func TestLoadDirectory(t *testing.T) {
	directory := loadTestDirectory(t)
	if directory.Len() != 2 {
		t.Errorf("Len = %d, want 2", directory.Len())
	}

	record, err := directory.Lookup(context.Background(), "alice")
	if err != nil {
		t.Fatalf("Lookup: %v", err)
	}
	if diff := cmp.Diff(wantAlice, record); diff != "" {
		t.Errorf("alice mismatch (-want +got):\n%s", diff)
	}

	if _, err := directory.Lookup(context.Background(), "carol"); !errors.Is(err, ErrNotFound) {
		t.Errorf("unknown user error = %v, want ErrNotFound", err)
	}
}

func TestLoadDirectoryRejectsUnknownFields(t *testing.T) {
	path := writeDirectory(t, "users:\n  alice:\n    permisions:\n      - \"user:view\"\n")
	if _, err := LoadDirectory(path); err == nil {
		t.Error("misspelled field accepted")
	}
}

func TestNewDirectoryRejectsBadUsernames(t *testing.T) {
	for _, username := range []string{"", "a/b", "with space"} {
		if _, err := NewDirectory(map[string]Record{username: {}}); err == nil {
			t.Errorf("username %q accepted", username)
		}
	}
}

func startAuthorityService(t *testing.T, directory *Directory) string {
	t.Helper()
	socketPath := filepath.Join(testutil.SocketDir(t), "authority.sock")
	server := service.NewSocketServer(socketPath, testLogger())
	server.Handle(LookupAction, directory.LookupHandler())

	ctx, cancel := context.WithCancel(context.Background())
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		server.Serve(ctx)
	}()
	t.Cleanup(func() {
		cancel()
		wg.Wait()
	})
	testutil.RequireClosed(t, server.Ready(), 5*time.Second, "authority socket ready")
	return socketPath
}

func TestSocketSource(t *testing.T) {
	source := NewSocketSource(startAuthorityService(t, loadTestDirectory(t)))

	record, err := source.Lookup(context.Background(), "alice")
	if err != nil {
		t.Fatalf("Lookup: %v", err)
	}
	if diff := cmp.Diff(wantAlice, record); diff != "" {
		t.Errorf("alice mismatch (-want +got):\n%s", diff)
	}

	if _, err := source.Lookup(context.Background(), "carol"); !errors.Is(err, ErrNotFound) {
		t.Errorf("unknown user error = %v, want ErrNotFound", err)
	}
}

func TestSocketSourceThroughCache(t *testing.T) {
	source := NewSocketSource(startAuthorityService(t, loadTestDirectory(t)))
	cache, _, _ := newTestCache(t, source)

	authority, err := cache.Get(context.Background(), "alice")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if !authority.HasPermission("ticket:edit") || !authority.HasRole("support") {
		t.Errorf("authority = %+v", authority.Record())
	}
}

func TestSocketSourceUnreachable(t *testing.T) {
	source := NewSocketSource(filepath.Join(testutil.SocketDir(t), "absent.sock"))
	_, err := source.Lookup(context.Background(), "alice")
	if err == nil || errors.Is(err, ErrNotFound) {
		t.Errorf("error = %v, want a transport failure", err)
	}
}

func TestHTTPSource(t *testing.T) {
	server := httptest.NewServer(loadTestDirectory(t).HTTPHandler())
	defer server.Close()

	source, err := NewHTTPSource(server.URL+"/", server.Client())
	if err != nil {
		t.Fatalf("NewHTTPSource: %v", err)
	}

	record, err := source.Lookup(context.Background(), "alice")
	if err != nil {
		t.Fatalf("Lookup: %v", err)
	}
	if diff := cmp.Diff(wantAlice, record); diff != "" {
		t.Errorf("alice mismatch (-want +got):\n%s", diff)
	}

	if _, err := source.Lookup(context.Background(), "carol"); !errors.Is(err, ErrNotFound) {
		t.Errorf("unknown user error = %v, want ErrNotFound", err)
	}
}

func TestHTTPSourceServerError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(writer http.ResponseWriter, request *http.Request) {
		http.Error(writer, "overloaded", http.StatusServiceUnavailable)
	}))
	defer server.Close()

	source, err := NewHTTPSource(server.URL, server.Client())
	if err != nil {
		t.Fatalf("NewHTTPSource: %v", err)
	}
	_, err = source.Lookup(context.Background(), "alice")
	if err == nil || errors.Is(err, ErrNotFound) || !strings.Contains(err.Error(), "503") {
		t.Errorf("error = %v, want unexpected status 503", err)
	}
}

func TestHTTPSourceEscapesUsername(t *testing.T) {
	var gotPath string
	server := httptest.NewServer(http.HandlerFunc(func(writer http.ResponseWriter, request *http.Request) {
		gotPath = request.URL.EscapedPath()
		writer.Write([]byte(`{"roles":[],"permissions":[]}`))
	}))
	defer server.Close()

	source, err := NewHTTPSource(server.URL, server.Client())
	if err != nil {
		t.Fatal(err)
	}
	if _, err := source.Lookup(context.Background(), "a/../admin"); err != nil {
		t.Fatalf("Lookup: %v", err)
	}
	if gotPath != "/authorities/a%2F..%2Fadmin" {
		t.Errorf("request path = %q", gotPath)
	}
}

func TestNewHTTPSourceRejectsScheme(t *testing.T) {
	if _, err := NewHTTPSource("unix:///run/authority.sock", nil); err == nil {
		t.Error("unix scheme accepted")
	}
}
