// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package authority

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/bureau-foundation/gatepass/lib/codec"
	"github.com/bureau-foundation/gatepass/lib/service"
)

// Directory is a static authority directory loaded from YAML:
//
//	users:
//	  alice:
//	    roles:
//	      - admin
//	    permissions:
//	      - "user:view"
//	      - "user:edit"
//
// It backs the reference authority service, serving both the socket
// "lookup" action and the HTTP endpoint. It also implements Source for
// in-process use. Immutable after load.
type Directory struct {
	users map[string]Record
}

type directoryFile struct {
	Users map[string]Record `yaml:"users"`
}

// LoadDirectory reads a YAML directory file. Unknown keys are errors so
// a misspelled "permissions" cannot silently grant nothing.
func LoadDirectory(path string) (*Directory, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening authority directory: %w", err)
	}
	defer file.Close()

	decoder := yaml.NewDecoder(file)
	decoder.KnownFields(true)
	var parsed directoryFile
	if err := decoder.Decode(&parsed); err != nil {
		return nil, fmt.Errorf("parsing authority directory %s: %w", path, err)
	}
	return NewDirectory(parsed.Users)
}

// NewDirectory builds a Directory from records keyed by username.
func NewDirectory(users map[string]Record) (*Directory, error) {
	directory := &Directory{users: make(map[string]Record, len(users))}
	for username, record := range users {
		if username == "" || strings.ContainsAny(username, "/ \t\n") {
			return nil, fmt.Errorf("authority directory: invalid username %q", username)
		}
		directory.users[username] = NewAuthority(record).Record()
	}
	return directory, nil
}

// Len returns the number of users.
func (d *Directory) Len() int { return len(d.users) }

// Lookup implements Source.
func (d *Directory) Lookup(ctx context.Context, username string) (*Record, error) {
	record, ok := d.users[username]
	if !ok {
		return nil, fmt.Errorf("%w for %q", ErrNotFound, username)
	}
	return &record, nil
}

// LookupHandler serves LookupAction on a service.SocketServer.
func (d *Directory) LookupHandler() service.ActionFunc {
	return func(ctx context.Context, raw []byte) (any, error) {
		var request struct {
			Username string `cbor:"username"`
		}
		if err := codec.Unmarshal(raw, &request); err != nil {
			return nil, fmt.Errorf("invalid lookup request: %w", err)
		}
		if request.Username == "" {
			return nil, errors.New("missing required field: username")
		}
		record, err := d.Lookup(ctx, request.Username)
		if err != nil {
			return nil, errors.New(NotFoundMessage)
		}
		return record, nil
	}
}

// HTTPHandler serves GET /authorities/{username} with the JSON Record.
func (d *Directory) HTTPHandler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /authorities/{username}", func(writer http.ResponseWriter, request *http.Request) {
		record, err := d.Lookup(request.Context(), request.PathValue("username"))
		if err != nil {
			http.Error(writer, NotFoundMessage, http.StatusNotFound)
			return
		}
		writer.Header().Set("Content-Type", "application/json")
		json.NewEncoder(writer).Encode(record)
	})
	return mux
}
