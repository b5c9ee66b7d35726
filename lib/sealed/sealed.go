// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package sealed

import (
	"bufio"
	"bytes"
	"fmt"
	"io"
	"strings"

	"filippo.io/age"
	"filippo.io/age/armor"

	"github.com/bureau-foundation/gatepass/lib/secret"
)

// binaryHeader is the first line of an unarmored age file.
const binaryHeader = "age-encryption.org/v1"

// Identity is an age X25519 identity used to open sealed key files.
// The caller must Close it.
type Identity struct {
	// Private is the AGE-SECRET-KEY-1... string in locked memory.
	Private *secret.Buffer

	// Recipient is the age1... public recipient. Safe to publish.
	Recipient string
}

// Close releases the private identity.
func (i *Identity) Close() error {
	if i.Private != nil {
		return i.Private.Close()
	}
	return nil
}

// GenerateIdentity creates a new age X25519 identity.
func GenerateIdentity() (*Identity, error) {
	identity, err := age.GenerateX25519Identity()
	if err != nil {
		return nil, fmt.Errorf("sealed: generating identity: %w", err)
	}
	private, err := secret.NewFromBytes([]byte(identity.String()))
	if err != nil {
		return nil, fmt.Errorf("sealed: protecting identity: %w", err)
	}
	return &Identity{
		Private:   private,
		Recipient: identity.Recipient().String(),
	}, nil
}

// IsSealed reports whether data looks like an age file, armored or not.
func IsSealed(data []byte) bool {
	trimmed := bytes.TrimLeft(data, " \t\r\n")
	return bytes.HasPrefix(trimmed, []byte(armor.Header)) ||
		bytes.HasPrefix(trimmed, []byte(binaryHeader))
}

// Seal encrypts plaintext to the given age1... recipients and returns an
// ASCII-armored age file.
func Seal(plaintext []byte, recipientKeys []string) ([]byte, error) {
	if len(recipientKeys) == 0 {
		return nil, fmt.Errorf("sealed: at least one recipient is required")
	}

	recipients := make([]age.Recipient, 0, len(recipientKeys))
	for _, key := range recipientKeys {
		recipient, err := age.ParseX25519Recipient(strings.TrimSpace(key))
		if err != nil {
			return nil, fmt.Errorf("sealed: parsing recipient %q: %w", key, err)
		}
		recipients = append(recipients, recipient)
	}

	var output bytes.Buffer
	armored := armor.NewWriter(&output)
	writer, err := age.Encrypt(armored, recipients...)
	if err != nil {
		return nil, fmt.Errorf("sealed: creating encryptor: %w", err)
	}
	if _, err := writer.Write(plaintext); err != nil {
		return nil, fmt.Errorf("sealed: writing plaintext: %w", err)
	}
	if err := writer.Close(); err != nil {
		return nil, fmt.Errorf("sealed: finalizing encryption: %w", err)
	}
	if err := armored.Close(); err != nil {
		return nil, fmt.Errorf("sealed: finalizing armor: %w", err)
	}
	return output.Bytes(), nil
}

// Open decrypts a sealed file (armored or binary) with the identities
// in identityFile, which uses the age identity file format (one
// AGE-SECRET-KEY-1... per line, # comments allowed). The identity
// buffer is borrowed, not closed.
func Open(sealedData []byte, identityFile *secret.Buffer) (*secret.Buffer, error) {
	identities, err := age.ParseIdentities(bytes.NewReader(identityFile.Bytes()))
	if err != nil {
		return nil, fmt.Errorf("sealed: parsing identity file: %w", err)
	}

	var source io.Reader = bytes.NewReader(sealedData)
	if bytes.HasPrefix(bytes.TrimLeft(sealedData, " \t\r\n"), []byte(armor.Header)) {
		source = armor.NewReader(bufio.NewReader(source))
	}

	reader, err := age.Decrypt(source, identities...)
	if err != nil {
		return nil, fmt.Errorf("sealed: decrypting: %w", err)
	}
	plaintext, err := io.ReadAll(reader)
	if err != nil {
		return nil, fmt.Errorf("sealed: reading plaintext: %w", err)
	}
	if len(plaintext) == 0 {
		return nil, fmt.Errorf("sealed: decrypted file is empty")
	}

	buffer, err := secret.NewFromBytes(plaintext)
	if err != nil {
		clear(plaintext)
		return nil, fmt.Errorf("sealed: protecting plaintext: %w", err)
	}
	return buffer, nil
}
