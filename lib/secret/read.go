// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package secret

import (
	"fmt"
	"os"
)

// maxFileSize bounds key files. A 4096-bit RSA key in PEM is ~3.3 KiB.
const maxFileSize = 64 * 1024

// ReadFile reads a key file into a Buffer. The intermediate heap copy
// is zeroed before returning.
func ReadFile(path string) (*Buffer, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("secret: %w", err)
	}
	if info.Size() > maxFileSize {
		return nil, fmt.Errorf("secret: %s is %d bytes, limit is %d", path, info.Size(), maxFileSize)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("secret: %w", err)
	}
	if len(data) == 0 {
		return nil, fmt.Errorf("secret: %s is empty", path)
	}
	return NewFromBytes(data)
}
