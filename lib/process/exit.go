// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package process

import (
	"errors"
	"fmt"
	"os"
)

// ExitError carries a specific exit code out of run(). The operator CLI
// uses code 2 for verification failures so scripts can tell "rejected"
// from "broken".
type ExitError struct {
	Code int
	Err  error
}

func (e *ExitError) Error() string { return e.Err.Error() }

func (e *ExitError) Unwrap() error { return e.Err }

// Fatal writes "error: err" to stderr and exits with code 1, or with the
// code of an *ExitError in err's chain.
func Fatal(err error) {
	fmt.Fprintf(os.Stderr, "error: %v\n", err)
	code := 1
	var exitErr *ExitError
	if errors.As(err, &exitErr) && exitErr.Code != 0 {
		code = exitErr.Code
	}
	os.Exit(code)
}
