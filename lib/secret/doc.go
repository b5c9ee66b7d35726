// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package secret holds key material outside the Go heap.
//
// The gateway's signing key is the one secret whose disclosure breaks
// every service's trust in forwarded identity. Buffer keeps it in an
// anonymous mmap region that is locked against swap (mlock), excluded
// from core dumps (MADV_DONTDUMP), invisible to the garbage collector,
// and zeroed on Close.
//
// Depends on golang.org/x/sys/unix.
package secret
