// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package process holds entrypoint helpers for Gatepass binaries: the
// raw stderr path used before a structured logger exists.
package process
