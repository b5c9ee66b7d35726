// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package clock provides an injectable time source.
//
// Two parts of gatepass depend on the current time: the attestation
// verifier's replay window and the authority cache's TTL and lookup
// timeout. Both accept a Clock instead of calling the time package so
// tests can pin the exact millisecond a check runs at and fire timeouts
// without sleeping.
//
// In production:
//
//	verifier := attestation.NewVerifier(attestation.VerifierConfig{Clock: clock.Real(), ...})
//
// In tests:
//
//	fake := clock.Fake(time.UnixMilli(1700000004000))
//	fake.Advance(297 * time.Second)
//
// AfterFunc callbacks registered on a FakeClock run synchronously inside
// Advance. Use WaitForTimers to block until a goroutine has registered
// its timer before advancing past it.
package clock
