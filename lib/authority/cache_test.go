// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package authority

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"

	"github.com/bureau-foundation/gatepass/lib/clock"
	"github.com/bureau-foundation/gatepass/lib/testutil"
)

var testEpoch = time.UnixMilli(1700000000000)

const (
	testTTL     = 10 * time.Minute
	testTimeout = 3 * time.Second
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// countingSource returns aliceRecord for every username and counts
// calls.
type countingSource struct {
	calls atomic.Int32
}

var aliceRecord = Record{
	Roles:       []string{"support"},
	Permissions: []string{"user:view", "ticket:edit"},
}

func (s *countingSource) Lookup(ctx context.Context, username string) (*Record, error) {
	s.calls.Add(1)
	record := aliceRecord
	return &record, nil
}

func newTestCache(t *testing.T, source Source) (*Cache, *clock.FakeClock, *Metrics) {
	t.Helper()
	fakeClock := clock.Fake(testEpoch)
	metrics := NewMetrics(prometheus.NewRegistry())
	cache := NewCache(Config{
		Source:  source,
		TTL:     testTTL,
		Timeout: testTimeout,
		Clock:   fakeClock,
		Logger:  testLogger(),
		Metrics: metrics,
	})
	return cache, fakeClock, metrics
}

func counterValue(t *testing.T, metrics *Metrics, result string) float64 {
	t.Helper()
	var metric dto.Metric
	if err := metrics.lookups.WithLabelValues(result).Write(&metric); err != nil {
		t.Fatalf("reading %s counter: %v", result, err)
	}
	return metric.GetCounter().GetValue()
}

// waitForCounter blocks until result's counter reaches want. Callers
// use it to hold a remote lookup open until every Get has missed.
func waitForCounter(t *testing.T, metrics *Metrics, result string, want float64) {
	t.Helper()
	deadline := time.Now().Add(5 * time.Second)
	for counterValue(t, metrics, result) < want {
		if time.Now().After(deadline) {
			t.Fatalf("%s counter = %v, want %v", result, counterValue(t, metrics, result), want)
		}
		time.Sleep(time.Millisecond)
	}
}

func TestCacheCoalescesConcurrentMisses(t *testing.T) {
	entered := make(chan struct{}, 1)
	release := make(chan struct{})
	var calls atomic.Int32
	source := SourceFunc(func(ctx context.Context, username string) (*Record, error) {
		calls.Add(1)
		select {
		case entered <- struct{}{}:
		default:
		}
		<-release
		record := aliceRecord
		return &record, nil
	})
	cache, _, metrics := newTestCache(t, source)

	const callers = 32
	results := make(chan *Authority, callers)
	errs := make(chan error, callers)
	var wg sync.WaitGroup
	for range callers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			authority, err := cache.Get(context.Background(), "alice")
			if err != nil {
				errs <- err
				return
			}
			results <- authority
		}()
	}

	testutil.RequireReceive(t, entered, 5*time.Second, "first remote lookup")
	waitForCounter(t, metrics, resultMiss, callers)
	close(release)
	wg.Wait()
	close(results)
	close(errs)

	for err := range errs {
		t.Errorf("Get: %v", err)
	}
	var first *Authority
	count := 0
	for authority := range results {
		count++
		if first == nil {
			first = authority
		}
		if authority != first {
			t.Error("callers received different snapshots")
		}
	}
	if count != callers {
		t.Errorf("got %d results, want %d", count, callers)
	}
	if got := calls.Load(); got != 1 {
		t.Errorf("remote calls = %d, want 1", got)
	}
	if got := counterValue(t, metrics, resultRemote); got != 1 {
		t.Errorf("remote counter = %v, want 1", got)
	}
}

func TestCacheFreshEntry(t *testing.T) {
	source := &countingSource{}
	cache, fakeClock, metrics := newTestCache(t, source)

	first, err := cache.Get(context.Background(), "alice")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	fakeClock.Advance(testTTL - time.Millisecond)
	second, err := cache.Get(context.Background(), "alice")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}

	if first != second {
		t.Error("fresh entry was not reused")
	}
	if got := source.calls.Load(); got != 1 {
		t.Errorf("remote calls = %d, want 1", got)
	}
	if hits := counterValue(t, metrics, resultHit); hits != 1 {
		t.Errorf("hit counter = %v, want 1", hits)
	}
	if misses := counterValue(t, metrics, resultMiss); misses != 1 {
		t.Errorf("miss counter = %v, want 1", misses)
	}
}

func TestCacheExpiredEntryRefreshesOnce(t *testing.T) {
	source := &countingSource{}
	cache, fakeClock, _ := newTestCache(t, source)

	if _, err := cache.Get(context.Background(), "alice"); err != nil {
		t.Fatalf("Get: %v", err)
	}
	fakeClock.Advance(testTTL)
	if cache.Len() != 1 {
		t.Errorf("Len after expiry = %d, want 1 until refreshed", cache.Len())
	}

	for range 3 {
		if _, err := cache.Get(context.Background(), "alice"); err != nil {
			t.Fatalf("Get after expiry: %v", err)
		}
	}
	if got := source.calls.Load(); got != 2 {
		t.Errorf("remote calls = %d, want 2", got)
	}
	if cache.Len() != 1 {
		t.Errorf("Len after refresh = %d, want 1", cache.Len())
	}
}

func TestCacheKeysAreIndependent(t *testing.T) {
	source := &countingSource{}
	cache, _, _ := newTestCache(t, source)

	for _, username := range []string{"alice", "bob", "alice", "bob"} {
		if _, err := cache.Get(context.Background(), username); err != nil {
			t.Fatalf("Get(%s): %v", username, err)
		}
	}
	if got := source.calls.Load(); got != 2 {
		t.Errorf("remote calls = %d, want 2", got)
	}
	if cache.Len() != 2 {
		t.Errorf("Len = %d, want 2", cache.Len())
	}
}

func TestCacheFailureIsNotCached(t *testing.T) {
	var calls atomic.Int32
	source := SourceFunc(func(ctx context.Context, username string) (*Record, error) {
		if calls.Add(1) == 1 {
			return nil, errors.New("directory unavailable")
		}
		record := aliceRecord
		return &record, nil
	})
	cache, _, metrics := newTestCache(t, source)

	_, err := cache.Get(context.Background(), "alice")
	if !errors.Is(err, ErrLookupFailure) {
		t.Fatalf("error = %v, want ErrLookupFailure", err)
	}
	var lookupErr *LookupError
	if !errors.As(err, &lookupErr) || lookupErr.Username != "alice" || !lookupErr.Retryable() {
		t.Errorf("error = %#v, want retryable *LookupError for alice", err)
	}
	if cache.Len() != 0 {
		t.Errorf("failed lookup populated the cache")
	}

	authority, err := cache.Get(context.Background(), "alice")
	if err != nil {
		t.Fatalf("retry: %v", err)
	}
	if !authority.HasPermission("user:view") {
		t.Error("retried record missing user:view")
	}
	if got := calls.Load(); got != 2 {
		t.Errorf("remote calls = %d, want 2", got)
	}
	if failures := counterValue(t, metrics, resultFailure); failures != 1 {
		t.Errorf("failure counter = %v, want 1", failures)
	}
}

func TestCacheNilRecordIsFailure(t *testing.T) {
	source := SourceFunc(func(ctx context.Context, username string) (*Record, error) {
		return nil, nil
	})
	cache, _, _ := newTestCache(t, source)

	_, err := cache.Get(context.Background(), "ghost")
	if !errors.Is(err, ErrLookupFailure) || !errors.Is(err, ErrNotFound) {
		t.Errorf("error = %v, want ErrLookupFailure wrapping ErrNotFound", err)
	}
	if cache.Len() != 0 {
		t.Error("nil record populated the cache")
	}
}

func TestCacheTimeoutReleasesKey(t *testing.T) {
	tests := []struct {
		name string
		// block waits for the lookup to be abandoned.
		block func(ctx context.Context, stuck <-chan struct{})
	}{
		{"source honors context", func(ctx context.Context, stuck <-chan struct{}) { <-ctx.Done() }},
		{"source ignores context", func(ctx context.Context, stuck <-chan struct{}) { <-stuck }},
	}
	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			stuck := make(chan struct{})
			defer close(stuck)
			entered := make(chan struct{}, 1)
			var calls atomic.Int32
			source := SourceFunc(func(ctx context.Context, username string) (*Record, error) {
				if calls.Add(1) == 1 {
					entered <- struct{}{}
					test.block(ctx, stuck)
					return nil, ctx.Err()
				}
				record := aliceRecord
				return &record, nil
			})
			cache, fakeClock, _ := newTestCache(t, source)

			getDone := make(chan error, 1)
			go func() {
				_, err := cache.Get(context.Background(), "alice")
				getDone <- err
			}()

			testutil.RequireReceive(t, entered, 5*time.Second, "remote lookup started")
			fakeClock.WaitForTimers(1)
			fakeClock.Advance(testTimeout)

			err := testutil.RequireReceive(t, getDone, 5*time.Second, "Get after timeout")
			if !errors.Is(err, ErrLookupFailure) || !errors.Is(err, errTimeout) {
				t.Fatalf("error = %v, want ErrLookupFailure wrapping the timeout", err)
			}

			if _, err := cache.Get(context.Background(), "alice"); err != nil {
				t.Errorf("Get after timeout released the key: %v", err)
			}
			if got := calls.Load(); got != 2 {
				t.Errorf("remote calls = %d, want 2", got)
			}
		})
	}
}

func TestCacheCallerCancelDoesNotFailOthers(t *testing.T) {
	entered := make(chan struct{}, 1)
	release := make(chan struct{})
	var calls atomic.Int32
	source := SourceFunc(func(ctx context.Context, username string) (*Record, error) {
		calls.Add(1)
		select {
		case entered <- struct{}{}:
		default:
		}
		select {
		case <-release:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
		record := aliceRecord
		return &record, nil
	})
	cache, _, metrics := newTestCache(t, source)

	impatient, cancel := context.WithCancel(context.Background())
	impatientDone := make(chan error, 1)
	go func() {
		_, err := cache.Get(impatient, "alice")
		impatientDone <- err
	}()
	testutil.RequireReceive(t, entered, 5*time.Second, "remote lookup started")

	patientDone := make(chan *Authority, 1)
	go func() {
		authority, err := cache.Get(context.Background(), "alice")
		if err != nil {
			t.Errorf("patient Get: %v", err)
		}
		patientDone <- authority
	}()
	waitForCounter(t, metrics, resultMiss, 2)

	cancel()
	err := testutil.RequireReceive(t, impatientDone, 5*time.Second, "impatient Get")
	if !errors.Is(err, context.Canceled) || !errors.Is(err, ErrLookupFailure) {
		t.Errorf("impatient error = %v, want LookupError wrapping context.Canceled", err)
	}

	close(release)
	authority := testutil.RequireReceive(t, patientDone, 5*time.Second, "patient Get")
	if authority == nil || !authority.HasPermission("ticket:edit") {
		t.Errorf("patient caller got %v", authority)
	}
	if got := calls.Load(); got != 1 {
		t.Errorf("remote calls = %d, want 1", got)
	}
}

func TestCacheEmptyUsername(t *testing.T) {
	source := &countingSource{}
	cache, _, _ := newTestCache(t, source)

	if _, err := cache.Get(context.Background(), ""); !errors.Is(err, ErrLookupFailure) {
		t.Errorf("error = %v, want ErrLookupFailure", err)
	}
	if source.calls.Load() != 0 {
		t.Error("empty username reached the source")
	}
}

func TestAuthoritySnapshot(t *testing.T) {
	authority := NewAuthority(Record{
		Roles:       []string{"b", "a", "a"},
		Permissions: []string{"user:view", "User:View", "user:*"},
	})

	want := Record{
		Roles:       []string{"a", "b"},
		Permissions: []string{"User:View", "user:*", "user:view"},
	}
	if diff := cmp.Diff(want, authority.Record()); diff != "" {
		t.Errorf("Record() mismatch (-want +got):\n%s", diff)
	}
	if !authority.HasRole("a") || authority.HasRole("c") {
		t.Error("HasRole wrong")
	}
	if authority.HasPermission("user:edit") {
		t.Error("user:* expanded into user:edit")
	}

	var nilAuthority *Authority
	if nilAuthority.HasPermission("user:view") || nilAuthority.HasRole("a") {
		t.Error("nil authority granted something")
	}
}
