// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package authority

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/bureau-foundation/gatepass/lib/clock"
)

// Defaults applied by NewCache to zero Config fields.
const (
	DefaultTTL     = 10 * time.Minute
	DefaultTimeout = 3 * time.Second
)

// Config configures a Cache.
type Config struct {
	// Source answers cache misses. Required.
	Source Source

	// TTL is how long a record is served without asking the source.
	TTL time.Duration

	// Timeout bounds each remote lookup.
	Timeout time.Duration

	// Clock drives TTL expiry and the lookup timeout. Required.
	Clock clock.Clock

	// Logger is the structured logger. Required.
	Logger *slog.Logger

	// Metrics is optional.
	Metrics *Metrics
}

// Cache maps usernames to authority snapshots. Safe for concurrent use.
type Cache struct {
	source  Source
	ttl     time.Duration
	timeout time.Duration
	clock   clock.Clock
	logger  *slog.Logger
	metrics *Metrics

	// mu guards entries only. It is never held across a remote call.
	mu      sync.RWMutex
	entries map[string]entry

	group singleflight.Group
}

type entry struct {
	authority *Authority
	expiresAt time.Time
}

// NewCache creates an empty cache.
func NewCache(config Config) *Cache {
	if config.Source == nil {
		panic("authority.NewCache: Source is required")
	}
	if config.Clock == nil {
		panic("authority.NewCache: Clock is required")
	}
	if config.Logger == nil {
		panic("authority.NewCache: Logger is required")
	}
	ttl := config.TTL
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	timeout := config.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &Cache{
		source:  config.Source,
		ttl:     ttl,
		timeout: timeout,
		clock:   config.Clock,
		logger:  config.Logger,
		metrics: config.Metrics,
		entries: make(map[string]entry),
	}
}

// Get returns username's authority, from memory if fresh and from the
// source otherwise. Concurrent Gets for one username share a single
// remote lookup. If ctx ends first, Get returns a *LookupError wrapping
// ctx's error while the shared lookup continues for other callers.
func (c *Cache) Get(ctx context.Context, username string) (*Authority, error) {
	if username == "" {
		return nil, &LookupError{Username: username, Err: errors.New("empty username")}
	}

	if authority, ok := c.fresh(username); ok {
		c.metrics.observe(resultHit)
		return authority, nil
	}
	c.metrics.observe(resultMiss)

	results := c.group.DoChan(username, func() (any, error) {
		return c.load(username)
	})

	select {
	case result := <-results:
		if result.Err != nil {
			return nil, result.Err
		}
		return result.Val.(*Authority), nil
	case <-ctx.Done():
		return nil, &LookupError{Username: username, Err: ctx.Err()}
	}
}

// Len returns the number of entries held, fresh or expired.
func (c *Cache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}

// fresh returns username's entry if it has not expired.
func (c *Cache) fresh(username string) (*Authority, bool) {
	now := c.clock.Now()
	c.mu.RLock()
	cached, ok := c.entries[username]
	c.mu.RUnlock()
	if !ok || !now.Before(cached.expiresAt) {
		return nil, false
	}
	return cached.authority, true
}

type sourceResult struct {
	record *Record
	err    error
}

// load runs inside the singleflight group. A caller that missed the
// cache may arrive after the previous flight stored its result, so the
// entry is checked again before going remote.
func (c *Cache) load(username string) (*Authority, error) {
	if authority, ok := c.fresh(username); ok {
		return authority, nil
	}

	ctx, cancel := context.WithCancelCause(context.Background())
	defer cancel(nil)
	timer := c.clock.AfterFunc(c.timeout, func() { cancel(errTimeout) })
	defer timer.Stop()

	c.metrics.observe(resultRemote)
	done := make(chan sourceResult, 1)
	go func() {
		record, err := c.source.Lookup(ctx, username)
		done <- sourceResult{record: record, err: err}
	}()

	var result sourceResult
	select {
	case result = <-done:
	case <-ctx.Done():
		result.err = context.Cause(ctx)
	}

	if result.err == nil && result.record == nil {
		result.err = ErrNotFound
	}
	if result.err != nil {
		c.metrics.observe(resultFailure)
		c.logger.Warn("authority lookup failed",
			"username", username,
			"error", result.err,
		)
		return nil, &LookupError{Username: username, Err: result.err}
	}

	authority := NewAuthority(*result.record)
	c.mu.Lock()
	c.entries[username] = entry{
		authority: authority,
		expiresAt: c.clock.Now().Add(c.ttl),
	}
	count := len(c.entries)
	c.mu.Unlock()
	c.metrics.setEntries(count)

	c.logger.Debug("authority record cached",
		"username", username,
		"roles", len(authority.roles),
		"permissions", len(authority.permissions),
	)
	return authority, nil
}
