// Copyright 2026 The Genesis Authors
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package discovery maintains the live caches of Agent, Function and
// Presence records advertised on the capability topics, firing
// Added/Updated/Removed callbacks as the transport delivers TransientLocal
// samples and liveliness leases expire.
package discovery

import (
	"context"
	"encoding/json"
	"log/slog"
	"sync"
	"time"

	"github.com/cespare/xxhash/v2"

	"github.com/genesis-run/genesis/pkg/capability"
	"github.com/genesis-run/genesis/pkg/transport"
)

// Record is any capability cache entry: it has a stable key. The cache
// hashes each sample's raw payload itself to dedup redundant re-publication
// of an unchanged record.
type Record interface {
	Key() string
}

// Event is what a cache delivers to its subscribers on every change.
type Event[T Record] struct {
	Kind EventKind
	Item T
}

// EventKind discriminates the three cache transitions.
type EventKind int

const (
	Added EventKind = iota
	Updated
	Removed
)

// Cache is a generic, single-writer live view of one capability topic.
// It mirrors the teacher's BaseRegistry shape (one mutex, Get/List/Count)
// but adds liveliness expiry and change notification, which a capability
// cache needs and a passive lookup registry does not.
type Cache[T Record] struct {
	mu       sync.RWMutex
	items    map[string]T
	hashes   map[string]uint64
	expiry   map[string]time.Time
	lease    time.Duration
	log      *slog.Logger
	watchers []chan Event[T]
}

// NewCache builds an empty cache with the given liveliness lease. A zero
// lease disables expiry (used for Volatile/manual-removal topics).
func NewCache[T Record](lease time.Duration, log *slog.Logger) *Cache[T] {
	if log == nil {
		log = slog.Default()
	}
	return &Cache[T]{
		items:  make(map[string]T),
		hashes: make(map[string]uint64),
		expiry: make(map[string]time.Time),
		lease:  lease,
		log:    log,
	}
}

// Watch registers a channel that receives every Added/Updated/Removed event.
// The channel is buffered (64 events); when it is full, further events for
// that watcher are dropped with a warning, so a slow consumer never blocks
// the cache writer.
func (c *Cache[T]) Watch() <-chan Event[T] {
	c.mu.Lock()
	defer c.mu.Unlock()
	ch := make(chan Event[T], 64)
	c.watchers = append(c.watchers, ch)
	return ch
}

func (c *Cache[T]) notify(ev Event[T]) {
	for _, ch := range c.watchers {
		select {
		case ch <- ev:
		default:
			c.log.Warn("discovery watcher channel full, dropping event", "key", ev.Item.Key())
		}
	}
}

// Upsert applies one received sample to the cache, deduping identical
// content by hash and firing Added or Updated as appropriate.
func (c *Cache[T]) Upsert(item T, raw []byte) {
	key := item.Key()
	h := xxhash.Sum64(raw)

	c.mu.Lock()
	prevHash, existed := c.hashes[key]
	if existed && prevHash == h {
		if c.lease > 0 {
			c.expiry[key] = time.Now().Add(c.lease)
		}
		c.mu.Unlock()
		return
	}
	c.items[key] = item
	c.hashes[key] = h
	if c.lease > 0 {
		c.expiry[key] = time.Now().Add(c.lease)
	}
	c.mu.Unlock()

	kind := Added
	if existed {
		kind = Updated
	}
	c.notify(Event[T]{Kind: kind, Item: item})
}

// Remove deletes a record explicitly (a participant departed cleanly).
func (c *Cache[T]) Remove(key string) {
	c.mu.Lock()
	item, ok := c.items[key]
	if ok {
		delete(c.items, key)
		delete(c.hashes, key)
		delete(c.expiry, key)
	}
	c.mu.Unlock()
	if ok {
		c.notify(Event[T]{Kind: Removed, Item: item})
	}
}

// Get returns the current record for key, if present.
func (c *Cache[T]) Get(key string) (T, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	v, ok := c.items[key]
	return v, ok
}

// List returns a snapshot of every current record.
func (c *Cache[T]) List() []T {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make([]T, 0, len(c.items))
	for _, v := range c.items {
		out = append(out, v)
	}
	return out
}

// Count returns the number of current records.
func (c *Cache[T]) Count() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.items)
}

// sweepExpired removes every record whose lease has lapsed, firing Removed
// for each (the ManualByTopic liveliness contract: absence of reassertion
// within the lease window is equivalent to an explicit departure).
func (c *Cache[T]) sweepExpired(now time.Time) []T {
	c.mu.Lock()
	var gone []T
	for key, exp := range c.expiry {
		if now.After(exp) {
			gone = append(gone, c.items[key])
			delete(c.items, key)
			delete(c.hashes, key)
			delete(c.expiry, key)
		}
	}
	c.mu.Unlock()
	for _, item := range gone {
		c.notify(Event[T]{Kind: Removed, Item: item})
	}
	return gone
}

// Run drains r and applies each sample to the cache until ctx is canceled.
// When the cache has a nonzero lease, Run also periodically sweeps expired
// records. decode unmarshals a sample's payload into T.
func Run[T Record](ctx context.Context, c *Cache[T], r *transport.Reader, decode func([]byte) (T, error)) {
	var ticker *time.Ticker
	var tickCh <-chan time.Time
	if c.lease > 0 {
		ticker = time.NewTicker(c.lease / 3)
		defer ticker.Stop()
		tickCh = ticker.C
	}

	for {
		select {
		case <-ctx.Done():
			return
		case sample, ok := <-r.Samples():
			if !ok {
				return
			}
			item, err := decode(sample.Payload)
			if err != nil {
				c.log.Warn("discovery: dropping undecodable sample", "key", sample.Key, "error", err)
				sample.Nak()
				continue
			}
			c.Upsert(item, sample.Payload)
			sample.Ack()
		case t := <-tickCh:
			c.sweepExpired(t)
		}
	}
}

// DecodeJSON is the default decode function for JSON-encoded capability
// records.
func DecodeJSON[T Record](data []byte) (T, error) {
	var v T
	err := json.Unmarshal(data, &v)
	return v, err
}

var (
	_ Record = capability.Agent{}
	_ Record = capability.Function{}
	_ Record = capability.Presence{}
)
