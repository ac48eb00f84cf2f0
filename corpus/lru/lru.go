// Copyright (C) 2022 Sneller, Inc.
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
//
// This program is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
// GNU Affero General Public License for more details.
//
// You should have received a copy of the GNU Affero General Public License
// along with this program.  If not, see <http://www.gnu.org/licenses/>.

// Package lru implements the bounded-population, doubly-linked-list LRU
// cache of open per-variable RecordWriters. Eviction closes the evicted
// writer's handles through the transaction supplied to Get, so a writer
// can be safely evicted mid-submission: the evicted writer's closure lands
// in the same transaction as the data that submission is still writing.
package lru

import (
	"fmt"

	"github.com/SnellerInc/hepcorpus/corpus/txn"
)

// Closer is the capability every cached value must provide: releasing its
// resources by scheduling them into t.
type Closer interface {
	Close(t *txn.Txn) error
}

// DefaultCapacity is the default bound on the number of simultaneously
// open writers.
const DefaultCapacity = 100

type node[V Closer] struct {
	key        string
	value      V
	prev, next *node[V]
}

// Cache is a fixed-capacity, key-to-value cache with least-recently-used
// eviction. The zero value is not usable; construct with New.
type Cache[V Closer] struct {
	capacity int
	factory  func(key string) (V, error)
	byKey    map[string]*node[V]
	head     *node[V] // most recently used
	tail     *node[V] // least recently used
}

// New creates a cache of the given capacity that constructs missing
// entries by calling factory.
func New[V Closer](capacity int, factory func(key string) (V, error)) *Cache[V] {
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	return &Cache[V]{
		capacity: capacity,
		factory:  factory,
		byKey:    make(map[string]*node[V]),
	}
}

// Len returns the number of entries currently cached.
func (c *Cache[V]) Len() int {
	return len(c.byKey)
}

// Keys returns the cached keys ordered from most- to least-recently-used.
// It is intended for tests and diagnostics.
func (c *Cache[V]) Keys() []string {
	out := make([]string, 0, len(c.byKey))
	for n := c.head; n != nil; n = n.next {
		out = append(out, n.key)
	}
	return out
}

// Get returns the cached value for key, promoting it to most-recently-used.
// If key is absent and the cache is at capacity, the least-recently-used
// entry is evicted first: its Close is called with t before the new entry
// is constructed via the cache's factory.
func (c *Cache[V]) Get(key string, t *txn.Txn) (V, error) {
	if n, ok := c.byKey[key]; ok {
		c.promote(n)
		return n.value, nil
	}
	if len(c.byKey) >= c.capacity {
		if err := c.evictTail(t); err != nil {
			var zero V
			return zero, err
		}
	}
	value, err := c.factory(key)
	if err != nil {
		var zero V
		return zero, fmt.Errorf("lru: constructing entry for %q: %w", key, err)
	}
	n := &node[V]{key: key, value: value}
	c.pushHead(n)
	c.byKey[key] = n
	return value, nil
}

func (c *Cache[V]) unlink(n *node[V]) {
	if n == c.head {
		c.head = n.next
	}
	if n == c.tail {
		c.tail = n.prev
	}
	if n.prev != nil {
		n.prev.next = n.next
	}
	if n.next != nil {
		n.next.prev = n.prev
	}
	n.prev = nil
	n.next = nil
}

func (c *Cache[V]) pushHead(n *node[V]) {
	n.next = c.head
	if c.head != nil {
		c.head.prev = n
	}
	c.head = n
	if c.tail == nil {
		c.tail = n
	}
}

func (c *Cache[V]) promote(n *node[V]) {
	if n == c.head {
		return
	}
	c.unlink(n)
	c.pushHead(n)
}

func (c *Cache[V]) evictTail(t *txn.Txn) error {
	victim := c.tail
	if victim == nil {
		return nil
	}
	if err := victim.value.Close(t); err != nil {
		return fmt.Errorf("lru: evicting %q: %w", victim.key, err)
	}
	delete(c.byKey, victim.key)
	c.unlink(victim)
	return nil
}

// CloseAll evicts and closes every entry currently in the cache, in
// least-recently-used order, scheduling all closures into t.
func (c *Cache[V]) CloseAll(t *txn.Txn) error {
	for c.tail != nil {
		if err := c.evictTail(t); err != nil {
			return err
		}
	}
	return nil
}
