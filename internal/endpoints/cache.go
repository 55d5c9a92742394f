// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

package endpoints

import (
	"errors"
	"sync/atomic"
	"time"
)

// ErrEmptyList is returned when an empty list is offered as a replacement.
var ErrEmptyList = errors.New("endpoints: empty list")

// Snapshot is one immutable generation of the endpoint list.
type Snapshot struct {
	List      List
	Source    string
	UpdatedAt time.Time
}

// Cache holds the current endpoint list. Replacement swaps a pointer to a new
// Snapshot, so readers observe either the old or the new list in full and
// never wait on writers.
type Cache struct {
	current atomic.Pointer[Snapshot]
	now     func() time.Time
}

// NewCache returns an empty cache.
func NewCache() *Cache {
	return &Cache{now: time.Now}
}

// Current returns the latest list, or nil if nothing was installed yet.
func (c *Cache) Current() List {
	if s := c.current.Load(); s != nil {
		return s.List
	}
	return nil
}

// Snapshot returns the latest snapshot. The zero Snapshot means the cache was never filled.
func (c *Cache) Snapshot() Snapshot {
	if s := c.current.Load(); s != nil {
		return *s
	}
	return Snapshot{}
}

// Replace installs list as the new current generation. Empty lists are
// rejected so that a bad refresh can never erase known-good data.
func (c *Cache) Replace(list List, source string) (Snapshot, error) {
	if len(list) == 0 {
		return Snapshot{}, ErrEmptyList
	}
	s := &Snapshot{
		List:      list.Clone(),
		Source:    source,
		UpdatedAt: c.now(),
	}
	c.current.Store(s)
	return *s, nil
}

// Restore installs a previously persisted snapshot, keeping its original
// source and timestamp. It is only applied while the cache is still empty.
func (c *Cache) Restore(s Snapshot) (bool, error) {
	if len(s.List) == 0 {
		return false, ErrEmptyList
	}
	restored := &Snapshot{List: s.List.Clone(), Source: s.Source, UpdatedAt: s.UpdatedAt}
	return c.current.CompareAndSwap(nil, restored), nil
}
