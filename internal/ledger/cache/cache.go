// Package cache is the process-local write-through cache in front of the entry stores.
// It remembers confirmed absence as well as content so repeated negative lookups stay
// off the database. It is never authoritative: stores still consult the durable layer
// before any write.
package cache

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/debit-ledger/internal/domain/entry"
	lru "github.com/hashicorp/golang-lru/v2"
)

// DefaultSize is used when a non-positive size is configured.
const DefaultSize = 4096

// State is the outcome of a cache lookup.
type State int

const (
	// Unknown means the key has not been looked up since it was last invalidated.
	Unknown State = iota
	// Absent means the durable store confirmed there is no entry.
	Absent
	// Present means Lookup.Entry holds the entry.
	Present
)

func (s State) String() string {
	switch s {
	case Absent:
		return "absent"
	case Present:
		return "present"
	default:
		return "unknown"
	}
}

// Lookup pairs a State with the cached entry when Present.
type Lookup struct {
	State State
	Entry *entry.Entry
}

type slot struct {
	entry *entry.Entry
}

// EntryCache maps entry keys to a present entry or an absence marker.
type EntryCache struct {
	slots *lru.Cache[entry.Key, slot]
}

// New builds a cache bounded to size keys.
func New(size int) (*EntryCache, error) {
	if size <= 0 {
		size = DefaultSize
	}
	slots, err := lru.New[entry.Key, slot](size)
	if err != nil {
		return nil, fmt.Errorf("failed to create entry cache: %w", err)
	}
	return &EntryCache{slots: slots}, nil
}

// Get returns a copy of the cached state of key.
func (c *EntryCache) Get(key entry.Key) Lookup {
	s, ok := c.slots.Get(key)
	if !ok {
		return Lookup{State: Unknown}
	}
	if s.entry == nil {
		return Lookup{State: Absent}
	}
	return Lookup{State: Present, Entry: s.entry.Clone()}
}

// Put caches a copy of e under its key.
func (c *EntryCache) Put(e *entry.Entry) {
	c.slots.Add(e.Key(), slot{entry: e.Clone()})
}

// PutAbsent records that key has no durable row.
func (c *EntryCache) PutAbsent(key entry.Key) {
	c.slots.Add(key, slot{})
}

// Flush forgets key so the next lookup reaches the durable store.
func (c *EntryCache) Flush(key entry.Key) {
	c.slots.Remove(key)
}

// Clear forgets every key.
func (c *EntryCache) Clear() {
	c.slots.Purge()
}

// Len is the number of cached keys, absence markers included.
func (c *EntryCache) Len() int {
	return c.slots.Len()
}

// ClearOn empties the cache each time trigger fires, until ctx is done. Rows written
// by another process (ledgerctl) are otherwise hidden behind stale markers.
func (c *EntryCache) ClearOn(ctx context.Context, trigger <-chan os.Signal, logger *slog.Logger) {
	for {
		select {
		case <-ctx.Done():
			return
		case sig := <-trigger:
			dropped := c.Len()
			c.Clear()
			logger.Info("Entry cache cleared", "signal", sig.String(), "dropped", dropped)
		}
	}
}
