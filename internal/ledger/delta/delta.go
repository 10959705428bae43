// Package delta implements the change set: the ordered record of entries added, updated
// and deleted while one transaction is applied. A change set is committed or rolled back
// as a unit together with the database transaction that carries the durable writes.
package delta

import (
	"context"
	"fmt"
	"slices"

	"github.com/debit-ledger/internal/domain/entry"
	"github.com/debit-ledger/internal/domain/header"
	"github.com/debit-ledger/internal/domain/shared"
)

// ErrClosed is returned for any use of a change set after Commit or Rollback.
var ErrClosed = fmt.Errorf("%w: change set already closed", shared.ErrFault)

// Action is the terminal action recorded for a key.
type Action int

const (
	ActionAdd Action = iota + 1
	ActionUpdate
	ActionDelete
)

func (a Action) String() string {
	switch a {
	case ActionAdd:
		return "add"
	case ActionUpdate:
		return "update"
	case ActionDelete:
		return "delete"
	default:
		return fmt.Sprintf("action(%d)", int(a))
	}
}

// Change is the net effect on one key. Entry is nil for deletions.
type Change struct {
	Key    entry.Key
	Action Action
	Entry  *entry.Entry
}

// Cache is the part of the entry cache a change set refreshes or invalidates.
type Cache interface {
	Put(e *entry.Entry)
	PutAbsent(key entry.Key)
	Flush(key entry.Key)
}

// Committer commits the durable side; pgx.Tx satisfies it.
type Committer interface {
	Commit(ctx context.Context) error
}

// Rollbacker discards the durable side; pgx.Tx satisfies it.
type Rollbacker interface {
	Rollback(ctx context.Context) error
}

// Delta records the changes of one transaction. It is not safe for concurrent use.
type Delta struct {
	header  header.Header
	cache   Cache
	order   []entry.Key
	changes map[entry.Key]*Change
	working map[entry.Key]*entry.Entry
	closed  bool
}

// New opens a change set against the ledger described by h. c may be nil.
func New(h header.Header, c Cache) *Delta {
	return &Delta{
		header:  h,
		cache:   c,
		changes: make(map[entry.Key]*Change),
		working: make(map[entry.Key]*entry.Entry),
	}
}

// Header is the header of the ledger being applied.
func (d *Delta) Header() header.Header {
	return d.header
}

// RecordEntry adds a loaded entry to the working set. The first recorded state of a key
// is kept as the state the transaction started from.
func (d *Delta) RecordEntry(e *entry.Entry) error {
	if d.closed {
		return ErrClosed
	}
	key := e.Key()
	if _, ok := d.working[key]; ok {
		return nil
	}
	if _, changed := d.changes[key]; changed {
		return nil
	}
	d.working[key] = e.Clone()
	return nil
}

// Previous returns the state key had when it first entered the working set.
func (d *Delta) Previous(key entry.Key) (*entry.Entry, bool) {
	e, ok := d.working[key]
	if !ok {
		return nil, false
	}
	return e.Clone(), true
}

// AddEntry records the creation of e. Adding over a deletion in the same change set
// becomes an update.
func (d *Delta) AddEntry(e *entry.Entry) error {
	if d.closed {
		return ErrClosed
	}
	key := e.Key()
	existing, ok := d.changes[key]
	if !ok {
		d.append(&Change{Key: key, Action: ActionAdd, Entry: e.Clone()})
		return nil
	}
	if existing.Action != ActionDelete {
		return shared.Faultf("add of %s already recorded as %s", key, existing.Action)
	}
	existing.Action = ActionUpdate
	existing.Entry = e.Clone()
	return nil
}

// ModEntry records an update of e. Updating an entry added in the same change set keeps
// it an add with the new payload.
func (d *Delta) ModEntry(e *entry.Entry) error {
	if d.closed {
		return ErrClosed
	}
	key := e.Key()
	existing, ok := d.changes[key]
	if !ok {
		d.append(&Change{Key: key, Action: ActionUpdate, Entry: e.Clone()})
		return nil
	}
	if existing.Action == ActionDelete {
		return shared.Faultf("update of deleted entry %s", key)
	}
	existing.Entry = e.Clone()
	return nil
}

// DeleteEntry records the deletion of key. Deleting an entry added in the same change set
// erases it from the log.
func (d *Delta) DeleteEntry(key entry.Key) error {
	if d.closed {
		return ErrClosed
	}
	existing, ok := d.changes[key]
	if !ok {
		d.append(&Change{Key: key, Action: ActionDelete})
		return nil
	}
	switch existing.Action {
	case ActionAdd:
		delete(d.changes, key)
		d.order = slices.DeleteFunc(d.order, func(k entry.Key) bool { return k == key })
	case ActionUpdate:
		existing.Action = ActionDelete
		existing.Entry = nil
	default:
		return shared.Faultf("delete of %s already recorded", key)
	}
	return nil
}

func (d *Delta) append(c *Change) {
	d.changes[c.Key] = c
	d.order = append(d.order, c.Key)
}

// Changes returns the net changes in the order keys were first touched.
func (d *Delta) Changes() []Change {
	out := make([]Change, 0, len(d.order))
	for _, key := range d.order {
		c := d.changes[key]
		cp := Change{Key: c.Key, Action: c.Action}
		if c.Entry != nil {
			cp.Entry = c.Entry.Clone()
		}
		out = append(out, cp)
	}
	return out
}

// Len is the number of keys with a net change.
func (d *Delta) Len() int {
	return len(d.order)
}

// Closed reports whether Commit or Rollback has run.
func (d *Delta) Closed() bool {
	return d.closed
}

// Commit commits the durable transaction and then refreshes the cache with the final
// state of every changed key. If the durable commit fails the touched keys are flushed
// instead, since the database state is unknown to us.
func (d *Delta) Commit(ctx context.Context, c Committer) error {
	if d.closed {
		return ErrClosed
	}
	d.closed = true

	if c != nil {
		if err := c.Commit(ctx); err != nil {
			d.flushTouched()
			return fmt.Errorf("failed to commit change set: %w", err)
		}
	}

	if d.cache == nil {
		return nil
	}
	for _, key := range d.order {
		change := d.changes[key]
		if change.Action == ActionDelete {
			d.cache.PutAbsent(key)
			continue
		}
		d.cache.Put(change.Entry)
	}
	return nil
}

// Rollback discards the durable transaction and flushes every touched key.
func (d *Delta) Rollback(ctx context.Context, r Rollbacker) error {
	if d.closed {
		return ErrClosed
	}
	d.closed = true
	d.flushTouched()

	if r != nil {
		if err := r.Rollback(ctx); err != nil {
			return fmt.Errorf("failed to roll back change set: %w", err)
		}
	}
	return nil
}

func (d *Delta) flushTouched() {
	if d.cache == nil {
		return
	}
	for key := range d.changes {
		d.cache.Flush(key)
	}
}
