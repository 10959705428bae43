package postgres

import (
	"errors"

	"github.com/debit-ledger/internal/domain/entry"
	"github.com/debit-ledger/internal/domain/shared"
	"github.com/debit-ledger/internal/ledger/cache"
	"github.com/jackc/pgx/v5/pgconn"
)

const uniqueViolation = "23505"

// entryCache is a nil-safe view of the shared entry cache. Repositories built for the
// gateway run without one, since the processor is the only writer.
type entryCache struct {
	c *cache.EntryCache
}

func (ec entryCache) get(key entry.Key) cache.Lookup {
	if ec.c == nil {
		return cache.Lookup{State: cache.Unknown}
	}
	return ec.c.Get(key)
}

func (ec entryCache) remember(key entry.Key, e *entry.Entry) {
	if ec.c == nil {
		return
	}
	if e == nil {
		ec.c.PutAbsent(key)
		return
	}
	ec.c.Put(e)
}

func (ec entryCache) flush(key entry.Key) {
	if ec.c != nil {
		ec.c.Flush(key)
	}
}

// expectOne turns an unexpected affected-row count into a fault.
func expectOne(tag pgconn.CommandTag, op string, key entry.Key) error {
	if n := tag.RowsAffected(); n != 1 {
		return shared.Faultf("%s of %s affected %d rows", op, key, n)
	}
	return nil
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == uniqueViolation
}
