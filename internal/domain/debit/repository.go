package debit

import (
	"context"

	"github.com/google/uuid"
)

// Repository is the administrative surface of the debit authorization store. The bulk
// reads scan the whole table and are meant for tooling, not for the apply path.
type Repository interface {
	LoadAllForOwner(ctx context.Context, owner uuid.UUID) ([]*Authorization, error)
	LoadAll(ctx context.Context) (map[uuid.UUID][]*Authorization, error)
	Count(ctx context.Context) (int64, error)
	CreateSchema(ctx context.Context) error
	DropAll(ctx context.Context) error
}
