package trustline

import (
	"context"

	"github.com/google/uuid"
)

// Repository is the read side of trust line persistence used outside the apply path
type Repository interface {
	ListByAccount(ctx context.Context, accountID uuid.UUID) ([]*TrustLine, error)
}
