package account

import (
	"math"
	"testing"

	"github.com/debit-ledger/internal/domain/header"
	"github.com/debit-ledger/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewAccount(t *testing.T) {
	id := uuid.New()
	acc := NewAccount(id, 42)

	assert.Equal(t, id, acc.ID)
	assert.Equal(t, int64(42), acc.SeqNum)
	assert.Zero(t, acc.Balance)
	assert.Zero(t, acc.NumSubEntries)
	assert.True(t, acc.IsValid())
}

func TestAccount_IsValid(t *testing.T) {
	assert.False(t, (&Account{}).IsValid(), "nil id")
	assert.False(t, (&Account{ID: uuid.New(), Balance: -1}).IsValid(), "negative balance")
	assert.False(t, (&Account{ID: uuid.New(), Flags: 1 << 5}).IsValid(), "unknown flag")
	assert.True(t, (&Account{ID: uuid.New(), Flags: FlagAuthRequired}).IsValid())
}

func TestAccount_AddNumEntries(t *testing.T) {
	h := header.Header{BaseReserve: 100}

	testCases := []struct {
		name          string
		balance       int64
		subEntries    uint32
		count         int
		expectedOK    bool
		expectedCount uint32
		expectFault   bool
	}{
		{"AddWithinReserve", 300, 0, 1, true, 1, false},
		{"AddBeyondReserve", 299, 0, 1, false, 0, false},
		{"ReleaseWithEnoughBalance", 300, 1, -1, true, 0, false},
		{"ReleaseStillCheckedAgainstReserve", 100, 1, -1, false, 1, false},
		{"BelowZeroIsFault", 1000, 0, -1, false, 0, true},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			acc := &Account{ID: uuid.New(), Balance: tc.balance, NumSubEntries: tc.subEntries}
			ok, err := acc.AddNumEntries(tc.count, h)
			if tc.expectFault {
				require.Error(t, err)
				assert.True(t, shared.IsFault(err))
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tc.expectedOK, ok)
			assert.Equal(t, tc.expectedCount, acc.NumSubEntries)
		})
	}
}

func TestAccount_AddBalance(t *testing.T) {
	acc := &Account{ID: uuid.New(), Balance: 100}

	assert.True(t, acc.AddBalance(50))
	assert.Equal(t, int64(150), acc.Balance)
	assert.False(t, acc.AddBalance(-151))
	assert.Equal(t, int64(150), acc.Balance)

	acc.Balance = math.MaxInt64
	assert.False(t, acc.AddBalance(1))
}

func TestAccount_Clone(t *testing.T) {
	acc := &Account{ID: uuid.New(), Balance: 10}
	c := acc.Clone()
	c.Balance = 20
	assert.Equal(t, int64(10), acc.Balance)
}
