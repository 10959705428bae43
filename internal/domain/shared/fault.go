package shared

import (
	"errors"
	"fmt"
)

// ErrFault marks a violated internal invariant. Faults abort the transaction being
// applied and are never translated into operation result codes.
var ErrFault = errors.New("ledger invariant violated")

// Faultf builds an error wrapping ErrFault.
func Faultf(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrFault, fmt.Sprintf(format, args...))
}

// IsFault reports whether err carries ErrFault anywhere in its chain.
func IsFault(err error) bool {
	return errors.Is(err, ErrFault)
}
