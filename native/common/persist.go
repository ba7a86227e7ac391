package common

import (
	"errors"
	"fmt"
)

// ErrPersistence marks a durability failure that happened after an operation
// passed validation. The outcome is indeterminate: callers must re-query state
// instead of retrying the mutating call, since no core operation is replay-safe
// without an idempotency key.
var ErrPersistence = errors.New("state persistence failed")

// WrapPersist tags a storage error so callers can separate it from validation
// failures with errors.Is(err, ErrPersistence). A nil error passes through.
func WrapPersist(err error) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%w: %v", ErrPersistence, err)
}
