package operation

import (
	"errors"

	"github.com/dgraph-io/badger/v2"
)

// RetryOnConflict re-runs the transaction until it commits without a badger.ErrConflict.
func RetryOnConflict(action func(func(*badger.Txn) error) error, op func(tx *badger.Txn) error) error {
	for {
		err := action(op)
		if errors.Is(err, badger.ErrConflict) {
			continue
		}
		return err
	}
}
