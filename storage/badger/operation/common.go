package operation

import (
	"errors"
	"fmt"

	"github.com/dgraph-io/badger/v2"

	"github.com/onflow/hotstuff-forensics/storage"
)

// insert writes the encoded entity under a key that must not exist yet.
// Returns storage.ErrAlreadyExists otherwise.
func insert(key []byte, entity interface{}) func(*badger.Txn) error {
	return func(tx *badger.Txn) error {
		_, err := tx.Get(key)
		if err == nil {
			return storage.ErrAlreadyExists
		}
		if !errors.Is(err, badger.ErrKeyNotFound) {
			return fmt.Errorf("could not check key: %w", err)
		}
		return upsert(key, entity)(tx)
	}
}

// upsert writes the encoded entity under the key, replacing any earlier value.
func upsert(key []byte, entity interface{}) func(*badger.Txn) error {
	return func(tx *badger.Txn) error {
		val, err := encodeEntity(entity)
		if err != nil {
			return err
		}
		err = tx.Set(key, val)
		if err != nil {
			return fmt.Errorf("could not store data: %w", err)
		}
		return nil
	}
}

// retrieve decodes the value under the key into entity.
// Returns storage.ErrNotFound if the key does not exist.
func retrieve(key []byte, entity interface{}) func(*badger.Txn) error {
	return func(tx *badger.Txn) error {
		item, err := tx.Get(key)
		if errors.Is(err, badger.ErrKeyNotFound) {
			return storage.ErrNotFound
		}
		if err != nil {
			return fmt.Errorf("could not load data: %w", err)
		}
		return decodeItem(item, entity)
	}
}

// visitFunc is called for every key of a scan, ascending. It returns false to
// end the scan early.
type visitFunc func(key []byte, item *badger.Item) (bool, error)

// scan visits the keys sharing the prefix, starting at the first key not below
// from. from must itself carry the prefix.
func scan(prefix []byte, from []byte, visit visitFunc) func(*badger.Txn) error {
	return func(tx *badger.Txn) error {
		if len(prefix) == 0 {
			return fmt.Errorf("prefix must not be empty")
		}

		opts := badger.DefaultIteratorOptions
		opts.Prefix = prefix
		it := tx.NewIterator(opts)
		defer it.Close()

		for it.Seek(from); it.ValidForPrefix(prefix); it.Next() {
			item := it.Item()
			next, err := visit(item.Key(), item)
			if err != nil {
				return fmt.Errorf("could not visit key %x: %w", item.Key(), err)
			}
			if !next {
				return nil
			}
		}
		return nil
	}
}

func decodeItem(item *badger.Item, entity interface{}) error {
	err := item.Value(func(val []byte) error {
		return decodeValue(val, entity)
	})
	if err != nil {
		return fmt.Errorf("could not decode entity: %w", err)
	}
	return nil
}
