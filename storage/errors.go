package storage

import (
	"errors"
)

// Sentinel errors of the forensic stores. The badger implementations translate
// badger.ErrKeyNotFound and existing keys into these, so callers never depend
// on the database API.
var (
	ErrNotFound      = errors.New("key not found")
	ErrAlreadyExists = errors.New("key already exists")
)
