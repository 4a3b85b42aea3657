package badger

import (
	"fmt"

	lru "github.com/hashicorp/golang-lru/v2"
)

func withLimit[K comparable, V any](limit uint) func(*Cache[K, V]) {
	return func(c *Cache[K, V]) {
		c.limit = limit
	}
}

type storeFunc[K comparable, V any] func(K, V) error

func withStore[K comparable, V any](store storeFunc[K, V]) func(*Cache[K, V]) {
	return func(c *Cache[K, V]) {
		c.store = store
	}
}

func noStore[K comparable, V any](K, V) error {
	return fmt.Errorf("no store function for cache put available")
}

type retrieveFunc[K comparable, V any] func(K) (V, error)

func withRetrieve[K comparable, V any](retrieve retrieveFunc[K, V]) func(*Cache[K, V]) {
	return func(c *Cache[K, V]) {
		c.retrieve = retrieve
	}
}

func noRetrieve[K comparable, V any](K) (V, error) {
	var nothing V
	return nothing, fmt.Errorf("no retrieve function for cache get available")
}

// Cache is a read-through and write-through LRU cache in front of the database.
type Cache[K comparable, V any] struct {
	limit    uint
	store    storeFunc[K, V]
	retrieve retrieveFunc[K, V]
	cache    *lru.Cache[K, V]
}

func newCache[K comparable, V any](options ...func(*Cache[K, V])) *Cache[K, V] {
	c := Cache[K, V]{
		limit:    1000,
		store:    noStore[K, V],
		retrieve: noRetrieve[K, V],
	}
	for _, option := range options {
		option(&c)
	}
	c.cache, _ = lru.New[K, V](int(c.limit))
	return &c
}

// Get will try to retrieve the resource from cache first, and then from the
// injected retrieve function.
func (c *Cache[K, V]) Get(key K) (V, error) {

	// check if we have it in the cache
	resource, cached := c.cache.Get(key)
	if cached {
		return resource, nil
	}

	// get it from the database
	resource, err := c.retrieve(key)
	if err != nil {
		var nothing V
		return nothing, fmt.Errorf("could not retrieve resource: %w", err)
	}

	// cache the resource and eject least recently used one if we reached limit
	c.cache.Add(key, resource)

	return resource, nil
}

// Put will add a resource to the cache with the given key.
func (c *Cache[K, V]) Put(key K, resource V) error {

	// try to store the resource
	err := c.store(key, resource)
	if err != nil {
		return fmt.Errorf("could not store resource: %w", err)
	}

	// cache the resource and eject least recently used one if we reached limit
	c.cache.Add(key, resource)

	return nil
}
