package badger

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCache_ReadThrough(t *testing.T) {
	retrieved := 0
	retrieve := func(key string) (int, error) {
		retrieved++
		if key == "missing" {
			return 0, errors.New("not found")
		}
		return len(key), nil
	}
	c := newCache[string, int](withLimit[string, int](2), withRetrieve[string, int](retrieve))

	v, err := c.Get("abc")
	require.NoError(t, err)
	assert.Equal(t, 3, v)
	_, err = c.Get("abc")
	require.NoError(t, err)
	assert.Equal(t, 1, retrieved)

	_, err = c.Get("missing")
	require.Error(t, err)

	// no store function configured
	require.Error(t, c.Put("x", 1))
}

func TestCache_WriteThrough(t *testing.T) {
	stored := make(map[string]int)
	store := func(key string, value int) error {
		stored[key] = value
		return nil
	}
	c := newCache[string, int](withStore[string, int](store))

	require.NoError(t, c.Put("a", 1))
	assert.Equal(t, 1, stored["a"])

	v, err := c.Get("a")
	require.NoError(t, err)
	assert.Equal(t, 1, v)

	// nothing to read through to
	_, err = c.Get("b")
	require.Error(t, err)
}
