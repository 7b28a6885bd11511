package feed

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type counter struct {
	N int `json:"n"`
}

func TestMutate(t *testing.T) {
	for name, newStore := range map[string]func() Store{
		"get then put": func() Store { return newMemStore() },
		"updater":      func() Store { return &updaterStore{memStore: newMemStore()} },
	} {
		t.Run(name, func(t *testing.T) {
			store := newStore()

			var c counter
			inc := func(found bool) error {
				c.N++
				return nil
			}

			require.NoError(t, mutate(store, "count", &c, inc))
			require.NoError(t, mutate(store, "count", &c, inc))

			found, err := getJSON(store, "count", &c)
			require.NoError(t, err)
			assert.True(t, found)
			assert.Equal(t, 2, c.N)

			var seen []bool
			require.NoError(t, mutate(store, "other", &c, func(found bool) error {
				seen = append(seen, found)
				assert.Equal(t, 0, c.N, "value must start from zero when absent")
				return errNoChange
			}))
			assert.Equal(t, []bool{false}, seen)

			_, err = store.Get("other")
			assert.Equal(t, ErrNotFound, err)

			boom := errors.New("boom")
			err = mutate(store, "count", &c, func(bool) error {
				c.N = 100
				return boom
			})
			assert.Equal(t, boom, err)

			found, err = getJSON(store, "count", &c)
			require.NoError(t, err)
			assert.True(t, found)
			assert.Equal(t, 2, c.N)
		})
	}
}

func TestMutate_UsesUpdater(t *testing.T) {
	store := &updaterStore{memStore: newMemStore()}

	var c counter
	require.NoError(t, mutate(store, "count", &c, func(bool) error {
		c.N = 1
		return nil
	}))

	assert.Equal(t, 1, store.updates)
}

func TestMutate_GetError(t *testing.T) {
	m := new(MockStore)
	m.On("Get", "count").Return(nil, errors.New("timeout"))

	var c counter
	err := mutate(m, "count", &c, func(bool) error {
		t.Fatal("callback must not run")
		return nil
	})

	assert.Error(t, err)
	m.AssertNotCalled(t, "Put", mock.Anything, mock.Anything)
}

func TestGetJSON_Corrupt(t *testing.T) {
	store := newMemStore()
	require.NoError(t, store.Put("count", []byte("{not json")))

	var c counter
	_, err := getJSON(store, "count", &c)
	assert.Error(t, err)
}
