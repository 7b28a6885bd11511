package data

import (
	"errors"
	"fmt"
	"reflect"
	"sync"
	"testing"

	"github.com/getmynews/getmynews/feed"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestFunction is the signature for a testing function
type TestFunction = func(t *testing.T, db feed.Store)

// TestingFuncs contain the suite of funcs that a store implementation should be tested against
var TestingFuncs = []TestFunction{
	TestPutAndGet,
	TestGetMissing,
	TestPutOverwrites,
	TestDelete,
	TestDeleteMissing,
	TestUpdate,
}

func newKey(prefix string) string {
	return fmt.Sprintf("test:%s:%s", prefix, uuid.Must(uuid.NewRandom()).String())
}

// TestPutAndGet verifies that a value can be read back after Put
func TestPutAndGet(t *testing.T, db feed.Store) {
	key := newKey("put")
	value := []byte(`{"subject":"Café ☕","content":"<p>hi</p>"}`)

	err := db.Put(key, value)
	require.NoError(t, err, "%v - TestPutAndGet: failed to put", reflect.TypeOf(db))

	got, err := db.Get(key)
	require.NoError(t, err, "%v - TestPutAndGet: failed to get", reflect.TypeOf(db))
	assert.Equal(t, value, got, "%v - TestPutAndGet: value not the same after retrieve", reflect.TypeOf(db))
}

// TestGetMissing verifies that a missing key returns feed.ErrNotFound
func TestGetMissing(t *testing.T, db feed.Store) {
	_, err := db.Get(newKey("missing"))
	assert.Equal(t, feed.ErrNotFound, err, "%v - TestGetMissing: wrong error", reflect.TypeOf(db))
}

// TestPutOverwrites verifies that Put replaces an existing value
func TestPutOverwrites(t *testing.T, db feed.Store) {
	key := newKey("overwrite")

	require.NoError(t, db.Put(key, []byte(`{"v":1}`)))
	require.NoError(t, db.Put(key, []byte(`{"v":2}`)))

	got, err := db.Get(key)
	require.NoError(t, err)
	assert.Equal(t, []byte(`{"v":2}`), got, "%v - TestPutOverwrites: value not replaced", reflect.TypeOf(db))
}

// TestDelete verifies that a deleted key is gone
func TestDelete(t *testing.T, db feed.Store) {
	key := newKey("delete")
	other := newKey("delete")

	require.NoError(t, db.Put(key, []byte(`{}`)))
	require.NoError(t, db.Put(other, []byte(`{}`)))
	require.NoError(t, db.Delete(key))

	_, err := db.Get(key)
	assert.Equal(t, feed.ErrNotFound, err, "%v - TestDelete: key still present", reflect.TypeOf(db))

	_, err = db.Get(other)
	assert.NoError(t, err, "%v - TestDelete: deleted the wrong key", reflect.TypeOf(db))
}

// TestDeleteMissing verifies that deleting a missing key is not an error
func TestDeleteMissing(t *testing.T, db feed.Store) {
	assert.NoError(t, db.Delete(newKey("never")), "%v - TestDeleteMissing", reflect.TypeOf(db))
}

// TestUpdate verifies atomic read-modify-write for stores that implement feed.Updater
func TestUpdate(t *testing.T, db feed.Store) {
	u, ok := db.(feed.Updater)
	if !ok {
		return
	}

	key := newKey("update")

	err := u.Update(key, func(current []byte, found bool) ([]byte, error) {
		assert.False(t, found)
		return []byte("0"), nil
	})
	require.NoError(t, err, "%v - TestUpdate: failed to create", reflect.TypeOf(db))

	const workers = 10
	var wg sync.WaitGroup
	wg.Add(workers)
	for i := 0; i < workers; i++ {
		go func() {
			defer wg.Done()
			err := u.Update(key, func(current []byte, found bool) ([]byte, error) {
				var n int
				_, err := fmt.Sscanf(string(current), "%d", &n)
				if err != nil {
					return nil, err
				}
				return []byte(fmt.Sprintf("%d", n+1)), nil
			})
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	got, err := db.Get(key)
	require.NoError(t, err)
	assert.Equal(t, fmt.Sprintf("%d", workers), string(got), "%v - TestUpdate: lost an update", reflect.TypeOf(db))

	failing := errors.New("nope")
	err = u.Update(key, func(current []byte, found bool) ([]byte, error) {
		return nil, failing
	})
	assert.Equal(t, failing, err)

	got, err = db.Get(key)
	require.NoError(t, err)
	assert.Equal(t, fmt.Sprintf("%d", workers), string(got), "%v - TestUpdate: failed update wrote", reflect.TypeOf(db))
}
