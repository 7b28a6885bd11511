package feed

import "errors"

// ErrNotFound is returned by a Store when the key has no value
var ErrNotFound = errors.New("store: key not found")

// Store is the key/value collaborator everything in this package persists through.
// Values are opaque bytes; this package writes JSON.
type Store interface {
	// Start is where schema creation and background work should happen
	Start() error
	Get(key string) ([]byte, error)
	Put(key string, value []byte) error
	// Delete removes key. Deleting a missing key is not an error.
	Delete(key string) error
}

// Updater is implemented by stores that can apply a read-modify-write to one key atomically.
// fn receives the current value (found is false when absent) and returns the value to store. When fn
// returns an error nothing is written and that error is returned.
type Updater interface {
	Update(key string, fn func(current []byte, found bool) ([]byte, error)) error
}
