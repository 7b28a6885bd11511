package inmemory

import (
	"sync"

	"github.com/getmynews/getmynews/feed"
)

var _ feed.Store = &InMemory{}
var _ feed.Updater = &InMemory{}

// InMemory implements an in memory store
type InMemory struct {
	values map[string][]byte
	m      sync.RWMutex
}

// GetInMemoryDB returns a new InMemory store to use
func GetInMemoryDB() *InMemory {
	return &InMemory{
		values: make(map[string][]byte),
	}
}

// Start implements feed.Store. There is nothing to set up.
func (im *InMemory) Start() error {
	return nil
}

// Get returns a copy of the value at key
func (im *InMemory) Get(key string) ([]byte, error) {
	im.m.RLock()
	defer im.m.RUnlock()

	v, ok := im.values[key]
	if !ok {
		return nil, feed.ErrNotFound
	}

	return clone(v), nil
}

// Put stores a copy of value at key
func (im *InMemory) Put(key string, value []byte) error {
	im.m.Lock()
	defer im.m.Unlock()

	im.values[key] = clone(value)

	return nil
}

// Delete removes key
func (im *InMemory) Delete(key string) error {
	im.m.Lock()
	defer im.m.Unlock()

	delete(im.values, key)

	return nil
}

// Update applies fn to the value at key while holding the write lock
func (im *InMemory) Update(key string, fn func(current []byte, found bool) ([]byte, error)) error {
	im.m.Lock()
	defer im.m.Unlock()

	current, found := im.values[key]

	next, err := fn(clone(current), found)
	if err != nil {
		return err
	}

	im.values[key] = clone(next)

	return nil
}

// Len returns the number of stored keys
func (im *InMemory) Len() int {
	im.m.RLock()
	defer im.m.RUnlock()

	return len(im.values)
}

func clone(b []byte) []byte {
	if b == nil {
		return nil
	}
	c := make([]byte, len(b))
	copy(c, b)
	return c
}
