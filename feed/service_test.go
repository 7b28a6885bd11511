package feed

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

var testNow = time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)

// memStore is a plain Store without Update, so mutations take the get then put path
type memStore struct {
	m       sync.Mutex
	values  map[string][]byte
	puts    int
	deletes int
}

func newMemStore() *memStore {
	return &memStore{values: map[string][]byte{}}
}

func (s *memStore) Start() error {
	return nil
}

func (s *memStore) Get(key string) ([]byte, error) {
	s.m.Lock()
	defer s.m.Unlock()

	v, ok := s.values[key]
	if !ok {
		return nil, ErrNotFound
	}
	return append([]byte(nil), v...), nil
}

func (s *memStore) Put(key string, value []byte) error {
	s.m.Lock()
	defer s.m.Unlock()

	s.puts++
	s.values[key] = append([]byte(nil), value...)
	return nil
}

func (s *memStore) Delete(key string) error {
	s.m.Lock()
	defer s.m.Unlock()

	s.deletes++
	delete(s.values, key)
	return nil
}

func (s *memStore) writes() int {
	s.m.Lock()
	defer s.m.Unlock()
	return s.puts + s.deletes
}

// updaterStore adds an atomic Update to memStore
type updaterStore struct {
	*memStore
	updates int
}

func (s *updaterStore) Update(key string, fn func(current []byte, found bool) ([]byte, error)) error {
	s.m.Lock()
	defer s.m.Unlock()

	s.updates++
	current, found := s.values[key]
	next, err := fn(current, found)
	if err != nil {
		return err
	}

	s.puts++
	s.values[key] = next
	return nil
}

type MockStore struct {
	mock.Mock
}

func (m *MockStore) Start() error {
	args := m.Called()
	return args.Error(0)
}

func (m *MockStore) Get(key string) ([]byte, error) {
	args := m.Called(key)
	b, _ := args.Get(0).([]byte)
	return b, args.Error(1)
}

func (m *MockStore) Put(key string, value []byte) error {
	args := m.Called(key, value)
	return args.Error(0)
}

func (m *MockStore) Delete(key string) error {
	args := m.Called(key)
	return args.Error(0)
}

// sequenceIDs hands out ids in order and then repeats the last one
type sequenceIDs struct {
	ids []string
	i   int
}

func (s *sequenceIDs) NewRandom() string {
	id := s.ids[s.i]
	if s.i < len(s.ids)-1 {
		s.i++
	}
	return id
}

func newTestService(store Store, ids ...string) *Service {
	if len(ids) == 0 {
		ids = []string{"abc12"}
	}

	s := NewService(store, &sequenceIDs{ids: ids}, "https://news.example.com/", "x.com")
	s.now = func() time.Time { return testNow }
	return s
}

func mustCreateFeed(t *testing.T, s *Service, title string) Feed {
	t.Helper()

	f, err := s.CreateFeed(FeedInput{Title: title})
	require.NoError(t, err)
	return f
}
