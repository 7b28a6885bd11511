package sqldb

import (
	"database/sql"
	"fmt"
	"sync"

	"github.com/getmynews/getmynews/feed"
	"github.com/jmoiron/sqlx"
)

var _ feed.Store = &SQLDatabase{}
var _ feed.Updater = &SQLDatabase{}

const upsertQuery = "INSERT INTO kv_store (item_key, item_value) VALUES (?, ?) ON CONFLICT (item_key) DO UPDATE SET item_value = excluded.item_value"

// SQLDatabase implements feed.Store on a single key/value table
type SQLDatabase struct {
	*sqlx.DB

	// serialises Update within this process
	mu sync.Mutex
}

// New returns a new db or panics
func New(dbType string, dbURL string) *SQLDatabase {
	return &SQLDatabase{DB: sqlx.MustOpen(dbType, dbURL)}
}

// Start creates the table
func (s *SQLDatabase) Start() error {
	_, err := s.Exec(`create table if not exists kv_store (
		item_key text not null,
		item_value text not null,
		primary key (item_key)
	);`)
	if err != nil {
		return fmt.Errorf("SQLDatabase.Start: failed to create table: %w", err)
	}
	return nil
}

// Get gets the value at key
func (s *SQLDatabase) Get(key string) ([]byte, error) {
	var v string
	err := s.DB.Get(&v, s.Rebind("SELECT item_value FROM kv_store WHERE item_key = ?"), key)
	if err == sql.ErrNoRows {
		return nil, feed.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("SQLDatabase.Get: %w", err)
	}

	return []byte(v), nil
}

// Put inserts or replaces the value at key
func (s *SQLDatabase) Put(key string, value []byte) error {
	_, err := s.Exec(s.Rebind(upsertQuery), key, string(value))
	if err != nil {
		return fmt.Errorf("SQLDatabase.Put: %w", err)
	}
	return nil
}

// Delete deletes the value at key
func (s *SQLDatabase) Delete(key string) error {
	_, err := s.Exec(s.Rebind("DELETE FROM kv_store WHERE item_key = ?"), key)
	if err != nil {
		return fmt.Errorf("SQLDatabase.Delete: %w", err)
	}
	return nil
}

// Update applies fn to the value at key inside a transaction that holds a lock on the key, so
// concurrent updates from other processes are serialised by the database.
func (s *SQLDatabase) Update(key string, fn func(current []byte, found bool) ([]byte, error)) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	tx, err := s.Beginx()
	if err != nil {
		return fmt.Errorf("SQLDatabase.Update: failed to begin: %w", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	err = s.lockKey(tx, key)
	if err != nil {
		return fmt.Errorf("SQLDatabase.Update: failed to lock %s: %w", key, err)
	}

	var v string
	found := true
	err = tx.Get(&v, tx.Rebind("SELECT item_value FROM kv_store WHERE item_key = ?"), key)
	if err == sql.ErrNoRows {
		found = false
	} else if err != nil {
		return fmt.Errorf("SQLDatabase.Update: %w", err)
	}

	var current []byte
	if found {
		current = []byte(v)
	}

	next, err := fn(current, found)
	if err != nil {
		return err
	}

	_, err = tx.Exec(tx.Rebind(upsertQuery), key, string(next))
	if err != nil {
		return fmt.Errorf("SQLDatabase.Update: %w", err)
	}

	err = tx.Commit()
	if err != nil {
		return fmt.Errorf("SQLDatabase.Update: failed to commit: %w", err)
	}
	return nil
}

// lockKey takes a lock covering key for the rest of tx, whether or not the row exists yet
func (s *SQLDatabase) lockKey(tx *sqlx.Tx, key string) error {
	if s.DriverName() == "postgres" {
		_, err := tx.Exec("SELECT pg_advisory_xact_lock(hashtext($1))", key)
		return err
	}

	// sqlite: a write as the first statement takes the database write lock before the read
	_, err := tx.Exec(tx.Rebind("UPDATE kv_store SET item_value = item_value WHERE item_key = ?"), key)
	return err
}

// Count returns the number of stored keys
func (s *SQLDatabase) Count() (int, error) {
	var count int
	err := s.DB.Get(&count, "SELECT COUNT(*) FROM kv_store")
	return count, err
}
