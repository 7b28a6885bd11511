package feed

import (
	"encoding/json"
	"errors"
	"fmt"
	"reflect"
)

// errNoChange is returned from a mutate callback to skip the write
var errNoChange = errors.New("no change")

// getJSON loads key into v. found is false when the key is absent.
func getJSON(store Store, key string, v interface{}) (bool, error) {
	b, err := store.Get(key)
	if errors.Is(err, ErrNotFound) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("failed to get %s: %w", key, err)
	}

	if err := json.Unmarshal(b, v); err != nil {
		return false, fmt.Errorf("failed to unmarshal %s: %w", key, err)
	}

	return true, nil
}

func putJSON(store Store, key string, v interface{}) error {
	b, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("failed to marshal %s: %w", key, err)
	}

	if err := store.Put(key, b); err != nil {
		return fmt.Errorf("failed to put %s: %w", key, err)
	}

	return nil
}

// mutate loads the JSON value at key into v, lets fn change it and writes it back. v is left at its
// zero value when the key is absent. fn returns errNoChange to skip the write.
//
// Stores implementing Updater do this atomically. For every other store it is a plain get then put,
// so two concurrent mutations of the same key can lose one of the updates.
func mutate(store Store, key string, v interface{}, fn func(found bool) error) error {
	apply := func(current []byte, found bool) ([]byte, error) {
		// Updaters may retry, start each attempt from a clean value
		rv := reflect.ValueOf(v).Elem()
		rv.Set(reflect.Zero(rv.Type()))

		if found {
			if err := json.Unmarshal(current, v); err != nil {
				return nil, fmt.Errorf("failed to unmarshal %s: %w", key, err)
			}
		}

		if err := fn(found); err != nil {
			return nil, err
		}

		next, err := json.Marshal(v)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal %s: %w", key, err)
		}
		return next, nil
	}

	if u, ok := store.(Updater); ok {
		err := u.Update(key, apply)
		if errors.Is(err, errNoChange) {
			return nil
		}
		return err
	}

	current, err := store.Get(key)
	found := true
	if errors.Is(err, ErrNotFound) {
		found = false
	} else if err != nil {
		return fmt.Errorf("failed to get %s: %w", key, err)
	}

	next, err := apply(current, found)
	if errors.Is(err, errNoChange) {
		return nil
	}
	if err != nil {
		return err
	}

	if err := store.Put(key, next); err != nil {
		return fmt.Errorf("failed to put %s: %w", key, err)
	}

	return nil
}
