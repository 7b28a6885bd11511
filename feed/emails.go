package feed

import (
	"fmt"

	"github.com/getmynews/getmynews/email"
	log "github.com/sirupsen/logrus"
)

// ListEmails returns a feed's whole index, newest first
func (s *Service) ListEmails(feedID string) ([]Reference, error) {
	if _, err := s.GetFeed(feedID); err != nil {
		return nil, err
	}

	var idx Index
	if _, err := getJSON(s.store, indexKey(feedID), &idx); err != nil {
		return nil, err
	}

	if idx.Emails == nil {
		return []Reference{}, nil
	}

	return idx.Emails, nil
}

// GetEmail returns the stored email at key
func (s *Service) GetEmail(key string) (email.Record, error) {
	if _, ok := FeedIDFromKey(key); !ok {
		return email.Record{}, ErrEmailNotFound
	}

	var rec email.Record
	found, err := getJSON(s.store, key, &rec)
	if err != nil {
		return email.Record{}, err
	}
	if !found {
		return email.Record{}, ErrEmailNotFound
	}

	return rec, nil
}

// DeleteEmail deletes the email at key and then removes it from the feed's index
func (s *Service) DeleteEmail(feedID, key string) error {
	owner, ok := FeedIDFromKey(key)
	if !ok || owner != feedID {
		return ErrEmailNotFound
	}

	if _, err := s.GetEmail(key); err != nil {
		return err
	}

	if err := s.store.Delete(key); err != nil {
		return fmt.Errorf("failed to delete email: %w", err)
	}

	if err := s.removeReference(feedID, key); err != nil {
		return fmt.Errorf("email %s deleted but still indexed: %w", key, err)
	}

	log.WithFields(log.Fields{"feed_id": feedID, "key": key}).Info("DeleteEmail: deleted email")
	return nil
}
