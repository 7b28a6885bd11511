package feed

import (
	"errors"
	"fmt"
	"strings"

	"github.com/getmynews/getmynews/email"
	"github.com/getmynews/getmynews/metrics"
	log "github.com/sirupsen/logrus"
)

const maxIDAttempts = 5

func (in FeedInput) validate() (FeedInput, error) {
	in.Title = strings.TrimSpace(in.Title)
	in.Description = strings.TrimSpace(in.Description)
	in.Language = strings.TrimSpace(in.Language)
	in.Author = strings.TrimSpace(in.Author)

	if in.Title == "" {
		return in, fmt.Errorf("%w: title is required", ErrInvalidFeed)
	}

	if in.Language == "" {
		in.Language = "en"
	}

	return in, nil
}

func (s *Service) toFeed(id string, cfg Config) Feed {
	return Feed{
		ID:      id,
		Address: email.Address(id, s.domain),
		Config:  cfg,
	}
}

// CreateFeed stores a new feed with a fresh id along with its empty index
func (s *Service) CreateFeed(in FeedInput) (Feed, error) {
	in, err := in.validate()
	if err != nil {
		return Feed{}, err
	}

	id, err := s.newFeedID()
	if err != nil {
		return Feed{}, err
	}

	cfg := Config{
		Title:       in.Title,
		Description: in.Description,
		Language:    in.Language,
		Author:      in.Author,
		SiteURL:     s.feedURL(id),
		FeedURL:     s.feedURL(id),
		CreatedAt:   s.now().UnixMilli(),
	}

	if err := putJSON(s.store, configKey(id), cfg); err != nil {
		return Feed{}, fmt.Errorf("failed to save feed config: %w", err)
	}

	if err := putJSON(s.store, indexKey(id), Index{Emails: []Reference{}}); err != nil {
		return Feed{}, fmt.Errorf("failed to save feed index: %w", err)
	}

	var list feedList
	err = mutate(s.store, feedListKey, &list, func(bool) error {
		list.Feeds = append(list.Feeds, listEntry{ID: id, Title: cfg.Title})
		return nil
	})
	if err != nil {
		return Feed{}, fmt.Errorf("failed to add feed to list: %w", err)
	}

	metrics.ActiveFeeds.Inc()
	log.WithField("feed_id", id).Info("CreateFeed: created feed")

	return s.toFeed(id, cfg), nil
}

// newFeedID returns a random id not used by any existing feed
func (s *Service) newFeedID() (string, error) {
	for i := 0; i < maxIDAttempts; i++ {
		id := s.ids.NewRandom()

		_, err := s.store.Get(configKey(id))
		if errors.Is(err, ErrNotFound) {
			return id, nil
		}
		if err != nil {
			return "", fmt.Errorf("failed to check feed id: %w", err)
		}
	}

	return "", fmt.Errorf("failed to generate unused feed id after %d attempts", maxIDAttempts)
}

// GetFeed returns a feed by id
func (s *Service) GetFeed(id string) (Feed, error) {
	var cfg Config
	found, err := getJSON(s.store, configKey(id), &cfg)
	if err != nil {
		return Feed{}, err
	}
	if !found {
		return Feed{}, ErrFeedNotFound
	}

	return s.toFeed(id, cfg), nil
}

// UpdateFeed replaces the user editable parts of a feed's config
func (s *Service) UpdateFeed(id string, in FeedInput) (Feed, error) {
	in, err := in.validate()
	if err != nil {
		return Feed{}, err
	}

	var cfg Config
	err = mutate(s.store, configKey(id), &cfg, func(found bool) error {
		if !found {
			return ErrFeedNotFound
		}
		cfg.Title = in.Title
		cfg.Description = in.Description
		cfg.Language = in.Language
		cfg.Author = in.Author
		cfg.UpdatedAt = s.now().UnixMilli()
		return nil
	})
	if err != nil {
		return Feed{}, err
	}

	var list feedList
	err = mutate(s.store, feedListKey, &list, func(bool) error {
		for i := range list.Feeds {
			if list.Feeds[i].ID == id {
				list.Feeds[i].Title = cfg.Title
				return nil
			}
		}
		return errNoChange
	})
	if err != nil {
		return Feed{}, fmt.Errorf("failed to update feed list: %w", err)
	}

	return s.toFeed(id, cfg), nil
}

// SetRouteID records the email provider route that delivers into a feed
func (s *Service) SetRouteID(id, routeID string) error {
	var cfg Config
	return mutate(s.store, configKey(id), &cfg, func(found bool) error {
		if !found {
			return ErrFeedNotFound
		}
		cfg.RouteID = routeID
		return nil
	})
}

// DeleteFeed removes a feed, every email in its index, its config and its list entry. The returned feed
// is what was deleted so callers can release anything registered against it.
func (s *Service) DeleteFeed(id string) (Feed, error) {
	var idx Index
	found, err := getJSON(s.store, indexKey(id), &idx)
	if err != nil {
		return Feed{}, err
	}
	if !found {
		return Feed{}, ErrFeedNotFound
	}

	var cfg Config
	if _, err := getJSON(s.store, configKey(id), &cfg); err != nil {
		return Feed{}, err
	}

	for _, ref := range idx.Emails {
		if err := s.store.Delete(ref.Key); err != nil {
			return Feed{}, fmt.Errorf("failed to delete email %s: %w", ref.Key, err)
		}
	}

	if err := s.store.Delete(configKey(id)); err != nil {
		return Feed{}, fmt.Errorf("failed to delete feed config: %w", err)
	}

	if err := s.store.Delete(indexKey(id)); err != nil {
		return Feed{}, fmt.Errorf("failed to delete feed index: %w", err)
	}

	var list feedList
	err = mutate(s.store, feedListKey, &list, func(found bool) error {
		kept := list.Feeds[:0]
		for _, f := range list.Feeds {
			if f.ID != id {
				kept = append(kept, f)
			}
		}
		if len(kept) == len(list.Feeds) {
			return errNoChange
		}
		list.Feeds = kept
		return nil
	})
	if err != nil {
		return Feed{}, fmt.Errorf("failed to remove feed from list: %w", err)
	}

	metrics.ActiveFeeds.Dec()
	log.WithFields(log.Fields{"feed_id": id, "emails": len(idx.Emails)}).Info("DeleteFeed: deleted feed")

	return s.toFeed(id, cfg), nil
}

// ListFeeds returns every listed feed that still has a config, in creation order
func (s *Service) ListFeeds() ([]Feed, error) {
	var list feedList
	if _, err := getJSON(s.store, feedListKey, &list); err != nil {
		return nil, err
	}

	out := make([]Feed, 0, len(list.Feeds))
	for _, entry := range list.Feeds {
		var cfg Config
		found, err := getJSON(s.store, configKey(entry.ID), &cfg)
		if err != nil {
			return nil, err
		}
		if !found {
			continue
		}
		out = append(out, s.toFeed(entry.ID, cfg))
	}

	return out, nil
}
