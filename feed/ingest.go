package feed

import (
	"fmt"

	"github.com/getmynews/getmynews/email"
	"github.com/getmynews/getmynews/metrics"
	log "github.com/sirupsen/logrus"
)

// Ingest stores one inbound email and puts it at the head of its feed's index.
//
// The steps run in order and stop at the first failure: resolve the feed from the first recipient,
// check the feed exists, normalise, store the record, index it. Nothing is written before the feed is
// known to exist. The two writes are not transactional; if indexing fails the record stays stored but
// unindexed.
func (s *Service) Ingest(p *email.Payload) (Reference, error) {
	if p == nil {
		metrics.IncomingEmails.WithLabelValues(metrics.ActionFailed).Inc()
		return Reference{}, ErrMissingPayload
	}

	to := p.Recipient()
	feedID, ok := email.ExtractFeedID(to)
	if !ok {
		log.WithField("to", to).Warn("Ingest: invalid email address format")
		metrics.IncomingEmails.WithLabelValues(metrics.ActionRejectedRecipient).Inc()
		return Reference{}, ErrInvalidRecipient
	}

	logger := log.WithField("feed_id", feedID)

	var cfg Config
	found, err := getJSON(s.store, configKey(feedID), &cfg)
	if err != nil {
		logger.WithError(err).Error("Ingest: failed to look up feed")
		metrics.IncomingEmails.WithLabelValues(metrics.ActionFailed).Inc()
		return Reference{}, err
	}
	if !found {
		logger.Warn("Ingest: feed does not exist or has been deleted")
		metrics.IncomingEmails.WithLabelValues(metrics.ActionUnknownFeed).Inc()
		return Reference{}, ErrFeedNotFound
	}

	rec, err := email.Normalize(p, s.now())
	if err != nil {
		metrics.IncomingEmails.WithLabelValues(metrics.ActionFailed).Inc()
		return Reference{}, err
	}

	ref, err := s.save(feedID, rec)
	if err != nil {
		logger.WithError(err).Error("Ingest: failed to store email")
		metrics.IncomingEmails.WithLabelValues(metrics.ActionFailed).Inc()
		return Reference{}, err
	}

	logger.WithFields(log.Fields{
		"key":     ref.Key,
		"subject": ref.Subject,
		"html":    p.HTML != "",
	}).Info("Ingest: processed email")
	metrics.IncomingEmails.WithLabelValues(metrics.ActionProcessed).Inc()

	return ref, nil
}

func (s *Service) save(feedID string, rec email.Record) (Reference, error) {
	key, err := newEmailKey(feedID, rec.ReceivedAt)
	if err != nil {
		return Reference{}, err
	}

	if err := putJSON(s.store, key, rec); err != nil {
		return Reference{}, fmt.Errorf("failed to save email: %w", err)
	}

	ref := Reference{
		Key:        key,
		Subject:    rec.Subject,
		ReceivedAt: rec.ReceivedAt,
	}

	if err := s.appendReference(feedID, ref); err != nil {
		return Reference{}, fmt.Errorf("email %s stored but not indexed: %w", key, err)
	}

	return ref, nil
}

// appendReference puts ref at the head of the feed's index, creating the index if it is missing
func (s *Service) appendReference(feedID string, ref Reference) error {
	var idx Index
	return mutate(s.store, indexKey(feedID), &idx, func(bool) error {
		idx.Prepend(ref)
		return nil
	})
}

// removeReference drops key from the feed's index. A missing index or key is a no-op.
func (s *Service) removeReference(feedID, key string) error {
	var idx Index
	return mutate(s.store, indexKey(feedID), &idx, func(found bool) error {
		if !found {
			return errNoChange
		}
		if !idx.RemoveByKey(key) {
			return errNoChange
		}
		return nil
	})
}

// readTop returns the first n references of the feed's index. found is false when there is no index.
func (s *Service) readTop(feedID string, n int) ([]Reference, bool, error) {
	var idx Index
	found, err := getJSON(s.store, indexKey(feedID), &idx)
	if err != nil || !found {
		return nil, found, err
	}
	return idx.Top(n), true, nil
}
