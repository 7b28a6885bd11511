package feed

import (
	"strings"
	"time"

	"github.com/getmynews/getmynews/email"
)

// IDGenerator creates new random feed ids
type IDGenerator interface {
	NewRandom() string
}

// Ingester accepts inbound payloads. Email providers hand every webhook they receive to one.
type Ingester interface {
	Ingest(p *email.Payload) (Reference, error)
}

// Service ties the feed pipeline to a Store. It keeps no state of its own between calls.
type Service struct {
	store   Store
	ids     IDGenerator
	baseURL string
	domain  string
	now     func() time.Time
}

// NewService returns a service persisting through store. baseURL is the public website address used in
// feed and item links, domain is the mail domain feed addresses are issued under.
func NewService(store Store, ids IDGenerator, baseURL, domain string) *Service {
	return &Service{
		store:   store,
		ids:     ids,
		baseURL: strings.TrimSuffix(baseURL, "/"),
		domain:  domain,
		now:     time.Now,
	}
}

func (s *Service) feedURL(feedID string) string {
	return s.baseURL + "/rss/" + feedID
}
