package mailgunmail

import (
	"encoding/json"
	"net/http"
	"net/mail"
	"strings"

	"github.com/getmynews/getmynews/email"
	"github.com/getmynews/getmynews/feed"
	"github.com/getmynews/getmynews/server"
	"github.com/gorilla/mux"
	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
	mailgun "gopkg.in/mailgun/mailgun-go.v1"
)

var _ server.EmailProvider = &MailgunMail{}

// IncomingPath is where mailgun routes forward messages to
const IncomingPath = "/mg/incoming/"

// routePrefix marks the routes created by this provider in their description
const routePrefix = "getmynews:"

// mailgunClient is the part of the mailgun api this provider uses
type mailgunClient interface {
	CreateRoute(mailgun.Route) (mailgun.Route, error)
	DeleteRoute(id string) error
	GetRoutes(limit, skip int) (int, []mailgun.Route, error)
	VerifyWebhookRequest(req *http.Request) (bool, error)
}

// MailgunMail is a mailgun implementation of the EmailProvider interface
type MailgunMail struct {
	websiteAddr string
	mg          mailgunClient
	in          feed.Ingester
}

// NewMailgunProvider creates a new Mailgun EmailProvider. websiteAddr is the public url mailgun forwards to.
func NewMailgunProvider(domain, key, websiteAddr string) *MailgunMail {
	return &MailgunMail{
		mg:          mailgun.NewMailgun(domain, key, ""),
		websiteAddr: strings.TrimSuffix(websiteAddr, "/"),
	}
}

// Start implements EmailProvider Start()
func (m *MailgunMail) Start(r *mux.Router, in feed.Ingester) error {
	m.in = in
	r.HandleFunc(IncomingPath, m.mailgunIncoming).Methods(http.MethodPost)
	return nil
}

// Stop implements EmailProvider Stop()
func (m *MailgunMail) Stop() error {
	return nil
}

// RegisterRoute implements RegisterRoute()
func (m *MailgunMail) RegisterRoute(f feed.Feed) (string, error) {
	routeAddr := m.websiteAddr + IncomingPath
	route, err := m.mg.CreateRoute(mailgun.Route{
		Priority:    1,
		Description: routePrefix + f.ID,
		Expression:  "match_recipient(\"" + f.Address + "\")",
		Actions:     []string{"forward(\"" + routeAddr + "\")", "stop()"},
	})
	if err != nil {
		return "", errors.Wrap(err, "createRoute: failed to create mailgun route")
	}
	return route.ID, nil
}

// DeregisterRoute implements DeregisterRoute()
func (m *MailgunMail) DeregisterRoute(routeID string) error {
	return errors.Wrap(m.mg.DeleteRoute(routeID), "deleteRoute: failed to delete mailgun route")
}

// PruneRoutes deletes routes this provider created for feeds that no longer exist. It returns how many
// routes were deleted.
func (m *MailgunMail) PruneRoutes(exists func(feedID string) (bool, error)) (int, error) {
	_, rs, err := m.mg.GetRoutes(1000, 0)
	if err != nil {
		return 0, errors.Wrap(err, "Mailgun.PruneRoutes: failed to get routes")
	}

	deleted := 0
	for _, r := range rs {
		if !strings.HasPrefix(r.Description, routePrefix) {
			continue
		}

		feedID := strings.TrimPrefix(r.Description, routePrefix)
		logger := log.WithFields(log.Fields{"route_id": r.ID, "feed_id": feedID})

		ok, err := exists(feedID)
		if err != nil {
			logger.WithError(err).Warn("Mailgun.PruneRoutes: failed to check feed")
			continue
		}
		if ok {
			continue
		}

		err = m.mg.DeleteRoute(r.ID)
		if err != nil {
			logger.WithError(err).Warn("Mailgun.PruneRoutes: failed to delete route")
			continue
		}
		deleted++
	}

	return deleted, nil
}

func (m *MailgunMail) mailgunIncoming(w http.ResponseWriter, r *http.Request) {
	ver, err := m.mg.VerifyWebhookRequest(r)
	if err != nil {
		log.WithError(err).Warn("MailgunIncoming: failed to verify request")
		w.WriteHeader(http.StatusUnauthorized)
		return
	}

	if !ver {
		log.Warn("MailgunIncoming: invalid request")
		w.WriteHeader(http.StatusUnauthorized)
		return
	}

	p, err := payload(r)
	if err != nil {
		log.WithError(err).Warn("MailgunIncoming: malformed request")
		http.Error(w, "Invalid webhook payload", http.StatusBadRequest)
		return
	}

	_, err = m.in.Ingest(p)

	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(feed.StatusCode(err))

	_, err = w.Write([]byte(feed.Message(err)))
	if err != nil {
		log.WithError(err).Warn("MailgunIncoming: failed to write response")
	}
}

// payload maps a mailgun forwarded message onto the inbound payload shape
func payload(r *http.Request) (*email.Payload, error) {
	p := &email.Payload{
		Subject:   r.FormValue("subject"),
		Text:      r.FormValue("body-plain"),
		HTML:      r.FormValue("body-html"),
		Date:      r.FormValue("Date"),
		MessageID: r.FormValue("Message-Id"),
	}

	if to := r.FormValue("recipient"); to != "" {
		p.Recipients = strings.Split(to, ",")
		for i := range p.Recipients {
			p.Recipients[i] = strings.TrimSpace(p.Recipients[i])
		}
	}

	if from := r.FormValue("from"); from != "" {
		p.From = &email.From{Text: from}
		if a, err := mail.ParseAddress(from); err == nil {
			p.From.Value = []email.Mailbox{{Address: a.Address, Name: a.Name}}
		}
	}

	if raw := r.FormValue("message-headers"); raw != "" {
		var pairs [][]string
		err := json.Unmarshal([]byte(raw), &pairs)
		if err != nil {
			return nil, errors.Wrap(err, "failed to decode message-headers")
		}

		for _, kv := range pairs {
			if len(kv) != 2 {
				continue
			}
			p.HeaderLines = append(p.HeaderLines, email.HeaderLine{Key: kv[0], Line: kv[0] + ": " + kv[1]})
		}
	}

	return p, nil
}
