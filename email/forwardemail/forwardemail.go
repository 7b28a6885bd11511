package forwardemail

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"io"
	"net/http"

	"github.com/getmynews/getmynews/email"
	"github.com/getmynews/getmynews/feed"
	"github.com/getmynews/getmynews/server"
	"github.com/gorilla/mux"
	log "github.com/sirupsen/logrus"
)

var _ server.EmailProvider = &ForwardEmail{}

// InboundPath is where ForwardEmail posts parsed messages
const InboundPath = "/api/inbound"

// signatureHeader carries the hex HMAC-SHA256 of the body when a webhook key is configured
const signatureHeader = "X-Webhook-Signature"

// maxPayloadSize caps the webhook body. ForwardEmail itself rejects messages above 50MB.
const maxPayloadSize = 64 << 20

// ForwardEmail receives mail posted as JSON by forwardemail.net webhooks. Addresses are routed with a
// catch-all DNS record so there is nothing to register per feed.
type ForwardEmail struct {
	webhookKey string
	in         feed.Ingester
}

// NewForwardEmailProvider returns a provider. When webhookKey is not empty every request must be signed with it.
func NewForwardEmailProvider(webhookKey string) *ForwardEmail {
	return &ForwardEmail{webhookKey: webhookKey}
}

// Start implements EmailProvider Start()
func (f *ForwardEmail) Start(r *mux.Router, in feed.Ingester) error {
	f.in = in
	r.HandleFunc(InboundPath, f.inbound).Methods(http.MethodPost)
	return nil
}

// Stop implements EmailProvider Stop()
func (f *ForwardEmail) Stop() error {
	return nil
}

// RegisterRoute implements EmailProvider RegisterRoute()
func (f *ForwardEmail) RegisterRoute(feed.Feed) (string, error) {
	return "", nil
}

// DeregisterRoute implements EmailProvider DeregisterRoute()
func (f *ForwardEmail) DeregisterRoute(string) error {
	return nil
}

func (f *ForwardEmail) inbound(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxPayloadSize))
	if err != nil {
		log.WithError(err).Warn("ForwardEmail: failed to read webhook body")
		http.Error(w, "Invalid webhook payload", http.StatusBadRequest)
		return
	}

	if !f.verify(r.Header.Get(signatureHeader), body) {
		log.Warn("ForwardEmail: webhook signature mismatch")
		http.Error(w, "Invalid webhook signature", http.StatusUnauthorized)
		return
	}

	var p *email.Payload
	err = json.Unmarshal(body, &p)
	if err != nil {
		log.WithError(err).Warn("ForwardEmail: malformed webhook payload")
		http.Error(w, "Invalid webhook payload", http.StatusBadRequest)
		return
	}

	_, err = f.in.Ingest(p)
	reply(w, err)
}

func (f *ForwardEmail) verify(signature string, body []byte) bool {
	if f.webhookKey == "" {
		return true
	}

	got, err := hex.DecodeString(signature)
	if err != nil {
		return false
	}

	mac := hmac.New(sha256.New, []byte(f.webhookKey))
	mac.Write(body)
	return hmac.Equal(got, mac.Sum(nil))
}

func reply(w http.ResponseWriter, err error) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(feed.StatusCode(err))

	_, werr := w.Write([]byte(feed.Message(err)))
	if werr != nil {
		log.WithError(werr).Warn("ForwardEmail: failed to write response")
	}
}
