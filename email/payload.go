package email

import "encoding/json"

// Payload is an inbound webhook body in the ForwardEmail shape. Every field is optional; Normalize
// documents the default used for each one that is missing.
type Payload struct {
	Recipients  []string        `json:"recipients,omitempty"`
	From        *From           `json:"from,omitempty"`
	Subject     string          `json:"subject,omitempty"`
	Text        string          `json:"text,omitempty"`
	HTML        string          `json:"html,omitempty"`
	Date        string          `json:"date,omitempty"`
	MessageID   string          `json:"messageId,omitempty"`
	HeaderLines []HeaderLine    `json:"headerLines,omitempty"`
	Headers     json.RawMessage `json:"headers,omitempty"`
}

// From holds the parsed sender. Text is the provider's preformatted display string.
type From struct {
	Value []Mailbox `json:"value,omitempty"`
	Text  string    `json:"text,omitempty"`
}

// Mailbox is a single parsed address
type Mailbox struct {
	Address string `json:"address,omitempty"`
	Name    string `json:"name,omitempty"`
}

// HeaderLine is one raw header as sent by the provider, e.g. {Key: "Subject", Line: "Subject: hi"}
type HeaderLine struct {
	Key  string `json:"key"`
	Line string `json:"line"`
}

// Recipient returns the first recipient or an empty string
func (p *Payload) Recipient() string {
	if p == nil || len(p.Recipients) == 0 {
		return ""
	}
	return p.Recipients[0]
}

// HeaderBlob returns Headers when it was sent as a single string. Providers that send an object
// or nothing at all yield false.
func (p *Payload) HeaderBlob() (string, bool) {
	if p == nil || len(p.Headers) == 0 {
		return "", false
	}

	var blob string
	if err := json.Unmarshal(p.Headers, &blob); err != nil {
		return "", false
	}

	return blob, true
}
