package email

import (
	"errors"
	"net/mail"
	"regexp"
	"strings"
	"time"
)

// UnknownSender is used when the payload carries no usable sender
const UnknownSender = "Unknown Sender"

// NoSubject is used when the payload carries no subject
const NoSubject = "No Subject"

// ErrMissingPayload is returned by Normalize when there is no payload at all
var ErrMissingPayload = errors.New("missing or invalid webhook payload")

var dateLayouts = []string{
	time.RFC3339Nano,
	time.RFC3339,
	time.RFC1123Z,
	time.RFC1123,
	"2006-01-02 15:04:05Z07:00",
	"2006-01-02",
}

var headerLine = regexp.MustCompile(`^([^:]+):\s*(.*)$`)

// Normalize turns a webhook payload into a Record. Only a nil payload is an error, every other problem
// falls back to a default. now is used as the received time when the payload date is missing or unparseable.
func Normalize(p *Payload, now time.Time) (Record, error) {
	if p == nil {
		return Record{}, ErrMissingPayload
	}

	subject := p.Subject
	if subject == "" {
		subject = NoSubject
	}

	return Record{
		Subject:    DecodeEncodedWords(subject),
		Sender:     sender(p.From),
		Content:    content(p),
		ReceivedAt: receivedAt(p.Date, now),
		Headers:    headers(p),
	}, nil
}

func sender(f *From) string {
	if f == nil {
		return UnknownSender
	}

	if f.Text != "" {
		return f.Text
	}

	if len(f.Value) > 0 && f.Value[0].Address != "" {
		if f.Value[0].Name == "" {
			return f.Value[0].Address
		}
		return f.Value[0].Name + " <" + f.Value[0].Address + ">"
	}

	return UnknownSender
}

func content(p *Payload) string {
	if p.HTML != "" {
		return p.HTML
	}
	return p.Text
}

func receivedAt(date string, now time.Time) int64 {
	date = strings.TrimSpace(date)
	if date == "" {
		return now.UnixMilli()
	}

	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, date); err == nil {
			return t.UnixMilli()
		}
	}

	// RFC 5322 dates with comments, obsolete zones and the like
	if t, err := mail.ParseDate(date); err == nil {
		return t.UnixMilli()
	}

	return now.UnixMilli()
}

func headers(p *Payload) map[string]string {
	h := make(map[string]string)

	if len(p.HeaderLines) > 0 {
		for _, l := range p.HeaderLines {
			key := strings.TrimSpace(l.Key)
			if key == "" {
				continue
			}
			h[strings.ToLower(key)] = stripHeaderKey(l.Line, key)
		}
		return h
	}

	blob, ok := p.HeaderBlob()
	if !ok {
		return h
	}

	for _, line := range strings.Split(blob, "\n") {
		m := headerLine.FindStringSubmatch(strings.TrimSuffix(line, "\r"))
		if m == nil {
			continue
		}
		h[strings.ToLower(m[1])] = m[2]
	}

	return h
}

// stripHeaderKey removes a leading "Key:" (any case) and the whitespace after it from line
func stripHeaderKey(line, key string) string {
	if len(line) > len(key) && strings.EqualFold(line[:len(key)], key) && line[len(key)] == ':' {
		line = line[len(key)+1:]
	}
	return strings.TrimSpace(line)
}
