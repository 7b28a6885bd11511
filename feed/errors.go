package feed

import (
	"errors"
	"net/http"

	"github.com/getmynews/getmynews/email"
)

var (
	// ErrInvalidRecipient is returned when the recipient isn't a newsletter-<token>@ address
	ErrInvalidRecipient = errors.New("invalid email address format")
	// ErrFeedNotFound is returned when the feed doesn't exist
	ErrFeedNotFound = errors.New("feed does not exist")
	// ErrEmailNotFound is returned when an email doesn't exist or belongs to another feed
	ErrEmailNotFound = errors.New("email does not exist")
	// ErrInvalidFeed is returned when feed input fails validation
	ErrInvalidFeed = errors.New("invalid feed")
	// ErrMissingPayload is returned when ingestion is handed no payload at all
	ErrMissingPayload = email.ErrMissingPayload
)

// StatusCode maps an error returned from this package to the http status class callers should report
func StatusCode(err error) int {
	switch {
	case err == nil:
		return http.StatusOK
	case errors.Is(err, ErrInvalidRecipient), errors.Is(err, ErrInvalidFeed):
		return http.StatusBadRequest
	case errors.Is(err, ErrFeedNotFound), errors.Is(err, ErrEmailNotFound):
		return http.StatusNotFound
	default:
		return http.StatusInternalServerError
	}
}

// Message is the plain text reply an inbound webhook gets for the outcome of Ingest
func Message(err error) string {
	switch StatusCode(err) {
	case http.StatusOK:
		return "Email processed successfully"
	case http.StatusBadRequest:
		return "Invalid email address format"
	case http.StatusNotFound:
		return "Feed does not exist"
	default:
		return "Error processing email"
	}
}
