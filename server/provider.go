package server

import (
	"github.com/getmynews/getmynews/feed"
	"github.com/gorilla/mux"
)

// EmailProvider represents a mail provider that delivers newsletters into feeds. Start registers the
// provider's inbound webhook on r and hands every payload it receives to in.
type EmailProvider interface {
	Start(r *mux.Router, in feed.Ingester) error
	Stop() error
	RegisterRoute(f feed.Feed) (string, error)
	DeregisterRoute(routeID string) error
}
