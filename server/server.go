package server

import (
	"fmt"
	"net/http"
	"time"

	"github.com/getmynews/getmynews/feed"
	"github.com/getmynews/getmynews/feedid"
	"github.com/getmynews/getmynews/token"
	"github.com/gorilla/mux"
	"github.com/justinas/alice"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	log "github.com/sirupsen/logrus"
)

// version number - this is overridden at build time to inject the commit hash
var version = "dev"

// rssMaxAge is how long readers may cache a rendered feed
const rssMaxAge = 1800

// Server bundles several data types together for dependency injection into http handlers
type Server struct {
	feeds  *feed.Service
	email  EmailProvider
	db     feed.Store
	Router *mux.Router
	tg     *token.Generator

	cfg Config
}

// Config contains key configuration parameters to be passed to New()
type Config struct {
	Key            string
	URL            string
	Domain         string
	AdminPassword  string
	Developing     bool
	UsingLambda    bool
	RestoreRealIP  bool
	AllowedOrigins []string
}

// New returns a server with the given settings. The store is started and the email provider is given
// the router to register its inbound webhook on.
func New(cfg Config, db feed.Store, email EmailProvider) (*Server, error) {
	s := Server{
		tg:    token.NewGenerator(cfg.Key, 24*time.Hour),
		cfg:   cfg,
		db:    db,
		email: email,
	}

	s.Router = mux.NewRouter()
	s.Router.StrictSlash(true) // means router will match both "/path" and "/path/"

	err := s.db.Start()
	if err != nil {
		return nil, fmt.Errorf("failed to start database: %w", err)
	}

	s.feeds = feed.NewService(db, feedid.New(feedid.DefaultLength), cfg.URL, cfg.Domain)

	err = s.email.Start(s.Router, s.feeds)
	if err != nil {
		return nil, fmt.Errorf("failed to start email provider: %w", err)
	}

	if cfg.RestoreRealIP {
		s.Router.Use(RestoreRealIP)
	}
	s.Router.Use(s.CORS)

	s.Router.Handle("/rss/{feedID}",
		alice.New(
			SetVersionHeader,
			CacheControl(rssMaxAge),
		).ThenFunc(s.RSS),
	).Methods(http.MethodGet)

	// JSON API
	api := alice.New(JSONContentType, SetVersionHeader, s.SecurityHeaders, s.CheckAdmin)

	s.Router.Handle("/api/v1/token", api.ThenFunc(s.NewTokenJSON)).Methods(http.MethodPost)
	s.Router.Handle("/api/v1/feeds", api.ThenFunc(s.ListFeedsJSON)).Methods(http.MethodGet)
	s.Router.Handle("/api/v1/feeds", api.ThenFunc(s.CreateFeedJSON)).Methods(http.MethodPost)
	s.Router.Handle("/api/v1/feeds/{feedID}", api.ThenFunc(s.GetFeedJSON)).Methods(http.MethodGet)
	s.Router.Handle("/api/v1/feeds/{feedID}", api.ThenFunc(s.UpdateFeedJSON)).Methods(http.MethodPut)
	s.Router.Handle("/api/v1/feeds/{feedID}", api.ThenFunc(s.DeleteFeedJSON)).Methods(http.MethodDelete)
	s.Router.Handle("/api/v1/feeds/{feedID}/emails", api.ThenFunc(s.ListEmailsJSON)).Methods(http.MethodGet)
	s.Router.Handle("/api/v1/feeds/{feedID}/emails/{emailKey}", api.ThenFunc(s.DeleteEmailJSON)).Methods(http.MethodDelete)
	s.Router.Handle("/api/v1/emails/{emailKey}", api.ThenFunc(s.GetEmailJSON)).Methods(http.MethodGet)

	// answers every preflight, CORS headers are already set by the router middleware
	s.Router.Methods(http.MethodOptions).HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	})

	s.Router.HandleFunc("/ping", s.Ping)
	s.Router.Handle("/metrics", promhttp.Handler()).Methods(http.MethodGet)

	return &s, nil
}

// Feeds returns the feed service backing this server
func (s *Server) Feeds() *feed.Service {
	return s.feeds
}

// Stop shuts down the email provider
func (s *Server) Stop() error {
	return s.email.Stop()
}

// Ping returns PONG when called
func (s *Server) Ping(w http.ResponseWriter, r *http.Request) {
	_, err := w.Write([]byte("PONG"))
	if err != nil {
		log.WithError(err).Warn("Ping: failed to write out response")
	}
}

// EmailProvider returns the provider delivering mail into this server's feeds
func (s *Server) EmailProvider() EmailProvider {
	return s.email
}
