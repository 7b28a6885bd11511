package server

import (
	"net/http"

	"github.com/getmynews/getmynews/feed"
	"github.com/getmynews/getmynews/feedid"
	"github.com/gorilla/mux"
	log "github.com/sirupsen/logrus"
)

// RSS renders the feed named in the url
func (s *Server) RSS(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["feedID"]
	if err := feedid.Verify(id); err != nil {
		w.Header().Set("Cache-Control", "no-store")
		http.Error(w, "Invalid feed id", http.StatusBadRequest)
		return
	}

	doc, err := s.feeds.RenderFeed(id)
	if err != nil {
		w.Header().Set("Cache-Control", "no-store")

		status := feed.StatusCode(err)
		if status == http.StatusNotFound {
			http.Error(w, "Feed not found", status)
			return
		}

		log.WithError(err).WithField("feed_id", id).Error("RSS: failed to render feed")
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/rss+xml; charset=utf-8")
	_, err = w.Write([]byte(doc))
	if err != nil {
		log.WithError(err).Warn("RSS: failed to write response")
	}
}
