package server

import (
	"encoding/json"
	"net/http"

	"github.com/getmynews/getmynews/feed"
	"github.com/getmynews/getmynews/feedid"
	"github.com/gorilla/mux"
	log "github.com/sirupsen/logrus"
)

// maxBodySize limits admin request bodies
const maxBodySize = 1 << 20

// Response is the root response for every api call
type Response struct {
	Success bool        `json:"success"`
	Errors  interface{} `json:"errors"`
	Result  interface{} `json:"result"`
	Meta    Meta        `json:"meta"`
}

// Errors is our error struct for if something goes wrong
type Errors struct {
	Code int    `json:"code"`
	Msg  string `json:"msg"`
}

// Meta contains our version number and by
type Meta struct {
	Version string `json:"version"`
	By      string `json:"by"`
}

// GetMeta returns meta info for json api responses
func GetMeta() Meta {
	return Meta{
		Version: version,
		By:      "getmynews",
	}
}

// NewTokenJSON issues an admin token so clients don't have to keep sending the password
func (s *Server) NewTokenJSON(w http.ResponseWriter, r *http.Request) {
	res := struct {
		Token     string `json:"token"`
		ExpiresIn int64  `json:"expires_in"`
	}{
		Token:     s.tg.NewToken(adminUser),
		ExpiresIn: int64(s.tg.MaxAge().Seconds()),
	}

	returnJSON(w, r, http.StatusOK, Response{
		Success: true,
		Result:  res,
		Meta:    GetMeta(),
	})
}

// ListFeedsJSON returns every feed
func (s *Server) ListFeedsJSON(w http.ResponseWriter, r *http.Request) {
	feeds, err := s.feeds.ListFeeds()
	if err != nil {
		returnServiceError(w, r, err, "Failed to list feeds")
		return
	}

	returnJSON(w, r, http.StatusOK, Response{
		Success: true,
		Result:  feeds,
		Meta:    GetMeta(),
	})
}

// CreateFeedJSON creates a feed and registers its address with the email provider
func (s *Server) CreateFeedJSON(w http.ResponseWriter, r *http.Request) {
	var in feed.FeedInput
	if !decodeJSON(w, r, &in) {
		return
	}

	f, err := s.feeds.CreateFeed(in)
	if err != nil {
		returnServiceError(w, r, err, "Failed to create feed")
		return
	}

	routeID, err := s.email.RegisterRoute(f)
	if err != nil {
		log.WithError(err).WithField("feed_id", f.ID).Error("CreateFeedJSON: failed to register route")

		_, delErr := s.feeds.DeleteFeed(f.ID)
		if delErr != nil {
			log.WithError(delErr).WithField("feed_id", f.ID).Error("CreateFeedJSON: failed to remove feed without route")
		}

		returnJSONError(w, r, http.StatusInternalServerError, "Failed to register email route")
		return
	}

	if routeID != "" {
		err = s.feeds.SetRouteID(f.ID, routeID)
		if err != nil {
			log.WithError(err).WithField("feed_id", f.ID).Error("CreateFeedJSON: failed to save route id")
		} else {
			f.RouteID = routeID
		}
	}

	returnJSON(w, r, http.StatusCreated, Response{
		Success: true,
		Result:  f,
		Meta:    GetMeta(),
	})
}

// GetFeedJSON returns a single feed
func (s *Server) GetFeedJSON(w http.ResponseWriter, r *http.Request) {
	id, ok := feedIDVar(w, r)
	if !ok {
		return
	}

	f, err := s.feeds.GetFeed(id)
	if err != nil {
		returnServiceError(w, r, err, "Failed to get feed")
		return
	}

	returnJSON(w, r, http.StatusOK, Response{
		Success: true,
		Result:  f,
		Meta:    GetMeta(),
	})
}

// UpdateFeedJSON replaces the editable parts of a feed's configuration
func (s *Server) UpdateFeedJSON(w http.ResponseWriter, r *http.Request) {
	id, ok := feedIDVar(w, r)
	if !ok {
		return
	}

	var in feed.FeedInput
	if !decodeJSON(w, r, &in) {
		return
	}

	f, err := s.feeds.UpdateFeed(id, in)
	if err != nil {
		returnServiceError(w, r, err, "Failed to update feed")
		return
	}

	returnJSON(w, r, http.StatusOK, Response{
		Success: true,
		Result:  f,
		Meta:    GetMeta(),
	})
}

// DeleteFeedJSON deletes a feed, its emails and its provider route
func (s *Server) DeleteFeedJSON(w http.ResponseWriter, r *http.Request) {
	id, ok := feedIDVar(w, r)
	if !ok {
		return
	}

	f, err := s.feeds.DeleteFeed(id)
	if err != nil {
		returnServiceError(w, r, err, "Failed to delete feed")
		return
	}

	if f.RouteID != "" {
		err = s.email.DeregisterRoute(f.RouteID)
		if err != nil {
			log.WithError(err).WithFields(log.Fields{
				"feed_id":  f.ID,
				"route_id": f.RouteID,
			}).Warn("DeleteFeedJSON: failed to deregister route")
		}
	}

	returnJSON(w, r, http.StatusOK, Response{
		Success: true,
		Result:  f,
		Meta:    GetMeta(),
	})
}

// ListEmailsJSON returns the index of a feed, newest first
func (s *Server) ListEmailsJSON(w http.ResponseWriter, r *http.Request) {
	id, ok := feedIDVar(w, r)
	if !ok {
		return
	}

	refs, err := s.feeds.ListEmails(id)
	if err != nil {
		returnServiceError(w, r, err, "Failed to list emails")
		return
	}

	returnJSON(w, r, http.StatusOK, Response{
		Success: true,
		Result:  refs,
		Meta:    GetMeta(),
	})
}

// GetEmailJSON returns a single stored email
func (s *Server) GetEmailJSON(w http.ResponseWriter, r *http.Request) {
	rec, err := s.feeds.GetEmail(mux.Vars(r)["emailKey"])
	if err != nil {
		returnServiceError(w, r, err, "Failed to get email")
		return
	}

	returnJSON(w, r, http.StatusOK, Response{
		Success: true,
		Result:  rec,
		Meta:    GetMeta(),
	})
}

// DeleteEmailJSON removes an email from a feed
func (s *Server) DeleteEmailJSON(w http.ResponseWriter, r *http.Request) {
	id, ok := feedIDVar(w, r)
	if !ok {
		return
	}

	vars := mux.Vars(r)
	err := s.feeds.DeleteEmail(id, vars["emailKey"])
	if err != nil {
		returnServiceError(w, r, err, "Failed to delete email")
		return
	}

	returnJSON(w, r, http.StatusOK, Response{
		Success: true,
		Result:  vars["emailKey"],
		Meta:    GetMeta(),
	})
}

// feedIDVar returns the {feedID} path variable. Ids that could never name a feed get a 400 before any
// storage access.
func feedIDVar(w http.ResponseWriter, r *http.Request) (string, bool) {
	id := mux.Vars(r)["feedID"]
	if err := feedid.Verify(id); err != nil {
		returnJSONError(w, r, http.StatusBadRequest, "Invalid feed id")
		return "", false
	}
	return id, true
}

func decodeJSON(w http.ResponseWriter, r *http.Request, v interface{}) bool {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodySize))
	dec.DisallowUnknownFields()

	err := dec.Decode(v)
	if err != nil {
		returnJSONError(w, r, http.StatusBadRequest, "Bad request: "+err.Error())
		return false
	}
	return true
}

// returnServiceError reports err with the status its kind maps to. Client errors carry their own message.
func returnServiceError(w http.ResponseWriter, r *http.Request, err error, msg string) {
	status := feed.StatusCode(err)
	if status == http.StatusInternalServerError {
		log.WithError(err).WithField("path", r.URL.Path).Error(msg)
		returnJSONError(w, r, status, msg)
		return
	}

	returnJSONError(w, r, status, err.Error())
}

// returnJSONError returns json with custom error message
func returnJSONError(w http.ResponseWriter, r *http.Request, status int, msg string) {
	returnJSON(w, r, status, Response{
		Success: false,
		Result:  nil,
		Meta:    GetMeta(),
		Errors: Errors{
			Code: status,
			Msg:  msg,
		},
	})
}

func returnJSON(w http.ResponseWriter, r *http.Request, status int, resp interface{}) {
	w.WriteHeader(status)
	encoder := json.NewEncoder(w)
	err := encoder.Encode(resp)
	if err != nil {
		log.WithError(err).Error("returnJSON: failed to write response")
		return
	}
}
