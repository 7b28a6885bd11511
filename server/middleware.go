package server

import (
	"crypto/subtle"
	"fmt"
	"net/http"
	"strings"

	"github.com/getmynews/getmynews/token"
	"github.com/justinas/alice"
	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
)

// adminUser is the basic auth username for the admin api
const adminUser = "admin"

// tokenHeader carries a token issued by /api/v1/token
const tokenHeader = "X-GetMyNews-Key"

// JSONContentType sets content type of request to json
func JSONContentType(h http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		h.ServeHTTP(w, r)
	})
}

// CheckAdmin allows the request through with either the admin password over basic auth or a token
// issued by NewTokenJSON
func (s *Server) CheckAdmin(h http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if s.cfg.AdminPassword == "" {
			returnJSONError(w, r, http.StatusForbidden, "Forbidden: the admin api is disabled")
			return
		}

		if k := r.Header.Get(tokenHeader); k != "" {
			subject, err := s.tg.VerifyToken(k)

			switch errors.Cause(err) {
			case nil:
			case token.ErrInvalidToken:
				returnJSONError(w, r, http.StatusUnauthorized, "Unauthorized: given auth key invalid")
				return
			case token.ErrTokenExpired:
				returnJSONError(w, r, http.StatusForbidden, "Forbidden: your token has expired")
				return
			default:
				log.WithError(err).Error("CheckAdmin: failed to verify token")
				returnJSONError(w, r, http.StatusInternalServerError, "Something went wrong")
				return
			}

			if subject != adminUser {
				returnJSONError(w, r, http.StatusForbidden, "Forbidden: you do not have permission to access this resource")
				return
			}

			h.ServeHTTP(w, r)
			return
		}

		user, pass, ok := r.BasicAuth()
		if !ok || !s.isAdmin(user, pass) {
			w.Header().Set("WWW-Authenticate", `Basic realm="getmynews"`)
			returnJSONError(w, r, http.StatusUnauthorized, "Unauthorized: invalid credentials")
			return
		}

		h.ServeHTTP(w, r)
	})
}

func (s *Server) isAdmin(user, pass string) bool {
	userOK := subtle.ConstantTimeCompare([]byte(user), []byte(adminUser)) == 1
	passOK := subtle.ConstantTimeCompare([]byte(pass), []byte(s.cfg.AdminPassword)) == 1
	return userOK && passOK
}

// CacheControl sets the Cache-Control header
func CacheControl(sec int) alice.Constructor {
	return func(h http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Cache-Control", fmt.Sprintf("max-age=%v", sec))

			h.ServeHTTP(w, r)
		})
	}
}

// SecurityHeaders sets headers to lock down api responses
func (s *Server) SecurityHeaders(h http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		// check to see if we are developing before forcing strict transport
		if !s.cfg.Developing {
			w.Header().Set("Strict-Transport-Security", "max-age=31536000; includeSubDomains")
		}

		w.Header().Set("Content-Security-Policy", "default-src 'none'; frame-ancestors 'none'")
		w.Header().Set("X-Frame-Options", "DENY")
		w.Header().Set("X-Content-Type-Options", "nosniff")
		w.Header().Set("Referrer-Policy", "no-referrer")

		h.ServeHTTP(w, r)
	})
}

// SetVersionHeader adds a header with the current version
func SetVersionHeader(h http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-GetMyNews-Version", version)

		h.ServeHTTP(w, r)
	})
}

// RestoreRealIP uses the real ip of the request from the CF-Connecting-IP header
func RestoreRealIP(h http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ip := r.Header.Get("CF-Connecting-IP")
		if ip != "" {
			r.RemoteAddr = ip
		}
		h.ServeHTTP(w, r)
	})
}

// CORS sets the access control headers for requests from an allowed origin
func (s *Server) CORS(h http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		origin := r.Header.Get("Origin")
		if allowed := s.allowedOrigin(origin); allowed != "" {
			w.Header().Set("Access-Control-Allow-Origin", allowed)
			w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
			w.Header().Set("Access-Control-Allow-Headers", "Authorization, Content-Type, "+tokenHeader)
			w.Header().Set("Access-Control-Max-Age", "86400")
			w.Header().Add("Vary", "Origin")
		}
		h.ServeHTTP(w, r)
	})
}

func (s *Server) allowedOrigin(origin string) string {
	if origin == "" {
		return ""
	}
	for _, o := range s.cfg.AllowedOrigins {
		if o == "*" {
			return "*"
		}
		if strings.EqualFold(o, origin) {
			return origin
		}
	}
	return ""
}
