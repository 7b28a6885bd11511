package main

import (
	"errors"
	"flag"
	"net/http"
	"time"

	"github.com/getmynews/getmynews/email/mailgunmail"
	"github.com/getmynews/getmynews/feed"
	"github.com/getmynews/getmynews/server"
	"github.com/haydenwoodhead/gateway"
	"github.com/joho/godotenv"
	log "github.com/sirupsen/logrus"
)

var pruneRoutes bool

func init() {
	flag.BoolVar(&pruneRoutes, "prune-routes", false, "when true will not run the server only delete mailgun routes of deleted feeds")
	flag.Parse()
}

func main() {
	_ = godotenv.Load()
	setupLogging()

	cfg := mustParseServerConfig()

	s, err := server.New(cfg, mustParseStore(), mustParseEmailProvider(cfg.URL))
	if err != nil {
		log.WithError(err).Fatal("Failed to setup new server")
	}

	if mg, ok := s.EmailProvider().(*mailgunmail.MailgunMail); ok {
		// if we are just pruning routes then do so and return. Otherwise prune every hour in the background
		if pruneRoutes {
			runPrune(mg, s.Feeds())
			return
		}

		if !cfg.UsingLambda {
			go func() {
				for {
					runPrune(mg, s.Feeds())
					time.Sleep(1 * time.Hour)
				}
			}()
		}
	}

	if cfg.UsingLambda {
		log.Fatal(gateway.ListenAndServe("", s.Router))
	} else {
		addr := parseStringVarWithDefault("LISTEN_ADDR", ":8080")
		log.WithField("addr", addr).Info("Listening")
		log.Fatal(http.ListenAndServe(addr, s.Router))
	}
}

func runPrune(mg *mailgunmail.MailgunMail, feeds *feed.Service) {
	n, err := mg.PruneRoutes(func(feedID string) (bool, error) {
		_, err := feeds.GetFeed(feedID)
		if errors.Is(err, feed.ErrFeedNotFound) {
			return false, nil
		}
		return err == nil, err
	})
	if err != nil {
		log.WithError(err).Error("Failed to prune mailgun routes")
		return
	}

	log.WithField("deleted", n).Info("Route prune finished")
}
