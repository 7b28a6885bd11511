package main

import (
	"os"
	"strconv"
	"strings"

	"github.com/getmynews/getmynews/data/dynamodb"
	"github.com/getmynews/getmynews/data/inmemory"
	"github.com/getmynews/getmynews/data/postgresql"
	"github.com/getmynews/getmynews/data/sqlite3"
	"github.com/getmynews/getmynews/email/forwardemail"
	"github.com/getmynews/getmynews/email/mailgunmail"
	"github.com/getmynews/getmynews/feed"
	"github.com/getmynews/getmynews/server"
	log "github.com/sirupsen/logrus"
)

const inMemory = "memory"
const sqlite = "sqlite3"
const postgreSQL = "postgres"
const dynamoDB = "dynamo"

const forwardEmail = "forwardemail"
const mailgunProvider = "mailgun"

func setupLogging() {
	if strings.EqualFold(parseStringVar("LOG_FORMAT"), "json") {
		log.SetFormatter(&log.JSONFormatter{})
	} else {
		log.SetFormatter(&log.TextFormatter{FullTimestamp: true})
	}
	log.SetOutput(os.Stdout)

	level, err := log.ParseLevel(parseStringVarWithDefault("LOG_LEVEL", "info"))
	if err != nil {
		log.WithError(err).Warn("Unknown LOG_LEVEL, using info")
		level = log.InfoLevel
	}
	log.SetLevel(level)
}

func mustParseServerConfig() server.Config {
	return server.Config{
		Key:            mustParseStringVar("KEY"),
		URL:            mustParseStringVar("WEBSITE_URL"),
		Domain:         mustParseStringVar("DOMAIN"),
		AdminPassword:  parseStringVar("ADMIN_PASSWORD"),
		Developing:     parseBoolVarWithDefault("DEVELOPING", false),
		UsingLambda:    parseBoolVarWithDefault("LAMBDA", false),
		RestoreRealIP:  parseBoolVarWithDefault("RESTORE_REAL_IP", false),
		AllowedOrigins: parseSliceVar("ALLOWED_ORIGINS"),
	}
}

func mustParseStore() feed.Store {
	dbType := parseStringVarWithDefault("DB_TYPE", inMemory)

	switch dbType {
	case inMemory:
		return inmemory.GetInMemoryDB()
	case sqlite:
		return sqlite3.GetSQLite3DB(mustParseStringVar("DATABASE_URL"))
	case postgreSQL:
		return postgresql.GetPostgreSQLDB(mustParseStringVar("DATABASE_URL"))
	case dynamoDB:
		return dynamodb.GetNewDynamoDB(mustParseStringVar("DYNAMO_TABLE"))
	}

	log.Fatalf("Unknown DB_TYPE %q", dbType)
	return nil
}

func mustParseEmailProvider(websiteURL string) server.EmailProvider {
	provider := parseStringVarWithDefault("EMAIL_PROVIDER", forwardEmail)

	switch provider {
	case forwardEmail:
		return forwardemail.NewForwardEmailProvider(parseStringVar("WEBHOOK_KEY"))
	case mailgunProvider:
		return mailgunmail.NewMailgunProvider(mustParseStringVar("MG_DOMAIN"), mustParseStringVar("MG_KEY"), websiteURL)
	}

	log.Fatalf("Unknown EMAIL_PROVIDER %q", provider)
	return nil
}

func parseStringVar(key string) string {
	return os.Getenv(key)
}

func parseBoolVar(key string) (bool, error) {
	return strconv.ParseBool(parseStringVar(key))
}

func mustParseStringVar(key string) (v string) {
	v = parseStringVar(key)
	if v == "" {
		log.Fatalf("Env var %v cannot be empty", key)
	}

	return
}

func parseSliceVar(key string) (v []string) {
	val := parseStringVar(key)
	if val == "" {
		return nil
	}

	for _, s := range strings.Split(val, ",") {
		if s = strings.TrimSpace(s); s != "" {
			v = append(v, s)
		}
	}

	return
}

func parseBoolVarWithDefault(key string, def bool) bool {
	v, err := parseBoolVar(key)
	if err != nil {
		return def
	}
	return v
}

func parseStringVarWithDefault(key, def string) string {
	v := parseStringVar(key)
	if v == "" {
		return def
	}
	return v
}
