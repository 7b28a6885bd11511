package feed

import (
	"encoding/base64"
	"encoding/xml"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/getmynews/getmynews/email"
	"github.com/getmynews/getmynews/metrics"
	"github.com/gorilla/feeds"
)

// Generator is written into every rendered channel
const Generator = "Email-to-RSS"

const excerptLength = 280

const contentNamespace = "http://purl.org/rss/1.0/modules/content/"

// rssChannel mirrors feeds.RssFeed but leaves out description when it's empty
type rssChannel struct {
	XMLName        xml.Name         `xml:"channel"`
	Title          string           `xml:"title"`
	Link           string           `xml:"link"`
	Description    string           `xml:"description,omitempty"`
	Language       string           `xml:"language,omitempty"`
	Copyright      string           `xml:"copyright,omitempty"`
	ManagingEditor string           `xml:"managingEditor,omitempty"`
	LastBuildDate  string           `xml:"lastBuildDate,omitempty"`
	Generator      string           `xml:"generator,omitempty"`
	Items          []*feeds.RssItem `xml:"item"`
}

type rssDocument struct {
	XMLName          xml.Name `xml:"rss"`
	Version          string   `xml:"version,attr"`
	ContentNamespace string   `xml:"xmlns:content,attr"`
	Channel          *rssChannel
}

// FeedXml implements feeds.XmlFeed
func (c *rssChannel) FeedXml() interface{} {
	return &rssDocument{
		Version:          "2.0",
		ContentNamespace: contentNamespace,
		Channel:          c,
	}
}

// ItemID is the stable identifier of a rendered email: its received time and the start of its
// base64 encoded subject.
func ItemID(r email.Record) string {
	enc := base64.StdEncoding.EncodeToString([]byte(r.Subject))
	if len(enc) > 10 {
		enc = enc[:10]
	}
	return fmt.Sprintf("%d-%s", r.ReceivedAt, enc)
}

// Render produces an RSS 2.0 document for cfg with one item per record, in the order given.
// Only lastBuildDate and the copyright year depend on now.
func Render(cfg Config, records []email.Record, baseURL string, now time.Time) (string, error) {
	channel := &rssChannel{
		Title:         cfg.Title,
		Link:          cfg.SiteURL,
		Description:   cfg.Description,
		Language:      cfg.Language,
		Copyright:     fmt.Sprintf("Copyright © %d %s", now.Year(), cfg.Title),
		LastBuildDate: now.UTC().Format(time.RFC1123Z),
		Generator:     Generator,
		Items:         make([]*feeds.RssItem, 0, len(records)),
	}

	if cfg.Author != "" {
		channel.ManagingEditor = fmt.Sprintf("noreply@%s (%s)", host(cfg.SiteURL), cfg.Author)
	}

	for _, r := range records {
		id := ItemID(r)
		content := xmlText(r.Content)

		item := &feeds.RssItem{
			Title:       r.Subject,
			Link:        baseURL + "/emails/" + id,
			Description: email.Excerpt(content, excerptLength),
			Author:      r.Sender,
			Guid:        &feeds.RssGuid{Id: id},
			PubDate:     time.UnixMilli(r.ReceivedAt).UTC().Format(time.RFC1123Z),
		}

		if content != "" {
			item.Content = &feeds.RssContent{Content: content}
		}

		channel.Items = append(channel.Items, item)
	}

	out, err := feeds.ToXML(channel)
	if err != nil {
		return "", fmt.Errorf("failed to render feed: %w", err)
	}

	return out, nil
}

// xmlText drops everything outside the XML 1.0 Char production. CDATA sections are written unescaped
// so one stray control character would make the whole document ill-formed.
func xmlText(s string) string {
	return strings.Map(func(r rune) rune {
		switch {
		case r == '\t', r == '\n', r == '\r':
			return r
		case r >= 0x20 && r <= 0xD7FF, r >= 0xE000 && r <= 0xFFFD, r >= 0x10000 && r <= 0x10FFFF:
			return r
		}
		return -1
	}, strings.ToValidUTF8(s, ""))
}

func host(siteURL string) string {
	u, err := url.Parse(siteURL)
	if err != nil || u.Hostname() == "" {
		return "localhost"
	}
	return u.Hostname()
}

// RenderFeed renders the newest MaxRenderedEmails emails of a feed. A feed without an index doesn't
// exist. A feed with an index but no config is rendered with defaults, and references whose email has
// gone missing are skipped.
func (s *Service) RenderFeed(feedID string) (string, error) {
	refs, found, err := s.readTop(feedID, MaxRenderedEmails)
	if err != nil {
		return "", err
	}
	if !found {
		return "", ErrFeedNotFound
	}

	var cfg Config
	found, err = getJSON(s.store, configKey(feedID), &cfg)
	if err != nil {
		return "", err
	}
	if !found {
		cfg = s.defaultConfig(feedID)
	}

	records := make([]email.Record, 0, len(refs))
	for _, ref := range refs {
		var rec email.Record
		found, err := getJSON(s.store, ref.Key, &rec)
		if err != nil {
			return "", err
		}
		if !found {
			continue
		}
		records = append(records, rec)
	}

	out, err := Render(cfg, records, s.baseURL, s.now())
	if err != nil {
		return "", err
	}

	metrics.FeedsRendered.Inc()
	return out, nil
}

func (s *Service) defaultConfig(feedID string) Config {
	return Config{
		Title:       "Newsletter Feed " + feedID,
		Description: "Converted email newsletter",
		Language:    "en",
		SiteURL:     s.feedURL(feedID),
		FeedURL:     s.feedURL(feedID),
		CreatedAt:   s.now().UnixMilli(),
	}
}
