package feed

import (
	"encoding/xml"
	"fmt"
	"io"
	"strings"
	"testing"

	"github.com/getmynews/getmynews/email"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testRecords() []email.Record {
	return []email.Record{
		{
			Subject:    "Issue 2",
			Sender:     "News <news@example.org>",
			Content:    "<p>second</p>",
			ReceivedAt: 1704153600000,
		},
		{
			Subject:    "Issue 1",
			Sender:     "News <news@example.org>",
			Content:    "<p>first</p>",
			ReceivedAt: 1704067200000,
		},
	}
}

func testConfig() Config {
	return Config{
		Title:    "Tech Weekly",
		Language: "en",
		SiteURL:  "https://news.example.com/rss/abc12",
		FeedURL:  "https://news.example.com/rss/abc12",
	}
}

func TestItemID(t *testing.T) {
	rec := email.Record{Subject: "Hi There", ReceivedAt: 1704067200000}

	assert.Equal(t, "1704067200000-SGkgVGhlcm", ItemID(rec))
	assert.Equal(t, ItemID(rec), ItemID(rec))

	short := email.Record{Subject: "Hi", ReceivedAt: 5}
	assert.Equal(t, "5-SGk=", ItemID(short))

	assert.NotEqual(t, ItemID(rec), ItemID(email.Record{Subject: "Hi There", ReceivedAt: 1704067200001}))
}

func TestRender(t *testing.T) {
	out, err := Render(testConfig(), testRecords(), "https://news.example.com", testNow)
	require.NoError(t, err)

	assert.True(t, strings.HasPrefix(out, `<?xml version="1.0" encoding="UTF-8"?>`))
	assert.Contains(t, out, `<rss version="2.0" xmlns:content="http://purl.org/rss/1.0/modules/content/">`)
	assert.Contains(t, out, "<title>Tech Weekly</title>")
	assert.Contains(t, out, "<link>https://news.example.com/rss/abc12</link>")
	assert.Contains(t, out, "<language>en</language>")
	assert.Contains(t, out, "<generator>Email-to-RSS</generator>")
	assert.Contains(t, out, "<copyright>Copyright © 2024 Tech Weekly</copyright>")
	assert.Contains(t, out, "<lastBuildDate>Sat, 01 Jun 2024 12:00:00 +0000</lastBuildDate>")

	assert.Contains(t, out, "<guid>1704067200000-SXNzdWUgMQ</guid>")
	assert.Contains(t, out, "<link>https://news.example.com/emails/1704067200000-SXNzdWUgMQ</link>")
	assert.Contains(t, out, "<pubDate>Mon, 01 Jan 2024 00:00:00 +0000</pubDate>")
	assert.Contains(t, out, "<author>News &lt;news@example.org&gt;</author>")
	assert.Contains(t, out, "<description>first</description>")
	assert.Contains(t, out, "<content:encoded><![CDATA[<p>first</p>]]></content:encoded>")

	// missing optional fields are left out, not rendered empty
	assert.NotContains(t, out, "<description></description>")
	assert.NotContains(t, out, "managingEditor")
}

func TestRender_Order(t *testing.T) {
	out, err := Render(testConfig(), testRecords(), "https://news.example.com", testNow)
	require.NoError(t, err)

	second := strings.Index(out, "<title>Issue 2</title>")
	first := strings.Index(out, "<title>Issue 1</title>")

	require.NotEqual(t, -1, second)
	require.NotEqual(t, -1, first)
	assert.Less(t, second, first)
}

func TestRender_Deterministic(t *testing.T) {
	a, err := Render(testConfig(), testRecords(), "https://news.example.com", testNow)
	require.NoError(t, err)

	b, err := Render(testConfig(), testRecords(), "https://news.example.com", testNow)
	require.NoError(t, err)

	assert.Equal(t, a, b)
}

func TestRender_OptionalFields(t *testing.T) {
	cfg := testConfig()
	cfg.Description = "All the tech news"
	cfg.Author = "Jane"

	out, err := Render(cfg, nil, "https://news.example.com", testNow)
	require.NoError(t, err)

	assert.Contains(t, out, "<description>All the tech news</description>")
	assert.Contains(t, out, "<managingEditor>noreply@news.example.com (Jane)</managingEditor>")
	assert.NotContains(t, out, "<item>")
}

func TestRender_EmptyContent(t *testing.T) {
	recs := []email.Record{{Subject: "Blank", Sender: email.UnknownSender, ReceivedAt: 1}}

	out, err := Render(testConfig(), recs, "https://news.example.com", testNow)
	require.NoError(t, err)

	assert.NotContains(t, out, "content:encoded>")
	assert.Contains(t, out, "<title>Blank</title>")
}

func TestRender_InvalidXMLChars(t *testing.T) {
	recs := []email.Record{
		{
			Subject:    "Bad\x01 bytes",
			Sender:     "News <news@example.org>",
			Content:    "<p>a\x01b\x00c\xffd\tE</p>",
			ReceivedAt: 1704067200000,
		},
	}

	out, err := Render(testConfig(), recs, "https://news.example.com", testNow)
	require.NoError(t, err)

	dec := xml.NewDecoder(strings.NewReader(out))
	for {
		_, err := dec.Token()
		if err == io.EOF {
			break
		}
		require.NoError(t, err)
	}

	assert.Contains(t, out, "<content:encoded><![CDATA[<p>abcd\tE</p>]]></content:encoded>")
	assert.Contains(t, out, "<description>abcd E</description>")
}

func TestRender_FarFutureDate(t *testing.T) {
	recs := []email.Record{
		{Subject: "Later", Content: "x", ReceivedAt: 10413792000000},
	}

	out, err := Render(testConfig(), recs, "https://news.example.com", testNow)
	require.NoError(t, err)

	assert.Contains(t, out, "<pubDate>Mon, 01 Jan 2300 00:00:00 +0000</pubDate>")
}

func TestService_RenderFeed(t *testing.T) {
	s := newTestService(newMemStore())
	mustCreateFeed(t, s, "Tech Weekly")

	for i := 0; i < MaxRenderedEmails+5; i++ {
		p := hiTherePayload()
		p.Subject = fmt.Sprintf("Issue %02d", i)
		_, err := s.Ingest(p)
		require.NoError(t, err)
	}

	out, err := s.RenderFeed("abc12")
	require.NoError(t, err)

	assert.Equal(t, MaxRenderedEmails, strings.Count(out, "<item>"))
	assert.Contains(t, out, "<title>Issue 24</title>")
	assert.Contains(t, out, "<title>Issue 05</title>")
	assert.NotContains(t, out, "<title>Issue 04</title>")
	assert.Contains(t, out, "<link>https://news.example.com/rss/abc12</link>")
}

func TestService_RenderFeed_NotFound(t *testing.T) {
	s := newTestService(newMemStore())

	_, err := s.RenderFeed("nope1")

	assert.Equal(t, ErrFeedNotFound, err)
	assert.Equal(t, 404, StatusCode(err))
}

func TestService_RenderFeed_Fallbacks(t *testing.T) {
	store := newMemStore()
	s := newTestService(store)
	mustCreateFeed(t, s, "Tech Weekly")

	kept, err := s.Ingest(hiTherePayload())
	require.NoError(t, err)

	p := hiTherePayload()
	p.Subject = "Vanished"
	gone, err := s.Ingest(p)
	require.NoError(t, err)

	// index outlives its config and one of its emails
	require.NoError(t, store.Delete(gone.Key))
	require.NoError(t, store.Delete(configKey("abc12")))

	out, err := s.RenderFeed("abc12")
	require.NoError(t, err)

	assert.Contains(t, out, "<title>Newsletter Feed abc12</title>")
	assert.Contains(t, out, "<description>Converted email newsletter</description>")
	assert.Contains(t, out, "<title>"+kept.Subject+"</title>")
	assert.NotContains(t, out, "Vanished")
	assert.Equal(t, 1, strings.Count(out, "<item>"))
}
