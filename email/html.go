package email

import (
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// Excerpt returns the visible text of an html (or plain text) body with whitespace collapsed,
// cut to at most max runes. Script and style contents are dropped.
func Excerpt(body string, max int) string {
	text := body

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(body))
	if err == nil {
		doc.Find("script, style, head").Remove()
		text = doc.Text()
	}

	text = strings.Join(strings.Fields(text), " ")

	r := []rune(text)
	if max <= 0 || len(r) <= max {
		return text
	}

	return strings.TrimSpace(string(r[:max])) + "…"
}
