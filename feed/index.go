package feed

// MaxRenderedEmails is how many of the newest emails make it into a rendered feed
const MaxRenderedEmails = 20

// Reference points at one stored email. It never carries the content.
type Reference struct {
	Key        string `json:"key"`
	Subject    string `json:"subject"`
	ReceivedAt int64  `json:"receivedAt"`
}

// Index is the newest-first list of references for one feed. Its length is not bounded;
// readers take the head with Top.
type Index struct {
	Emails []Reference `json:"emails"`
}

// Prepend inserts r at the head. Ordering comes from insertion, not from ReceivedAt.
func (i *Index) Prepend(r Reference) {
	i.Emails = append([]Reference{r}, i.Emails...)
}

// RemoveByKey drops every reference with the given key and reports whether any were found
func (i *Index) RemoveByKey(key string) bool {
	kept := i.Emails[:0]
	for _, r := range i.Emails {
		if r.Key != key {
			kept = append(kept, r)
		}
	}

	removed := len(kept) != len(i.Emails)
	i.Emails = kept
	return removed
}

// Top returns up to n references from the head
func (i Index) Top(n int) []Reference {
	if n < 0 {
		n = 0
	}
	if len(i.Emails) < n {
		n = len(i.Emails)
	}

	out := make([]Reference, n)
	copy(out, i.Emails[:n])
	return out
}
