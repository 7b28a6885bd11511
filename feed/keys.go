package feed

import (
	"fmt"
	"strings"

	"github.com/google/uuid"
)

const feedListKey = "feeds:list"

func configKey(feedID string) string {
	return fmt.Sprintf("feed:%s:config", feedID)
}

func indexKey(feedID string) string {
	return fmt.Sprintf("feed:%s:metadata", feedID)
}

// newEmailKey returns a key unique to the feed and received time. The random suffix keeps two emails
// received in the same millisecond apart.
func newEmailKey(feedID string, receivedAt int64) (string, error) {
	id, err := uuid.NewRandom()
	if err != nil {
		return "", fmt.Errorf("failed to generate email key: %w", err)
	}
	return fmt.Sprintf("feed:%s:%d-%s", feedID, receivedAt, id.String()[:8]), nil
}

// FeedIDFromKey returns the feed id an email key belongs to
func FeedIDFromKey(key string) (string, bool) {
	parts := strings.Split(key, ":")
	if len(parts) != 3 || parts[0] != "feed" || parts[1] == "" {
		return "", false
	}
	if parts[2] == "config" || parts[2] == "metadata" {
		return "", false
	}
	return parts[1], true
}
