package feed

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestKeys(t *testing.T) {
	assert.Equal(t, "feed:abc12:config", configKey("abc12"))
	assert.Equal(t, "feed:abc12:metadata", indexKey("abc12"))

	a, err := newEmailKey("abc12", 1704067200000)
	require.NoError(t, err)
	b, err := newEmailKey("abc12", 1704067200000)
	require.NoError(t, err)

	assert.Regexp(t, `^feed:abc12:1704067200000-[0-9a-f]{8}$`, a)
	assert.NotEqual(t, a, b)
}

func TestFeedIDFromKey(t *testing.T) {
	tests := []struct {
		Key        string
		ExpectedID string
		ExpectedOK bool
	}{
		{Key: "feed:abc12:1704067200000-1a2b3c4d", ExpectedID: "abc12", ExpectedOK: true},
		{Key: "feed:abc12:config"},
		{Key: "feed:abc12:metadata"},
		{Key: "feeds:list"},
		{Key: "feed::123-abc"},
		{Key: "other:abc12:123-abc"},
		{Key: "feed:abc12:123:extra"},
		{Key: ""},
	}

	for _, test := range tests {
		t.Run(test.Key, func(t *testing.T) {
			id, ok := FeedIDFromKey(test.Key)
			assert.Equal(t, test.ExpectedOK, ok)
			assert.Equal(t, test.ExpectedID, id)
		})
	}
}
