package utils

import (
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestTruncateText(t *testing.T) {
	tp := NewTextProcessor(zap.NewNop())

	assert.Equal(t, "short", tp.TruncateText("short", 100))
	assert.Equal(t, "unlimited", tp.TruncateText("unlimited", 0))

	long := strings.Repeat("a", 50)
	truncated := tp.TruncateText(long, 10)
	assert.True(t, strings.HasPrefix(truncated, strings.Repeat("a", 10)))
	assert.Contains(t, truncated, "Content truncated")
}

func TestTruncateTextKeepsValidUTF8(t *testing.T) {
	tp := NewTextProcessor(zap.NewNop())

	// "ééé" is 6 bytes; cutting at 5 would split the last rune
	truncated := tp.TruncateText("ééé plus more text to exceed the limit", 5)
	assert.True(t, utf8.ValidString(truncated))
	assert.True(t, strings.HasPrefix(truncated, "éé"))
}

func TestSanitizeUTF8(t *testing.T) {
	tp := NewTextProcessor(zap.NewNop())

	assert.Equal(t, "clean", tp.SanitizeUTF8("clean"))
	assert.Equal(t, "ab", tp.SanitizeUTF8("a\xffb"))
}

func TestExtractJSONObject(t *testing.T) {
	got, err := ExtractJSONObject("Here you go:\n```json\n{\"category\": \"spam\"}\n```")
	require.NoError(t, err)
	assert.Equal(t, `{"category": "spam"}`, got)

	got, err = ExtractJSONObject(`{"a": {"b": 1}}`)
	require.NoError(t, err)
	assert.Equal(t, `{"a": {"b": 1}}`, got)

	_, err = ExtractJSONObject("no json here")
	assert.Error(t, err)
}

func TestFormatRecipients(t *testing.T) {
	assert.Equal(t, "", FormatRecipients(nil))
	assert.Equal(t, "a@example.com", FormatRecipients([]string{"a@example.com"}))
	assert.Equal(t, "a@example.com and 2 others",
		FormatRecipients([]string{"a@example.com", "b@example.com", "c@example.com"}))
}
