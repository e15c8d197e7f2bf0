package normalize

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHTMLToText(t *testing.T) {
	tests := []struct {
		name     string
		html     string
		expected string
	}{
		{
			name:     "empty input",
			html:     "",
			expected: "",
		},
		{
			name:     "paragraphs become lines",
			html:     "<p>Hello</p><p>World</p>",
			expected: "Hello\nWorld",
		},
		{
			name:     "scripts and styles are dropped",
			html:     "<style>body{color:red}</style><script>alert(1)</script><p>Visible</p>",
			expected: "Visible",
		},
		{
			name:     "nested markup flattens",
			html:     "<div><h1>Invoice</h1><ul><li>Item one</li><li>Item two</li></ul></div>",
			expected: "Invoice\nItem one\nItem two",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			text, err := HTMLToText(tt.html)
			require.NoError(t, err)
			assert.Equal(t, tt.expected, text)
		})
	}
}

func TestSnippet(t *testing.T) {
	t.Run("provider preview wins", func(t *testing.T) {
		assert.Equal(t, "preview", Snippet("preview", "body text", "<p>html</p>"))
	})

	t.Run("falls back to plaintext body", func(t *testing.T) {
		assert.Equal(t, "body text", Snippet("", "body text", ""))
	})

	t.Run("falls back to html body", func(t *testing.T) {
		assert.Equal(t, "Hello World", Snippet("", "", "<p>Hello</p><p>World</p>"))
	})

	t.Run("collapses whitespace", func(t *testing.T) {
		assert.Equal(t, "one two three", Snippet("", "one\n  two\t three", ""))
	})

	t.Run("truncates long bodies", func(t *testing.T) {
		long := strings.Repeat("a", 500)
		snippet := Snippet("", long, "")
		assert.Len(t, snippet, SnippetLength)
	})

	t.Run("truncation counts runes not bytes", func(t *testing.T) {
		long := strings.Repeat("ы", 500)
		snippet := Snippet("", long, "")
		assert.Equal(t, SnippetLength, len([]rune(snippet)))
	})

	t.Run("empty everything", func(t *testing.T) {
		assert.Equal(t, "", Snippet("", "", ""))
	})
}

func TestJoinAddresses(t *testing.T) {
	assert.Equal(t, "a@x.com, b@y.com", JoinAddresses([]string{"a@x.com", "b@y.com"}))
	assert.Equal(t, "a@x.com", JoinAddresses([]string{" a@x.com ", ""}))
	assert.Equal(t, "", JoinAddresses(nil))
}

func TestSplitAddresses(t *testing.T) {
	assert.Equal(t, []string{"a@x.com", "b@y.com"}, SplitAddresses("a@x.com, b@y.com"))
	assert.Nil(t, SplitAddresses("  "))
	assert.Equal(t, []string{"a@x.com"}, SplitAddresses("a@x.com,"))
}

func TestRoundTripAddresses(t *testing.T) {
	addrs := []string{"alice@example.com", "bob@example.com"}
	assert.Equal(t, addrs, SplitAddresses(JoinAddresses(addrs)))
}
