// Package normalize holds the mapping helpers shared by the provider
// adapters: HTML-to-text conversion, snippet derivation and address
// serialization. Per-provider field mapping lives in each adapter.
package normalize

import (
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// SnippetLength is the preview length derived from the body when a provider
// does not supply its own snippet.
const SnippetLength = 200

var (
	whitespaceRegex = regexp.MustCompile(`[^\S\n]+`)
	newlineRegex    = regexp.MustCompile(`\n{3,}`)
	// Invisible Unicode characters (zero-width spaces, etc.)
	invisibleRegex = regexp.MustCompile(`[\x{200B}-\x{200D}\x{FEFF}\x{00AD}\x{034F}\x{061C}\x{115F}\x{1160}\x{17B4}\x{17B5}\x{180E}\x{2060}-\x{2064}\x{206A}-\x{206F}\x{FE00}-\x{FE0F}\x{FFF0}-\x{FFF8}]+`)
)

// HTMLToText converts an HTML body to clean plain text.
func HTMLToText(html string) (string, error) {
	if html == "" {
		return "", nil
	}

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return "", err
	}

	// Remove script and style elements
	doc.Find("script, style, head, meta, link").Remove()

	// Add newlines before block elements
	doc.Find("p, div, br, h1, h2, h3, h4, h5, h6, li, tr").Each(func(i int, s *goquery.Selection) {
		s.PrependHtml("\n")
	})

	text := doc.Text()

	text = invisibleRegex.ReplaceAllString(text, "")

	// Clean up whitespace (but preserve newlines)
	text = whitespaceRegex.ReplaceAllString(text, " ")

	lines := strings.Split(text, "\n")
	var cleanLines []string
	for _, line := range lines {
		line = strings.TrimSpace(line)
		if line != "" {
			cleanLines = append(cleanLines, line)
		}
	}
	text = strings.Join(cleanLines, "\n")

	text = newlineRegex.ReplaceAllString(text, "\n\n")

	return strings.TrimSpace(text), nil
}

// Snippet returns the message preview: the provider's own preview when
// supplied, otherwise the first SnippetLength characters of the plaintext
// body, falling back to text extracted from the HTML body.
func Snippet(preview, bodyText, bodyHTML string) string {
	if s := strings.TrimSpace(preview); s != "" {
		return truncate(s, SnippetLength)
	}

	text := strings.TrimSpace(bodyText)
	if text == "" && bodyHTML != "" {
		if extracted, err := HTMLToText(bodyHTML); err == nil {
			text = extracted
		}
	}

	text = strings.Join(strings.Fields(text), " ")
	return truncate(text, SnippetLength)
}

func truncate(s string, limit int) string {
	runes := []rune(s)
	if len(runes) <= limit {
		return s
	}
	return string(runes[:limit])
}

// JoinAddresses serializes an address list for storage.
func JoinAddresses(addrs []string) string {
	var nonEmpty []string
	for _, a := range addrs {
		a = strings.TrimSpace(a)
		if a != "" {
			nonEmpty = append(nonEmpty, a)
		}
	}
	return strings.Join(nonEmpty, ", ")
}

// SplitAddresses reverses JoinAddresses.
func SplitAddresses(serialized string) []string {
	if strings.TrimSpace(serialized) == "" {
		return nil
	}
	parts := strings.Split(serialized, ",")
	addrs := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p != "" {
			addrs = append(addrs, p)
		}
	}
	return addrs
}
