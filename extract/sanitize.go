package extract

import (
	"regexp"
	"strings"

	"github.com/jaytaylor/html2text"
	"github.com/microcosm-cc/bluemonday"
)

var (
	// CSS/JavaScript blocks (separate patterns since Go doesn't support backreferences)
	cssRegex = regexp.MustCompile(`(?is)<style[^>]*>.*?</style>`)
	jsRegex  = regexp.MustCompile(`(?is)<script[^>]*>.*?</script>`)

	htmlTagRegex    = regexp.MustCompile(`<[^>]*>`)
	htmlEntityRegex = regexp.MustCompile(`&[a-zA-Z0-9#]*;`)

	whitespaceRegex = regexp.MustCompile(`[ \t]+`)
	blankLineRegex  = regexp.MustCompile(`\n{3,}`)
)

// htmlPolicy keeps text-bearing markup for conversion and drops
// everything executable or presentational.
var htmlPolicy = func() *bluemonday.Policy {
	p := bluemonday.UGCPolicy()
	p.AllowElements("html", "head", "title", "body")
	return p
}()

// htmlToText converts HTML markup to readable plain text. Script and
// style content is always removed; sanitize additionally strips unsafe
// markup before conversion.
func htmlToText(markup string, sanitize bool) string {
	markup = cssRegex.ReplaceAllString(markup, "")
	markup = jsRegex.ReplaceAllString(markup, "")
	if sanitize {
		markup = htmlPolicy.Sanitize(markup)
	}

	text, err := html2text.FromString(markup, html2text.Options{TextOnly: true})
	if err != nil {
		// Fall back to tag stripping on parser failure.
		text = htmlTagRegex.ReplaceAllString(markup, " ")
		text = htmlEntityRegex.ReplaceAllString(text, " ")
	}
	return collapseWhitespace(text)
}

// collapseWhitespace normalizes runs of spaces and blank lines without
// destroying paragraph structure.
func collapseWhitespace(s string) string {
	s = strings.ReplaceAll(s, "\r\n", "\n")
	s = whitespaceRegex.ReplaceAllString(s, " ")
	s = blankLineRegex.ReplaceAllString(s, "\n\n")
	lines := strings.Split(s, "\n")
	for i, l := range lines {
		lines[i] = strings.TrimRight(l, " ")
	}
	return strings.TrimSpace(strings.Join(lines, "\n"))
}
