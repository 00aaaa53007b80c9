package render

import "strings"

var htmlReplacer = strings.NewReplacer(
	"&", "&amp;",
	"<", "&lt;",
	">", "&gt;",
	`"`, "&quot;",
	"'", "&#39;",
)

var attrReplacer = strings.NewReplacer(
	"&", "&amp;",
	"<", "&lt;",
	">", "&gt;",
	`"`, "&quot;",
	"'", "&#39;",
	"\n", "&#10;",
	"\r", "&#13;",
	"\t", "&#9;",
)

// escapeHTML escapes text for inclusion in element content.
func escapeHTML(s string) string {
	return htmlReplacer.Replace(s)
}

// escapeAttr escapes text for inclusion in a quoted attribute value.
// Whitespace control characters are encoded as well.
func escapeAttr(s string) string {
	return attrReplacer.Replace(s)
}
