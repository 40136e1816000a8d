package template

import (
	"encoding/json"
	"html"
	"strings"
)

// EscapeFunc transforms a resolved replacement value so it cannot break
// the destination format. Escaping happens exactly once, in the final
// marker-substitution pass.
type EscapeFunc func(string) string

// EscapePlain is the identity escape for plain-text destinations.
func EscapePlain(s string) string { return s }

var markdownEscaper = strings.NewReplacer(
	`\`, `\\`,
	"[", `\[`,
	"*", `\*`,
	"_", `\_`,
	"`", "\\`",
)

// EscapeMarkdown backslash-escapes the characters Telegram's Markdown
// mode treats as markup.
func EscapeMarkdown(s string) string { return markdownEscaper.Replace(s) }

// EscapeHTML entity-escapes quotes, angle brackets and ampersands.
func EscapeHTML(s string) string { return html.EscapeString(s) }

// EscapeJSON escapes a value for embedding inside an already-quoted JSON
// string: the native encoder's output minus the wrapping quotes.
func EscapeJSON(s string) string {
	b, err := json.Marshal(s)
	if err != nil {
		return ""
	}
	return string(b[1 : len(b)-1])
}
