package templates

import (
	"strings"
)

// legacy Markdown only treats these four characters as entities
var markdownReplacer = strings.NewReplacer(
	"_", "\\_",
	"*", "\\*",
	"`", "\\`",
	"[", "\\[",
)

// EscapeMarkdown escapes special characters for Telegram Markdown format.
// Shared by the alert templates and the telegram notifier.
func EscapeMarkdown(text string) string {
	return markdownReplacer.Replace(text)
}

// SafeText sanitizes text for safe use in Telegram messages:
// invalid UTF-8 is dropped, then Markdown characters are escaped
func SafeText(text string) string {
	text = strings.ToValidUTF8(text, "")
	return EscapeMarkdown(text)
}
