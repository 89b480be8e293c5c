package render

import (
	"fmt"
	"html"
)

// DefaultIframeHeight is the height the chart frame is rendered at
const DefaultIframeHeight = "700px"

// Iframe embeds document as the srcdoc of an inline frame. Every
// HTML-significant character of document is entity-escaped.
func Iframe(document, height string) string {
	if height == "" {
		height = DefaultIframeHeight
	}
	return fmt.Sprintf(`<iframe srcdoc="%s" width="100%%" height="%s"></iframe>`,
		html.EscapeString(document), html.EscapeString(height))
}
