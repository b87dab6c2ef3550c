package main

import (
	"strings"

	"github.com/alecthomas/chroma/v2/quick"
)

// highlightMarkup syntax-highlights grabbed context for the terminal. The
// copied text is a header line followed by HTML; highlighting the whole
// block as HTML reads fine since the header carries no markup. Falls back
// to the raw text if the lexer chokes.
func highlightMarkup(text string) string {
	var b strings.Builder
	if err := quick.Highlight(&b, text, "html", "terminal256", "monokai"); err != nil {
		return text
	}
	return b.String()
}
