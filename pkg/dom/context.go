package dom

import (
	"fmt"
	"strings"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

// Snippet is a line-bounded, cleaned rendering of an element's markup.
type Snippet struct {
	Markup    string
	Truncated bool
}

// BuildSnippet parses raw markup and pretty-prints it with scripts, styles
// and other noise removed and only analysis-relevant attributes kept. The
// output is capped at maxLines lines (zero means uncapped); truncation is
// marked in the markup itself so downstream consumers see it.
func BuildSnippet(rawHTML string, maxLines int) (*Snippet, error) {
	nodes, err := html.ParseFragment(strings.NewReader(rawHTML), &html.Node{
		Type:     html.ElementNode,
		Data:     "div",
		DataAtom: atom.Div,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to parse markup: %w", err)
	}

	p := &snippetPrinter{maxLines: maxLines}
	for _, n := range nodes {
		if p.full() {
			break
		}
		p.printNode(n, 0)
	}

	if p.truncated {
		p.lines = append(p.lines, "<!-- truncated -->")
	}

	return &Snippet{
		Markup:    strings.Join(p.lines, "\n"),
		Truncated: p.truncated,
	}, nil
}

// snippetPrinter accumulates output lines up to the cap.
type snippetPrinter struct {
	lines     []string
	maxLines  int
	truncated bool
}

func (p *snippetPrinter) full() bool {
	return p.maxLines > 0 && len(p.lines) >= p.maxLines
}

func (p *snippetPrinter) emit(depth int, text string) {
	if p.full() {
		p.truncated = true
		return
	}
	p.lines = append(p.lines, strings.Repeat("  ", depth)+text)
}

func (p *snippetPrinter) printNode(n *html.Node, depth int) {
	if p.full() {
		p.truncated = true
		return
	}

	switch n.Type {
	case html.CommentNode:
		return
	case html.TextNode:
		text := strings.Join(strings.Fields(n.Data), " ")
		if text != "" {
			p.emit(depth, text)
		}
		return
	case html.ElementNode:
		tagName := strings.ToLower(n.Data)
		if isSkippedTag(tagName) {
			return
		}
		p.emit(depth, openTag(tagName, n.Attr))
		if isVoidTag(tagName) {
			return
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			p.printNode(c, depth+1)
		}
		p.emit(depth, "</"+tagName+">")
		return
	default:
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			p.printNode(c, depth)
		}
	}
}

// openTag serializes an opening tag with only the attributes worth keeping.
func openTag(tagName string, attrs []html.Attribute) string {
	var b strings.Builder
	b.WriteString("<")
	b.WriteString(tagName)
	for _, attr := range attrs {
		if keepAttribute(tagName, attr.Key) {
			fmt.Fprintf(&b, ` %s="%s"`, attr.Key, html.EscapeString(attr.Val))
		}
	}
	b.WriteString(">")
	return b.String()
}

// isSkippedTag returns true for elements removed from snippets entirely.
func isSkippedTag(tagName string) bool {
	switch tagName {
	case "script", "style", "noscript", "iframe", "embed", "object", "template":
		return true
	}
	return false
}

// isVoidTag returns true for self-closing elements.
func isVoidTag(tagName string) bool {
	switch tagName {
	case "area", "base", "br", "col", "embed", "hr", "img", "input",
		"link", "meta", "param", "source", "track", "wbr":
		return true
	}
	return false
}

// keepAttribute returns true for attributes useful for analysis/targeting.
func keepAttribute(tagName, attrName string) bool {
	attrName = strings.ToLower(attrName)

	switch attrName {
	case "id", "class", "role", "aria-label", "aria-describedby":
		return true
	}

	// data-* attributes often carry framework and test hooks.
	if strings.HasPrefix(attrName, "data-") {
		return true
	}

	switch tagName {
	case "a":
		return attrName == "href" || attrName == "target"
	case "img":
		return attrName == "src" || attrName == "alt"
	case "input", "textarea", "select":
		return attrName == "name" || attrName == "type" ||
			attrName == "placeholder" || attrName == "value"
	case "button":
		return attrName == "type" || attrName == "name"
	case "form":
		return attrName == "action" || attrName == "method"
	}
	return false
}
