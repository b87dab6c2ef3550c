package dom

import (
	"strings"

	"github.com/entrhq/grab/pkg/config"
)

// nonGrabbableTags are structural or invisible elements that never make
// sense as grab targets.
var nonGrabbableTags = map[string]bool{
	"html":     true,
	"body":     true,
	"head":     true,
	"script":   true,
	"style":    true,
	"link":     true,
	"meta":     true,
	"title":    true,
	"noscript": true,
	"template": true,
}

// GrabbablePredicate reports whether an element is a valid grab target.
type GrabbablePredicate func(Element) bool

// NewGrabbablePredicate builds the standard predicate: the element exists,
// its tag is visible content, and its selector matches no ignore pattern.
// The same predicate gates hover targets, drag results and native-selection
// anchors so every path agrees on what is grabbable.
func NewGrabbablePredicate(ignore *config.IgnoreMatcher) GrabbablePredicate {
	return func(el Element) bool {
		if el == nil {
			return false
		}
		if nonGrabbableTags[strings.ToLower(el.TagName())] {
			return false
		}
		if ignore.Matches(el.Selector()) {
			return false
		}
		return true
	}
}
