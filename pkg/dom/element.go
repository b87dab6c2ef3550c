// Package dom defines the collaborator surface the grab engine uses to talk
// to a live page: element handles, geometry and context queries, clipboard
// writes, and a Playwright-backed implementation for real browsers.
//
// Element handles are lookup-only references. The page owns element
// lifetime; every consumer must check Attached before use and treat a
// detached element as a silent no-op.
package dom

import "context"

// Element is a lookup-only handle to a page element.
type Element interface {
	// HandleID is a stable identifier for this handle, unique per page.
	HandleID() string

	// TagName is the lowercase tag name, cached at resolution time.
	TagName() string

	// Selector is a simple selector describing the element
	// (tag plus id/class), used for ignore-pattern matching and labels.
	Selector() string

	// Attached reports whether the element is still in the document.
	Attached(ctx context.Context) bool

	// Text returns the element's rendered text content.
	Text(ctx context.Context) (string, error)

	// OuterHTML returns the element's serialized markup.
	OuterHTML(ctx context.Context) (string, error)
}

// SameElement reports whether two handles refer to the same element.
// Either side may be nil.
func SameElement(a, b Element) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return a.HandleID() == b.HandleID()
}

// TagNames collects the tag names of a handle list, preserving order.
func TagNames(elements []Element) []string {
	names := make([]string, 0, len(elements))
	for _, el := range elements {
		names = append(names, el.TagName())
	}
	return names
}
