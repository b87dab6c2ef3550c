package dom

import (
	"context"

	"github.com/entrhq/grab/pkg/types"
)

// ContextOptions bounds per-element context extraction.
type ContextOptions struct {
	// MaxLines caps the snippet's line count. Zero means no cap.
	MaxLines int
}

// Adapter is the full collaborator surface over a live page. All element
// queries are pure functions of the current DOM; all methods may be called
// from any goroutine.
type Adapter interface {
	// ElementAtPoint resolves the topmost grabbable element at the given
	// viewport coordinates, or nil when nothing qualifies.
	ElementAtPoint(ctx context.Context, x, y float64) (Element, error)

	// ElementsInRect resolves the grabbable elements strictly contained
	// by the page-space rectangle.
	ElementsInRect(ctx context.Context, rect types.Rect) ([]Element, error)

	// ElementsIntersectingRect is the loose variant: elements whose box
	// intersects the rectangle at all.
	ElementsIntersectingRect(ctx context.Context, rect types.Rect) ([]Element, error)

	// ElementBounds computes the element's rendered box.
	ElementBounds(ctx context.Context, el Element) (types.Bounds, error)

	// ElementContext extracts a machine-readable context snippet for the
	// element: tag, component, source location and nearby markup.
	ElementContext(ctx context.Context, el Element, opts ContextOptions) (string, error)

	// NearestComponentName walks up from the element to the closest
	// enclosing named component. Empty when unresolvable.
	NearestComponentName(ctx context.Context, el Element) (string, error)

	// SourceStack resolves the element's render stack. Nil when the page
	// exposes no source information.
	SourceStack(ctx context.Context, el Element) ([]types.SourceFrame, error)

	// WriteClipboard writes text to the clipboard. A nil error means the
	// text is on the clipboard.
	WriteClipboard(ctx context.Context, text string) error

	// ScrollBy scrolls the window by the given page-space delta.
	ScrollBy(ctx context.Context, dx, dy float64) error

	// IsValidGrabbable reports whether the element qualifies as a grab
	// target. Synchronous; used on hot paths.
	IsValidGrabbable(el Element) bool
}
