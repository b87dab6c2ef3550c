package types

// KeyEvent is a raw keyboard event forwarded from the page.
type KeyEvent struct {
	// Key is the logical key value ("c", "Enter", "Escape", ...).
	Key string

	// Code is the physical key code ("KeyC", "Enter", ...).
	Code string

	// Alt, Ctrl, Meta and Shift report modifier state at event time.
	Alt   bool
	Ctrl  bool
	Meta  bool
	Shift bool

	// Repeat is true for OS key-repeat events.
	Repeat bool

	// FromTextInput is true when the event originated inside a text
	// input, textarea or contenteditable region.
	FromTextInput bool
}

// PointerEvent is a raw pointer event forwarded from the page.
type PointerEvent struct {
	// ClientX and ClientY are viewport coordinates.
	ClientX float64
	ClientY float64

	// PageX and PageY are page coordinates (viewport + scroll offset).
	PageX float64
	PageY float64

	// Touch is true when the pointer is a touch contact rather than a mouse.
	Touch bool
}

// SelectionEvent mirrors the browser's native text selection.
type SelectionEvent struct {
	// Collapsed is true when the selection is empty (a bare caret).
	Collapsed bool

	// AnchorElement is the element containing the selection anchor,
	// expressed as an element handle id resolvable by the adapter.
	// Empty when there is no usable anchor.
	AnchorElement string

	// FocusX and FocusY are the viewport coordinates of the selection focus.
	FocusX float64
	FocusY float64
}

// NewKeyDown builds a plain key press event without modifiers.
func NewKeyDown(key string) KeyEvent {
	return KeyEvent{Key: key, Code: key}
}

// NewPointerMove builds a mouse move event where page and viewport
// coordinates coincide (no scroll offset).
func NewPointerMove(x, y float64) PointerEvent {
	return PointerEvent{ClientX: x, ClientY: y, PageX: x, PageY: y}
}
