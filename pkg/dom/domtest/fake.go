// Package domtest provides in-memory fakes of the dom collaborator surface
// for engine and copier tests.
package domtest

import (
	"context"
	"sync"

	"github.com/entrhq/grab/pkg/dom"
	"github.com/entrhq/grab/pkg/types"
)

// FakeElement is an in-memory dom.Element.
type FakeElement struct {
	ID       string
	Tag      string
	Sel      string
	Detached bool
	Content  string
	TextErr  error
	HTML     string
	HTMLErr  error
}

// NewElement creates an attached element with matching id and selector.
func NewElement(id, tag string) *FakeElement {
	return &FakeElement{ID: id, Tag: tag, Sel: tag + "#" + id}
}

func (e *FakeElement) HandleID() string              { return e.ID }
func (e *FakeElement) TagName() string               { return e.Tag }
func (e *FakeElement) Selector() string              { return e.Sel }
func (e *FakeElement) Attached(context.Context) bool { return !e.Detached }

func (e *FakeElement) Text(context.Context) (string, error) {
	return e.Content, e.TextErr
}

func (e *FakeElement) OuterHTML(context.Context) (string, error) {
	return e.HTML, e.HTMLErr
}

// FakeAdapter implements dom.Adapter with overridable behavior per method.
// Unset hooks default to empty results. All calls are recorded.
type FakeAdapter struct {
	mu sync.Mutex

	// Behavior hooks, each optional.
	AtPointFn      func(x, y float64) dom.Element
	InRectFn       func(rect types.Rect) []dom.Element
	IntersectingFn func(rect types.Rect) []dom.Element
	BoundsFn       func(el dom.Element) (types.Bounds, error)
	ContextFn      func(el dom.Element, opts dom.ContextOptions) (string, error)
	ComponentFn    func(el dom.Element) (string, error)
	StackFn        func(el dom.Element) ([]types.SourceFrame, error)
	GrabbableFn    func(el dom.Element) bool

	// ClipboardErrs supplies one error (or nil) per successive write; when
	// exhausted, writes succeed.
	ClipboardErrs []error

	// Recorded activity.
	Written      []string
	ScrollDeltas []types.Point
	AtPointCalls int
	InRectCalls  int
	LooseCalls   int
}

func (f *FakeAdapter) ElementAtPoint(_ context.Context, x, y float64) (dom.Element, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.AtPointCalls++
	if f.AtPointFn == nil {
		return nil, nil
	}
	return f.AtPointFn(x, y), nil
}

func (f *FakeAdapter) ElementsInRect(_ context.Context, rect types.Rect) ([]dom.Element, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.InRectCalls++
	if f.InRectFn == nil {
		return nil, nil
	}
	return f.InRectFn(rect), nil
}

func (f *FakeAdapter) ElementsIntersectingRect(_ context.Context, rect types.Rect) ([]dom.Element, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.LooseCalls++
	if f.IntersectingFn == nil {
		return nil, nil
	}
	return f.IntersectingFn(rect), nil
}

func (f *FakeAdapter) ElementBounds(_ context.Context, el dom.Element) (types.Bounds, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.BoundsFn == nil {
		return types.Bounds{Width: 10, Height: 10}, nil
	}
	return f.BoundsFn(el)
}

func (f *FakeAdapter) ElementContext(_ context.Context, el dom.Element, opts dom.ContextOptions) (string, error) {
	f.mu.Lock()
	fn := f.ContextFn
	f.mu.Unlock()
	if fn == nil {
		return "", nil
	}
	return fn(el, opts)
}

func (f *FakeAdapter) NearestComponentName(_ context.Context, el dom.Element) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.ComponentFn == nil {
		return "", nil
	}
	return f.ComponentFn(el)
}

func (f *FakeAdapter) SourceStack(_ context.Context, el dom.Element) ([]types.SourceFrame, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.StackFn == nil {
		return nil, nil
	}
	return f.StackFn(el)
}

func (f *FakeAdapter) WriteClipboard(_ context.Context, text string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.ClipboardErrs) > 0 {
		err := f.ClipboardErrs[0]
		f.ClipboardErrs = f.ClipboardErrs[1:]
		if err != nil {
			return err
		}
	}
	f.Written = append(f.Written, text)
	return nil
}

func (f *FakeAdapter) ScrollBy(_ context.Context, dx, dy float64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.ScrollDeltas = append(f.ScrollDeltas, types.Point{X: dx, Y: dy})
	return nil
}

func (f *FakeAdapter) IsValidGrabbable(el dom.Element) bool {
	if f.GrabbableFn == nil {
		return el != nil
	}
	return f.GrabbableFn(el)
}

// WrittenTexts returns a copy of all clipboard writes so far.
func (f *FakeAdapter) WrittenTexts() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.Written...)
}

// Scrolled returns a copy of all scroll deltas so far.
func (f *FakeAdapter) Scrolled() []types.Point {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]types.Point(nil), f.ScrollDeltas...)
}
