package engine

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/entrhq/grab/pkg/dom"
	"github.com/entrhq/grab/pkg/dom/domtest"
	"github.com/entrhq/grab/pkg/types"
)

// resolvingAdapter adds handle resolution on top of the fake adapter.
type resolvingAdapter struct {
	*domtest.FakeAdapter
	elements map[string]dom.Element
}

func (a *resolvingAdapter) ElementByHandle(id string) dom.Element {
	return a.elements[id]
}

func newSelectionFixture(el dom.Element) *resolvingAdapter {
	return &resolvingAdapter{
		FakeAdapter: &domtest.FakeAdapter{
			ContextFn: func(dom.Element, dom.ContextOptions) (string, error) {
				return "selected context", nil
			},
		},
		elements: map[string]dom.Element{el.HandleID(): el},
	}
}

func TestSelectionMirroredWhenIdle(t *testing.T) {
	p := domtest.NewElement("p1", "p")
	fake := newSelectionFixture(p)
	e := newTestEngine(t, fake)

	e.HandleSelectionChange(types.SelectionEvent{
		AnchorElement: "p1",
		FocusX:        120,
		FocusY:        80,
	})

	state := e.GetState()
	require.True(t, state.NativeSelection.HasSelection)
	assert.Equal(t, 120.0, state.NativeSelection.CursorX)
	assert.Equal(t, 80.0, state.NativeSelection.CursorY)
	require.Len(t, state.NativeSelection.Elements, 1)
	assert.True(t, dom.SameElement(p, state.NativeSelection.Elements[0]))
}

func TestCollapsedSelectionClears(t *testing.T) {
	p := domtest.NewElement("p1", "p")
	e := newTestEngine(t, newSelectionFixture(p))

	e.HandleSelectionChange(types.SelectionEvent{AnchorElement: "p1"})
	require.True(t, e.GetState().NativeSelection.HasSelection)

	e.HandleSelectionChange(types.SelectionEvent{Collapsed: true})
	assert.False(t, e.GetState().NativeSelection.HasSelection)
}

func TestSelectionSuppressedWhileEngaged(t *testing.T) {
	p := domtest.NewElement("p1", "p")
	e := newTestEngine(t, newSelectionFixture(p))

	e.Activate()
	e.HandleSelectionChange(types.SelectionEvent{AnchorElement: "p1"})
	assert.False(t, e.GetState().NativeSelection.HasSelection)
}

func TestActivationDropsMirroredSelection(t *testing.T) {
	p := domtest.NewElement("p1", "p")
	e := newTestEngine(t, newSelectionFixture(p))

	e.HandleSelectionChange(types.SelectionEvent{AnchorElement: "p1"})
	require.True(t, e.GetState().NativeSelection.HasSelection)

	e.Activate()
	assert.False(t, e.GetState().NativeSelection.HasSelection)
}

func TestSelectionIgnoresNonGrabbableAnchor(t *testing.T) {
	p := domtest.NewElement("p1", "p")
	fake := newSelectionFixture(p)
	fake.GrabbableFn = func(dom.Element) bool { return false }
	e := newTestEngine(t, fake)

	e.HandleSelectionChange(types.SelectionEvent{AnchorElement: "p1"})
	assert.False(t, e.GetState().NativeSelection.HasSelection)
}

func TestSelectionIgnoresUnknownHandle(t *testing.T) {
	p := domtest.NewElement("p1", "p")
	e := newTestEngine(t, newSelectionFixture(p))

	e.HandleSelectionChange(types.SelectionEvent{AnchorElement: "missing"})
	assert.False(t, e.GetState().NativeSelection.HasSelection)
}

func TestGrabSelectionCopiesAnchor(t *testing.T) {
	p := domtest.NewElement("p1", "p")
	fake := newSelectionFixture(p)
	e := newTestEngine(t, fake)

	e.HandleSelectionChange(types.SelectionEvent{AnchorElement: "p1"})
	e.GrabSelection()

	require.Eventually(t, func() bool {
		return len(fake.WrittenTexts()) == 1
	}, time.Second, time.Millisecond)
	assert.Equal(t, "selected context", fake.WrittenTexts()[0])
	assert.False(t, e.GetState().NativeSelection.HasSelection,
		"grabbing consumes the mirrored selection")
}

func TestTextSelectionDisabledWhileEngaged(t *testing.T) {
	e := newTestEngine(t, &domtest.FakeAdapter{})

	assert.False(t, e.GetState().TextSelectionDisabled)
	e.Activate()
	assert.True(t, e.GetState().TextSelectionDisabled)
	e.Deactivate()
	assert.False(t, e.GetState().TextSelectionDisabled)
}
