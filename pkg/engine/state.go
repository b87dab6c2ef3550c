package engine

import (
	"github.com/entrhq/grab/pkg/dom"
	"github.com/entrhq/grab/pkg/types"
)

// CursorKind is the derived cursor override the overlay should apply.
type CursorKind int

const (
	// CursorNone means no override: the page's own cursor shows.
	CursorNone CursorKind = iota

	// CursorProgress shows the busy cursor while a copy is in flight.
	CursorProgress

	// CursorClear explicitly clears any override during prompt entry.
	CursorClear

	// CursorCrosshair shows the selection crosshair.
	CursorCrosshair

	// CursorDefault forces the default arrow over a resolved target.
	CursorDefault
)

// String implements fmt.Stringer.
func (c CursorKind) String() string {
	switch c {
	case CursorProgress:
		return "progress"
	case CursorClear:
		return "clear"
	case CursorCrosshair:
		return "crosshair"
	case CursorDefault:
		return "default"
	}
	return "none"
}

// cursorFor projects the cursor override from observable state. Copying
// wins over everything, then input mode clears any override, then dragging
// forces the crosshair, then a resolved target forces the default arrow,
// then bare activation forces the crosshair.
func cursorFor(copying, inputMode, activated, dragging, hasTarget bool) CursorKind {
	switch {
	case copying:
		return CursorProgress
	case inputMode:
		return CursorClear
	case dragging:
		return CursorCrosshair
	case hasTarget:
		return CursorDefault
	case activated:
		return CursorCrosshair
	}
	return CursorNone
}

// NativeSelectionState mirrors the browser's own text selection when it
// resolves to a single grabbable element. Independent of the interaction
// mode and suppressed while the overlay is engaged.
type NativeSelectionState struct {
	CursorX      float64
	CursorY      float64
	HasSelection bool
	Elements     []dom.Element
}

// State is an immutable snapshot of every observable engine field. The
// overlay projection is a pure function of this snapshot.
type State struct {
	Mode        Mode
	IsActive    bool
	IsDragging  bool
	IsCopying   bool
	IsInputMode bool

	Pointer     types.Point
	PagePointer types.Point
	Touch       bool

	TargetElement dom.Element
	TargetBounds  types.Bounds
	TargetLabel   string
	FrozenElement dom.Element

	DragBounds *types.Rect

	Progress  float64
	InputText string

	Labels       []Label
	GrabbedBoxes []GrabbedBox

	NativeSelection NativeSelectionState

	TextSelectionDisabled bool
	Cursor                CursorKind
}

// snapshotLocked builds a State. Callers must hold e.mu.
func (e *Engine) snapshotLocked() State {
	s := State{
		Mode:        e.mode,
		IsActive:    e.mode.engaged(),
		IsDragging:  e.mode == ModeDragging,
		IsCopying:   e.mode == ModeCopying,
		IsInputMode: e.mode == ModeInput,

		Pointer:     e.pointer,
		PagePointer: e.pagePointer,
		Touch:       e.touch,

		TargetElement: e.target,
		TargetBounds:  e.targetBounds,
		TargetLabel:   e.targetLabel,
		FrozenElement: e.frozen,

		Progress:  e.progress,
		InputText: e.inputText,

		NativeSelection: e.nativeSelection,

		TextSelectionDisabled: e.textSelectionDisabled,
	}

	if rect := e.dragRectLocked(); rect != nil {
		r := *rect
		s.DragBounds = &r
	}

	for _, label := range e.labelOrder {
		if l, ok := e.labels[label]; ok {
			s.Labels = append(s.Labels, *l)
		}
	}
	for _, id := range e.grabbedOrder {
		if g, ok := e.grabbedBoxes[id]; ok {
			s.GrabbedBoxes = append(s.GrabbedBoxes, *g)
		}
	}

	s.Cursor = cursorFor(
		s.IsCopying,
		s.IsInputMode,
		s.IsActive,
		s.IsDragging,
		s.TargetElement != nil,
	)
	return s
}

// GetState returns a snapshot of the observable state.
func (e *Engine) GetState() State {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.snapshotLocked()
}
