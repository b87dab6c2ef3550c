package engine

import (
	"github.com/entrhq/grab/pkg/dom"
	"github.com/entrhq/grab/pkg/types"
)

// HandleResolver is implemented by adapters that can resolve an element
// handle id back to a live element. Native selection mirroring needs it;
// adapters without it simply never mirror selections.
type HandleResolver interface {
	ElementByHandle(id string) dom.Element
}

// HandleSelectionChange feeds a native text selection change into the
// engine. While the overlay is engaged the native selection is suppressed;
// otherwise a selection anchored in a grabbable element is mirrored so the
// host can offer a grab affordance at the selection focus.
func (e *Engine) HandleSelectionChange(ev types.SelectionEvent) {
	e.mu.Lock()
	if e.disposed {
		e.mu.Unlock()
		return
	}

	if e.mode.engaged() || ev.Collapsed || ev.AnchorElement == "" {
		e.clearSelectionLocked()
		e.unlockAndNotify()
		return
	}

	resolver, ok := e.adapter.(HandleResolver)
	if !ok {
		e.clearSelectionLocked()
		e.unlockAndNotify()
		return
	}

	el := resolver.ElementByHandle(ev.AnchorElement)
	if el == nil || !e.adapter.IsValidGrabbable(el) {
		e.clearSelectionLocked()
		e.unlockAndNotify()
		return
	}

	e.nativeSelection = NativeSelectionState{
		CursorX:      ev.FocusX,
		CursorY:      ev.FocusY,
		HasSelection: true,
		Elements:     []dom.Element{el},
	}

	e.selectionSeq++
	seq := e.selectionSeq
	ctx := e.ctx
	go func() {
		bounds, err := e.adapter.ElementBounds(ctx, el)
		if err != nil {
			return
		}
		e.mu.Lock()
		if e.disposed || seq != e.selectionSeq || !e.nativeSelection.HasSelection {
			e.mu.Unlock()
			return
		}
		rect := bounds.Rect()
		e.deferCallback(func(cb Callbacks) {
			if cb.OnSelectionBox != nil {
				cb.OnSelectionBox(&rect)
			}
		})
		e.unlockAndNotify()
	}()
	e.unlockAndNotify()
}

// GrabSelection copies the element anchoring the current native selection.
func (e *Engine) GrabSelection() {
	e.mu.Lock()
	if e.disposed || !e.nativeSelection.HasSelection || len(e.nativeSelection.Elements) == 0 {
		e.mu.Unlock()
		return
	}
	el := e.nativeSelection.Elements[0]
	e.clearSelectionLocked()
	e.startCopyLocked([]dom.Element{el}, "", nil)
	e.unlockAndNotify()
}

// clearSelectionLocked drops the mirrored native selection. Callers must
// hold e.mu.
func (e *Engine) clearSelectionLocked() {
	if !e.nativeSelection.HasSelection {
		return
	}
	e.selectionSeq++
	e.nativeSelection = NativeSelectionState{}
	e.deferCallback(func(cb Callbacks) {
		if cb.OnSelectionBox != nil {
			cb.OnSelectionBox(nil)
		}
	})
}
