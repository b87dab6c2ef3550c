package engine

import (
	"fmt"
	"time"

	"github.com/entrhq/grab/pkg/dom"
	"github.com/entrhq/grab/pkg/types"
)

// HandlePointerMove feeds a raw pointer move into the mode machine. The
// position is tracked in every mode so activation can resolve the element
// already under the cursor.
func (e *Engine) HandlePointerMove(ev types.PointerEvent) {
	e.mu.Lock()
	if e.disposed {
		e.mu.Unlock()
		return
	}

	e.pointer = types.Point{X: ev.ClientX, Y: ev.ClientY}
	e.pagePointer = types.Point{X: ev.PageX, Y: ev.PageY}
	e.touch = ev.Touch

	if !e.mode.engaged() {
		e.mu.Unlock()
		return
	}

	// Promote a held pointer to a drag once it travels past the threshold.
	if e.mode == ModeActivated && e.pointerDown && e.dragOrigin != nil {
		dx := e.pagePointer.X - e.dragOrigin.X
		dy := e.pagePointer.Y - e.dragOrigin.Y
		if abs(dx) > e.opts.DragThresholdPx || abs(dy) > e.opts.DragThresholdPx {
			e.beginDragLocked()
		}
	}

	switch e.mode {
	case ModeActivated:
		if !e.pointerDown && time.Since(e.lastHoverAt) >= e.opts.HoverThrottle {
			e.requestHoverLocked()
		}
	case ModeDragging:
		rect := e.dragRectLocked()
		e.deferCallback(func(cb Callbacks) {
			if cb.OnDragBox != nil {
				cb.OnDragBox(rect)
			}
		})
	}

	x, y := ev.ClientX, ev.ClientY
	crosshair := e.mode == ModeActivated || e.mode == ModeDragging
	e.deferCallback(func(cb Callbacks) {
		if cb.OnCrosshair != nil {
			cb.OnCrosshair(x, y, crosshair)
		}
	})
	e.unlockAndNotify()
}

// HandlePointerDown feeds a raw pointer press into the mode machine.
func (e *Engine) HandlePointerDown(ev types.PointerEvent) {
	e.mu.Lock()
	if e.disposed {
		e.mu.Unlock()
		return
	}

	e.pointer = types.Point{X: ev.ClientX, Y: ev.ClientY}
	e.pagePointer = types.Point{X: ev.PageX, Y: ev.PageY}
	e.touch = ev.Touch

	switch e.mode {
	case ModeInput:
		// Clicking away from the prompt dismisses it.
		e.cancelInputLocked()
	case ModeActivated:
		e.pointerDown = true
		origin := e.pagePointer
		e.dragOrigin = &origin
	default:
		e.mu.Unlock()
		return
	}
	e.unlockAndNotify()
}

// HandlePointerUp feeds a raw pointer release into the mode machine,
// resolving the gesture as either a click grab or a drag grab.
func (e *Engine) HandlePointerUp(ev types.PointerEvent) {
	e.mu.Lock()
	if e.disposed {
		e.mu.Unlock()
		return
	}

	e.pointer = types.Point{X: ev.ClientX, Y: ev.ClientY}
	e.pagePointer = types.Point{X: ev.PageX, Y: ev.PageY}

	if !e.pointerDown {
		e.mu.Unlock()
		return
	}
	e.pointerDown = false

	switch e.mode {
	case ModeDragging:
		rect := types.RectBetween(*e.dragOrigin, e.pagePointer)
		e.dragOrigin = nil
		e.stopAutoscrollLocked()
		e.mode = ModeActivated
		e.deferCallback(func(cb Callbacks) {
			if cb.OnDragBox != nil {
				cb.OnDragBox(nil)
			}
		})
		e.resolveDragLocked(rect)
	case ModeActivated:
		// Below the drag threshold: a plain click grabs the element at the
		// release point. The resolved hover target is used when it exists;
		// a click that lands before the hover settles looks the element up
		// fresh.
		e.dragOrigin = nil
		if e.target != nil {
			e.startCopyLocked([]dom.Element{e.target}, "", nil)
		} else {
			e.resolveClickLocked()
		}
	default:
		e.dragOrigin = nil
	}
	e.unlockAndNotify()
}

// beginDragLocked enters drag mode. The hover target clears immediately:
// a drag selects by rectangle, never by the element under the cursor.
// Callers must hold e.mu.
func (e *Engine) beginDragLocked() {
	e.mode = ModeDragging
	e.hoverSeq++

	hadTarget := e.target != nil
	e.target = nil
	e.targetBounds = types.Bounds{}
	e.targetLabel = ""

	start := *e.dragOrigin
	e.deferCallback(func(cb Callbacks) {
		if hadTarget && cb.OnElementHover != nil {
			cb.OnElementHover(nil, types.Bounds{}, "")
		}
		if cb.OnDragStart != nil {
			cb.OnDragStart(start)
		}
	})
	e.startAutoscrollLocked()
}

// resolveClickLocked kicks off the async element lookup for a click grab
// whose hover target never resolved. Callers must hold e.mu.
func (e *Engine) resolveClickLocked() {
	e.copySeq++
	seq := e.copySeq
	x, y := e.pointer.X, e.pointer.Y
	ctx := e.ctx

	go func() {
		el, err := e.adapter.ElementAtPoint(ctx, x, y)
		if err != nil || el == nil || !e.adapter.IsValidGrabbable(el) {
			return
		}

		e.mu.Lock()
		if e.disposed || seq != e.copySeq || e.mode != ModeActivated {
			e.mu.Unlock()
			return
		}
		e.startCopyLocked([]dom.Element{el}, "", nil)
		e.unlockAndNotify()
	}()
}

// resolveDragLocked kicks off the async rect query for a finished drag.
// Strict containment is tried first; when nothing is fully contained the
// loose intersection query runs so a sloppy rectangle still grabs. Callers
// must hold e.mu.
func (e *Engine) resolveDragLocked(rect types.Rect) {
	e.copySeq++
	seq := e.copySeq
	ctx := e.ctx

	go func() {
		elements, err := e.adapter.ElementsInRect(ctx, rect)
		if err != nil {
			e.logger.Warnf("rect query failed: %v", err)
		}
		if len(elements) == 0 {
			loose, looseErr := e.adapter.ElementsIntersectingRect(ctx, rect)
			if looseErr != nil {
				e.logger.Warnf("loose rect query failed: %v", looseErr)
			}
			elements = loose
		}
		e.applyDragResult(seq, rect, elements)
	}()
}

func (e *Engine) applyDragResult(seq uint64, rect types.Rect, elements []dom.Element) {
	e.mu.Lock()
	if e.disposed || seq != e.copySeq || e.mode != ModeActivated {
		e.mu.Unlock()
		return
	}

	resolved := elements
	e.deferCallback(func(cb Callbacks) {
		if cb.OnDragEnd != nil {
			cb.OnDragEnd(resolved, rect)
		}
	})

	switch {
	case len(elements) == 0:
		// Empty rectangle: stay activated, nothing to grab.
	case e.bridge.HasProvider():
		r := rect
		e.enterInputModeLocked(elements[0], &r)
	default:
		e.startCopyLocked(elements, "", nil)
	}
	e.unlockAndNotify()
}

// requestHoverLocked kicks off an async element-at-point lookup for the
// current pointer position. Callers must hold e.mu.
func (e *Engine) requestHoverLocked() {
	e.hoverSeq++
	seq := e.hoverSeq
	e.lastHoverAt = time.Now()
	x, y := e.pointer.X, e.pointer.Y
	ctx := e.ctx

	go func() {
		el, err := e.adapter.ElementAtPoint(ctx, x, y)
		if err != nil || el == nil {
			e.applyHover(seq, nil, types.Bounds{}, "")
			return
		}

		bounds, boundsErr := e.adapter.ElementBounds(ctx, el)
		if boundsErr != nil {
			e.applyHover(seq, nil, types.Bounds{}, "")
			return
		}
		component, _ := e.adapter.NearestComponentName(ctx, el)
		e.applyHover(seq, el, bounds, targetLabel(el, component))
	}()
}

func (e *Engine) applyHover(seq uint64, el dom.Element, bounds types.Bounds, label string) {
	e.mu.Lock()
	if e.disposed || seq != e.hoverSeq || e.mode != ModeActivated {
		e.mu.Unlock()
		return
	}

	changed := !dom.SameElement(e.target, el) || e.targetBounds != bounds
	e.target = el
	e.targetBounds = bounds
	e.targetLabel = label

	if changed {
		e.deferCallback(func(cb Callbacks) {
			if cb.OnElementHover != nil {
				cb.OnElementHover(el, bounds, label)
			}
		})
	}
	e.unlockAndNotify()
}

// startAutoscrollLocked runs the edge-scroll loop for the duration of a
// drag. Callers must hold e.mu.
func (e *Engine) startAutoscrollLocked() {
	e.stopAutoscrollLocked()
	stop := make(chan struct{})
	e.autoscrollStop = stop
	ctx := e.ctx

	go func() {
		ticker := time.NewTicker(e.opts.FrameInterval)
		defer ticker.Stop()
		for {
			select {
			case <-stop:
				return
			case <-ctx.Done():
				return
			case <-ticker.C:
			}

			e.mu.Lock()
			if e.mode != ModeDragging {
				e.mu.Unlock()
				return
			}
			dx, dy := e.autoscrollDeltaLocked()
			e.mu.Unlock()

			if dx != 0 || dy != 0 {
				if err := e.adapter.ScrollBy(ctx, dx, dy); err != nil {
					e.logger.Warnf("autoscroll failed: %v", err)
					return
				}
			}
		}
	}()
}

// autoscrollDeltaLocked computes the per-frame scroll toward whichever
// viewport edge the pointer is inside the margin of. The right and bottom
// edges need a known viewport size. Callers must hold e.mu.
func (e *Engine) autoscrollDeltaLocked() (dx, dy float64) {
	margin := e.opts.AutoscrollMargin
	speed := e.opts.AutoscrollSpeed

	if e.pointer.X < margin {
		dx = -speed
	} else if e.viewportW > 0 && e.pointer.X > e.viewportW-margin {
		dx = speed
	}
	if e.pointer.Y < margin {
		dy = -speed
	} else if e.viewportH > 0 && e.pointer.Y > e.viewportH-margin {
		dy = speed
	}
	return dx, dy
}

// targetLabel renders the hover description, "<button> in SubmitButton".
func targetLabel(el dom.Element, component string) string {
	if el == nil {
		return ""
	}
	label := fmt.Sprintf("<%s>", el.TagName())
	if component != "" {
		label += " in " + component
	}
	return label
}

func abs(v float64) float64 {
	if v < 0 {
		return -v
	}
	return v
}
