package engine

import (
	"context"
	"time"

	"github.com/entrhq/grab/pkg/copier"
	"github.com/entrhq/grab/pkg/dom"
	"github.com/entrhq/grab/pkg/types"
)

// elementMeta is the per-element presentation data gathered before a copy
// so labels and feedback boxes can render without further page queries.
type elementMeta struct {
	element   dom.Element
	bounds    types.Bounds
	component string
}

// CopyElement programmatically copies one element's context, reporting
// whether any clipboard write landed. Works in any mode; an idle engine
// returns to idle afterwards.
func (e *Engine) CopyElement(el dom.Element, instruction string) bool {
	if el == nil {
		return false
	}
	return e.CopyElements([]dom.Element{el}, instruction)
}

// CopyElements copies the combined context of several elements in one
// clipboard write. An empty list is a no-op reported as false: no hooks, no
// write. The call blocks until the copy settles.
func (e *Engine) CopyElements(elements []dom.Element, instruction string) bool {
	e.mu.Lock()
	if e.disposed || len(elements) == 0 || e.mode == ModeCopying {
		e.mu.Unlock()
		return false
	}
	done := make(chan bool, 1)
	e.startCopyLocked(elements, instruction, done)
	e.unlockAndNotify()

	select {
	case copied := <-done:
		return copied
	case <-e.ctx.Done():
		return false
	}
}

// startCopyLocked enters copying mode and runs the copy on its own
// goroutine. An empty element list never starts a copy; a non-nil done
// channel receives the outcome once the copy settles. Callers must hold
// e.mu.
func (e *Engine) startCopyLocked(elements []dom.Element, instruction string, done chan<- bool) {
	if len(elements) == 0 {
		return
	}

	e.copyResume = e.mode
	e.mode = ModeCopying
	e.copySeq++
	seq := e.copySeq
	e.progress = 0
	e.startProgressLocked()

	ctx := e.ctx
	go e.runCopy(ctx, seq, elements, instruction, done)
}

func (e *Engine) runCopy(ctx context.Context, seq uint64, elements []dom.Element, instruction string, done chan<- bool) {
	// The before-copy hook is awaited before any resolution starts.
	if e.callbacks.OnBeforeCopy != nil {
		e.callbacks.OnBeforeCopy(elements)
	}

	meta := e.gatherMeta(ctx, elements)

	// Show the copying-stage labels while resolution runs.
	labelIDs := make([]uint64, 0, len(meta))
	e.mu.Lock()
	if e.disposed || seq != e.copySeq {
		e.mu.Unlock()
		settle(done, false)
		return
	}
	for _, m := range meta {
		label := e.addLabelLocked(m.element, m.bounds, m.component)
		labelIDs = append(labelIDs, label.ID)
		snapshot := *label
		e.deferCallback(func(cb Callbacks) {
			if cb.OnElementLabel != nil {
				cb.OnElementLabel(snapshot)
			}
		})
	}
	e.unlockAndNotify()

	result := e.cop.Copy(ctx, elements, instruction)

	var location *types.SourceLocation
	if result.Copied {
		if frame := e.resolveSourceFrame(ctx, elements[0]); frame != nil {
			location = frame.Source
		}
	}

	e.applyCopyResult(seq, elements, meta, labelIDs, result, location)
	settle(done, result.Copied)
}

// settle reports a copy outcome on an optional, buffered channel.
func settle(done chan<- bool, copied bool) {
	if done == nil {
		return
	}
	select {
	case done <- copied:
	default:
	}
}

func (e *Engine) gatherMeta(ctx context.Context, elements []dom.Element) []elementMeta {
	meta := make([]elementMeta, 0, len(elements))
	for _, el := range elements {
		m := elementMeta{element: el}
		if bounds, err := e.adapter.ElementBounds(ctx, el); err == nil {
			m.bounds = bounds
		}
		if component, err := e.adapter.NearestComponentName(ctx, el); err == nil {
			m.component = component
		}
		meta = append(meta, m)
	}
	return meta
}

func (e *Engine) resolveSourceFrame(ctx context.Context, el dom.Element) *types.SourceFrame {
	frames, err := e.adapter.SourceStack(ctx, el)
	if err != nil || len(frames) == 0 {
		return nil
	}
	return types.FirstLocatedFrame(frames)
}

// applyCopyResult settles a finished copy: advances or removes the labels,
// emits feedback and restores the interaction mode. Labels are resolved
// even when the session that started the copy is already gone, so none are
// ever stranded on screen.
func (e *Engine) applyCopyResult(seq uint64, elements []dom.Element, meta []elementMeta, labelIDs []uint64, result copier.Result, location *types.SourceLocation) {
	e.mu.Lock()
	if e.disposed {
		e.mu.Unlock()
		return
	}

	if result.Copied {
		for _, id := range labelIDs {
			e.completeLabelLocked(id)
		}
		for _, m := range meta {
			e.addGrabbedBoxLocked(m.element, m.bounds)
		}
	} else {
		for _, id := range labelIDs {
			e.removeLabelLocked(id)
		}
	}

	// No error surfaces here on failure: a copy that produced nothing was
	// never attempted, and structured-path errors already reached the error
	// hook from the orchestrator itself.
	targets := elements
	e.deferCallback(func(cb Callbacks) {
		if result.Copied {
			if cb.OnCopySuccess != nil {
				cb.OnCopySuccess(result.Text)
			}
			if cb.OnElementSelect != nil {
				cb.OnElementSelect(targets)
			}
			if location != nil && cb.OnOpenFile != nil {
				cb.OnOpenFile(location.FileName, location.LineNumber)
			}
		}
		if cb.OnAfterCopy != nil {
			cb.OnAfterCopy(targets, result.Copied)
		}
	})

	// Restore the mode only when this copy is still the current one.
	if seq == e.copySeq && e.mode == ModeCopying {
		e.stopProgressLocked()
		e.progress = 0
		switch {
		case e.toggleLatch:
			// Toggled sessions end after a successful or failed grab.
			e.deactivateLocked()
		case e.copyResume == ModeActivated:
			e.mode = ModeActivated
			e.requestHoverLocked()
		default:
			e.mode = ModeIdle
		}
	}
	e.unlockAndNotify()
}

// startProgressLocked animates the copy progress indicator: an exponential
// ease toward the cap that only completes when the real operation does.
// Callers must hold e.mu.
func (e *Engine) startProgressLocked() {
	e.stopProgressLocked()
	stop := make(chan struct{})
	e.progressStop = stop
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
			if e.mode != ModeCopying {
				e.mu.Unlock()
				return
			}
			e.progress += (e.opts.ProgressCap - e.progress) * e.opts.ProgressRate
			e.unlockAndNotify()
		}
	}()
}
