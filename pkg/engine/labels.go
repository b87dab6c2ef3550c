package engine

import (
	"time"

	"github.com/entrhq/grab/pkg/dom"
	"github.com/entrhq/grab/pkg/types"
)

// LabelStatus is a label's lifecycle stage. Each stage schedules the next,
// so every created label is eventually removed.
type LabelStatus string

const (
	LabelCopying LabelStatus = "copying" // LabelCopying shows while the copy is in flight.
	LabelCopied  LabelStatus = "copied"  // LabelCopied shows the success stage.
	LabelFading  LabelStatus = "fading"  // LabelFading is the removal animation stage.
)

// Label is a self-expiring record of one in-flight or recently finished
// copy. Labels are keyed by a monotonic id, not by element, so a new hover
// copy never collides with a fading old one.
type Label struct {
	ID            uint64
	Bounds        types.Bounds
	TagName       string
	ComponentName string
	Status        LabelStatus
	CreatedAt     time.Time
	SourceElement dom.Element
}

// GrabbedBox is transient cosmetic feedback shown briefly after a
// successful grab and removed by a timer.
type GrabbedBox struct {
	ID        uint64
	Bounds    types.Bounds
	CreatedAt time.Time
	Element   dom.Element
}

// addLabelLocked creates a copying-stage label. Callers must hold e.mu.
func (e *Engine) addLabelLocked(el dom.Element, bounds types.Bounds, componentName string) *Label {
	e.labelSeq++
	label := &Label{
		ID:            e.labelSeq,
		Bounds:        bounds,
		TagName:       elementTag(el),
		ComponentName: componentName,
		Status:        LabelCopying,
		CreatedAt:     time.Now(),
		SourceElement: el,
	}
	e.labels[label.ID] = label
	e.labelOrder = append(e.labelOrder, label.ID)
	return label
}

// completeLabelLocked advances a label to its copied stage and schedules the
// fade and removal steps. Callers must hold e.mu.
func (e *Engine) completeLabelLocked(id uint64) {
	label, ok := e.labels[id]
	if !ok {
		return
	}
	label.Status = LabelCopied
	snapshot := *label

	e.labelTimers[id] = time.AfterFunc(e.opts.CopiedLabelDuration, func() {
		e.fadeLabel(id)
	})

	e.deferCallback(func(cb Callbacks) {
		if cb.OnElementLabel != nil {
			cb.OnElementLabel(snapshot)
		}
		if cb.OnSuccessLabel != nil {
			cb.OnSuccessLabel(snapshot)
		}
	})
}

// fadeLabel moves a label into its fading stage and schedules removal.
func (e *Engine) fadeLabel(id uint64) {
	e.mu.Lock()
	label, ok := e.labels[id]
	if !ok {
		e.mu.Unlock()
		return
	}
	label.Status = LabelFading
	snapshot := *label
	e.labelTimers[id] = time.AfterFunc(e.opts.FadeDuration, func() {
		e.removeLabel(id)
	})
	e.deferCallback(func(cb Callbacks) {
		if cb.OnElementLabel != nil {
			cb.OnElementLabel(snapshot)
		}
	})
	e.unlockAndNotify()
}

// removeLabel drops a label entirely.
func (e *Engine) removeLabel(id uint64) {
	e.mu.Lock()
	if _, ok := e.labels[id]; !ok {
		if timer, ok := e.labelTimers[id]; ok {
			timer.Stop()
			delete(e.labelTimers, id)
		}
		e.mu.Unlock()
		return
	}
	e.removeLabelLocked(id)
	e.unlockAndNotify()
}

// removeLabelLocked drops a label and its timer. Callers must hold e.mu.
func (e *Engine) removeLabelLocked(id uint64) {
	if timer, ok := e.labelTimers[id]; ok {
		timer.Stop()
		delete(e.labelTimers, id)
	}
	delete(e.labels, id)
	e.labelOrder = removeID(e.labelOrder, id)
}

// addGrabbedBoxLocked records the post-grab feedback box and schedules its
// removal. Callers must hold e.mu.
func (e *Engine) addGrabbedBoxLocked(el dom.Element, bounds types.Bounds) {
	e.grabbedSeq++
	box := &GrabbedBox{
		ID:        e.grabbedSeq,
		Bounds:    bounds,
		CreatedAt: time.Now(),
		Element:   el,
	}
	e.grabbedBoxes[box.ID] = box
	e.grabbedOrder = append(e.grabbedOrder, box.ID)

	id := box.ID
	e.grabbedTimers[id] = time.AfterFunc(e.opts.GrabbedBoxDuration, func() {
		e.removeGrabbedBox(id)
	})

	snapshot := *box
	e.deferCallback(func(cb Callbacks) {
		if cb.OnGrabbedBox != nil {
			cb.OnGrabbedBox(snapshot)
		}
	})
}

// removeGrabbedBox drops a grabbed box.
func (e *Engine) removeGrabbedBox(id uint64) {
	e.mu.Lock()
	if timer, ok := e.grabbedTimers[id]; ok {
		timer.Stop()
		delete(e.grabbedTimers, id)
	}
	if _, ok := e.grabbedBoxes[id]; !ok {
		e.mu.Unlock()
		return
	}
	delete(e.grabbedBoxes, id)
	e.grabbedOrder = removeID(e.grabbedOrder, id)
	e.unlockAndNotify()
}

// clearTransientsLocked cancels every label and grabbed-box timer and drops
// the records. Used on dispose. Callers must hold e.mu.
func (e *Engine) clearTransientsLocked() {
	for id, timer := range e.labelTimers {
		timer.Stop()
		delete(e.labelTimers, id)
	}
	for id, timer := range e.grabbedTimers {
		timer.Stop()
		delete(e.grabbedTimers, id)
	}
	e.labels = make(map[uint64]*Label)
	e.labelOrder = nil
	e.grabbedBoxes = make(map[uint64]*GrabbedBox)
	e.grabbedOrder = nil
}

func removeID(ids []uint64, id uint64) []uint64 {
	for i, v := range ids {
		if v == id {
			return append(ids[:i], ids[i+1:]...)
		}
	}
	return ids
}

func elementTag(el dom.Element) string {
	if el == nil {
		return ""
	}
	return el.TagName()
}
