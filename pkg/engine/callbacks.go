package engine

import (
	"github.com/entrhq/grab/pkg/dom"
	"github.com/entrhq/grab/pkg/types"
)

// Callbacks is the optional observer surface exposed to the host
// application. Every field may be nil. Callbacks are invoked synchronously
// from the engine with the lock released, in a stable order after state
// settles for the triggering event.
type Callbacks struct {
	// OnActivate fires when the overlay enters its live hover mode.
	OnActivate func()

	// OnDeactivate fires when the overlay is torn down.
	OnDeactivate func()

	// OnElementHover fires when the hover target changes. The label text
	// is the user-facing description ("<button> in SubmitButton").
	OnElementHover func(el dom.Element, bounds types.Bounds, label string)

	// OnElementSelect fires with the full set of newly selected elements
	// whenever a copy completes successfully.
	OnElementSelect func(elements []dom.Element)

	// OnCopySuccess fires once per successful copy with the final text.
	OnCopySuccess func(text string)

	// OnCopyError fires when the structured copy path fails outright.
	OnCopyError func(err error)

	// OnAfterCopy always fires after a copy attempt, success or failure.
	OnAfterCopy func(elements []dom.Element, copied bool)

	// OnBeforeCopy fires before any resolution attempt and is awaited.
	OnBeforeCopy func(elements []dom.Element)

	// OnGrabbedBox fires when a transient post-grab feedback box appears.
	OnGrabbedBox func(box GrabbedBox)

	// OnElementLabel fires when a label is created or changes stage.
	OnElementLabel func(label Label)

	// OnSuccessLabel fires when a label reaches its copied stage.
	OnSuccessLabel func(label Label)

	// OnStateChange fires after every observable state transition.
	OnStateChange func(state State)

	// OnInputModeChange fires when prompt entry opens or closes.
	OnInputModeChange func(open bool)

	// OnCrosshair fires when the crosshair position or visibility changes.
	OnCrosshair func(x, y float64, visible bool)

	// OnDragBox fires with the live drag rectangle, nil when it clears.
	OnDragBox func(rect *types.Rect)

	// OnSelectionBox fires with the native selection's bounds, nil when
	// the selection clears.
	OnSelectionBox func(rect *types.Rect)

	// OnDragStart fires at drag begin with the page-space start point.
	OnDragStart func(start types.Point)

	// OnDragEnd fires when a drag gesture resolves, with the elements in
	// the rectangle and the rectangle itself.
	OnDragEnd func(elements []dom.Element, rect types.Rect)

	// OnOpenFile fires when a grabbed element resolves to a source
	// location.
	OnOpenFile func(fileName string, lineNumber int)
}
