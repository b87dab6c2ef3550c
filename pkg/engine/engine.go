// Package engine implements the interaction core of the grab overlay: a
// mode machine driven by raw keyboard, pointer and visibility events that
// resolves page elements, orchestrates copies and hands grabbed context to
// an agent provider.
//
// The engine is safe for concurrent use. All state lives behind one mutex;
// slow page lookups run on their own goroutines and re-validate a sequence
// counter before applying results, so stale answers from a previous hover
// or copy are discarded.
package engine

import (
	"context"
	"sync"
	"time"

	"github.com/entrhq/grab/pkg/agentbridge"
	"github.com/entrhq/grab/pkg/config"
	"github.com/entrhq/grab/pkg/copier"
	"github.com/entrhq/grab/pkg/dom"
	"github.com/entrhq/grab/pkg/logging"
	"github.com/entrhq/grab/pkg/types"
)

// Engine is the interaction state machine. Construct with New; all methods
// are safe for concurrent use.
type Engine struct {
	mu sync.Mutex

	adapter     dom.Adapter
	cop         *copier.Copier
	bridge      *agentbridge.Bridge
	opts        config.Options
	theme       config.Theme
	callbacks   Callbacks
	broadcaster *types.Broadcaster
	logger      *logging.Logger
	shortcut    Shortcut

	ctx    context.Context
	cancel context.CancelFunc

	mode        Mode
	toggleLatch bool // activation survives key release
	disposed    bool

	// Raw pointer state, updated on every move regardless of mode.
	pointer     types.Point
	pagePointer types.Point
	touch       bool

	// Hover target while activated.
	target       dom.Element
	targetBounds types.Bounds
	targetLabel  string

	// Frozen element pinned during prompt entry, plus the gesture that
	// opened the prompt.
	frozen         dom.Element
	inputSelection *types.Rect
	inputPosition  types.Point

	// Drag gesture.
	pointerDown bool
	dragOrigin  *types.Point // page space; nil when no button is down

	// Activation key tracking.
	keyHeld     bool
	sawRepeat   bool

	holdTimer *time.Timer
	spamTimer *time.Timer
	blurTimer *time.Timer
	holdGen   uint64
	spamGen   uint64
	blurGen   uint64

	// Async lookup staleness guards.
	hoverSeq    uint64
	lastHoverAt time.Time
	copySeq     uint64
	copyResume  Mode // mode to return to when a copy finishes

	// Copy progress animation.
	progress     float64
	progressStop chan struct{}

	// Drag autoscroll loop.
	autoscrollStop chan struct{}

	// Transient feedback records.
	labelSeq      uint64
	labels        map[uint64]*Label
	labelOrder    []uint64
	labelTimers   map[uint64]*time.Timer
	grabbedSeq    uint64
	grabbedBoxes  map[uint64]*GrabbedBox
	grabbedOrder  []uint64
	grabbedTimers map[uint64]*time.Timer

	inputText string

	nativeSelection       NativeSelectionState
	selectionSeq          uint64
	textSelectionDisabled bool

	viewportW float64
	viewportH float64

	// Callback invocations queued under the lock, run after release.
	pending []func(Callbacks)
}

// Option customizes an Engine.
type Option func(*Engine)

// WithCallbacks sets the host observer surface.
func WithCallbacks(cb Callbacks) Option {
	return func(e *Engine) { e.callbacks = cb }
}

// WithOptions sets the runtime options. Zero fields fall back to defaults.
func WithOptions(opts config.Options) Option {
	return func(e *Engine) { e.opts = opts }
}

// WithTheme sets the overlay theme.
func WithTheme(theme config.Theme) Option {
	return func(e *Engine) { e.theme = theme }
}

// WithBroadcaster sets the page-global event broadcaster.
func WithBroadcaster(b *types.Broadcaster) Option {
	return func(e *Engine) { e.broadcaster = b }
}

// WithLogger sets the component logger.
func WithLogger(logger *logging.Logger) Option {
	return func(e *Engine) { e.logger = logger }
}

// WithCopier replaces the engine-constructed copy orchestrator.
func WithCopier(c *copier.Copier) Option {
	return func(e *Engine) { e.cop = c }
}

// WithBridge replaces the engine-constructed agent session bridge.
func WithBridge(b *agentbridge.Bridge) Option {
	return func(e *Engine) { e.bridge = b }
}

// New creates an engine over the given page adapter.
func New(adapter dom.Adapter, opts ...Option) (*Engine, error) {
	e := &Engine{
		adapter:       adapter,
		opts:          config.DefaultOptions(),
		theme:         config.DefaultTheme(),
		logger:        logging.NewNopLogger("engine"),
		labels:        make(map[uint64]*Label),
		labelTimers:   make(map[uint64]*time.Timer),
		grabbedBoxes:  make(map[uint64]*GrabbedBox),
		grabbedTimers: make(map[uint64]*time.Timer),
	}
	for _, opt := range opts {
		opt(e)
	}
	e.opts = e.opts.Normalize()

	shortcut, err := ParseShortcut(e.opts.Shortcut)
	if err != nil {
		return nil, err
	}
	e.shortcut = shortcut

	e.ctx, e.cancel = context.WithCancel(context.Background())

	if e.cop == nil {
		e.cop = copier.New(adapter,
			copier.WithMaxContextLines(e.opts.MaxContextLines),
			copier.WithBroadcaster(e.broadcaster),
			copier.WithLogger(e.logger),
			// Structured-path failures surface through the host's error
			// callback; the orchestrator fires this off the engine lock.
			copier.WithHooks(copier.Hooks{
				OnError: func(err error) {
					if e.callbacks.OnCopyError != nil {
						e.callbacks.OnCopyError(err)
					}
				},
			}),
		)
	}
	if e.bridge == nil {
		e.bridge = agentbridge.New(
			agentbridge.WithBroadcaster(e.broadcaster),
			agentbridge.WithLogger(e.logger),
		)
	}
	e.bridge.SetReentry(e.reenterSession)

	return e, nil
}

// ElementAt resolves the grabbable element under a viewport point. A nil
// element with a nil error means nothing grabbable is there.
func (e *Engine) ElementAt(ctx context.Context, x, y float64) (dom.Element, error) {
	el, err := e.adapter.ElementAtPoint(ctx, x, y)
	if err != nil {
		return nil, err
	}
	if el == nil || !e.adapter.IsValidGrabbable(el) {
		return nil, nil
	}
	return el, nil
}

// Bridge exposes the engine's agent session bridge.
func (e *Engine) Bridge() *agentbridge.Bridge {
	return e.bridge
}

// SetAgent registers the agent provider and host session callbacks. Any
// sessions the provider carried across a reload are resumed.
func (e *Engine) SetAgent(options agentbridge.Options) {
	e.bridge.SetOptions(e.ctx, options)
}

// SetViewport tells the engine the viewport size, used for drag autoscroll
// near the right and bottom edges. Zero disables those edges.
func (e *Engine) SetViewport(width, height float64) {
	e.mu.Lock()
	e.viewportW = width
	e.viewportH = height
	e.mu.Unlock()
}

// GetTheme returns the current theme.
func (e *Engine) GetTheme() config.Theme {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.theme
}

// UpdateTheme merges the non-zero fields of partial into the current theme.
func (e *Engine) UpdateTheme(partial config.Theme) {
	e.mu.Lock()
	e.theme = e.theme.Merge(partial)
	e.unlockAndNotify()
}

// IsActive reports whether the overlay is engaged.
func (e *Engine) IsActive() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.mode.engaged()
}

// Activate programmatically engages the overlay as a toggled session: it
// stays active until Deactivate or an explicit dismissal gesture.
func (e *Engine) Activate() {
	e.mu.Lock()
	if e.disposed || e.mode.engaged() {
		e.mu.Unlock()
		return
	}
	e.clearHoldTimerLocked()
	e.activateLocked(true)
	e.unlockAndNotify()
}

// Deactivate tears the overlay down.
func (e *Engine) Deactivate() {
	e.mu.Lock()
	e.deactivateLocked()
	e.unlockAndNotify()
}

// Toggle flips between engaged and idle.
func (e *Engine) Toggle() {
	e.mu.Lock()
	if e.disposed {
		e.mu.Unlock()
		return
	}
	if e.mode.engaged() {
		e.deactivateLocked()
	} else {
		e.clearHoldTimerLocked()
		e.activateLocked(true)
	}
	e.unlockAndNotify()
}

// Dispose tears down the engine: deactivates, cancels in-flight lookups,
// removes every transient label and box, and aborts open agent sessions.
// Safe to call more than once.
func (e *Engine) Dispose() {
	e.mu.Lock()
	if e.disposed {
		e.mu.Unlock()
		return
	}
	e.disposed = true
	e.deactivateLocked()
	e.clearTransientsLocked()
	e.unlockAndNotify()

	e.cancel()
	e.bridge.AbortAllSessions(context.Background())
}

// activateLocked enters live hover mode. Callers must hold e.mu.
func (e *Engine) activateLocked(toggled bool) {
	e.mode = ModeActivated
	e.toggleLatch = toggled
	e.textSelectionDisabled = true
	e.clearSelectionLocked()

	e.logger.Debugf("activated (toggled=%v)", toggled)
	e.publishLocked(types.EventTypeActivated)
	e.deferCallback(func(cb Callbacks) {
		if cb.OnActivate != nil {
			cb.OnActivate()
		}
	})

	// Resolve whatever is already under the cursor.
	e.requestHoverLocked()
}

// deactivateLocked returns to idle from any mode, cancelling every pending
// timer and in-flight lookup. Idempotent. Callers must hold e.mu.
func (e *Engine) deactivateLocked() {
	e.clearHoldTimerLocked()
	e.clearSpamTimerLocked()
	e.clearBlurTimerLocked()
	e.stopAutoscrollLocked()
	e.stopProgressLocked()

	if !e.mode.engaged() && e.mode != ModeHoldingKeys {
		e.mode = ModeIdle
		return
	}

	wasInput := e.mode == ModeInput
	hadTarget := e.target != nil

	e.mode = ModeIdle
	e.toggleLatch = false
	e.sawRepeat = false
	e.pointerDown = false
	e.dragOrigin = nil
	e.target = nil
	e.targetBounds = types.Bounds{}
	e.targetLabel = ""
	e.frozen = nil
	e.inputSelection = nil
	e.inputText = ""
	e.progress = 0
	e.textSelectionDisabled = false

	// Invalidate async answers from the torn-down session.
	e.hoverSeq++
	e.copySeq++

	e.logger.Debugf("deactivated")
	e.publishLocked(types.EventTypeDeactivated)
	e.deferCallback(func(cb Callbacks) {
		if wasInput && cb.OnInputModeChange != nil {
			cb.OnInputModeChange(false)
		}
		if hadTarget && cb.OnElementHover != nil {
			cb.OnElementHover(nil, types.Bounds{}, "")
		}
		if cb.OnCrosshair != nil {
			cb.OnCrosshair(0, 0, false)
		}
		if cb.OnDeactivate != nil {
			cb.OnDeactivate()
		}
	})
}

// dragRectLocked returns the live drag rectangle in page space, nil unless
// a drag is in progress. Callers must hold e.mu.
func (e *Engine) dragRectLocked() *types.Rect {
	if e.mode != ModeDragging || e.dragOrigin == nil {
		return nil
	}
	r := types.RectBetween(*e.dragOrigin, e.pagePointer)
	return &r
}

func (e *Engine) clearHoldTimerLocked() {
	e.holdGen++
	if e.holdTimer != nil {
		e.holdTimer.Stop()
		e.holdTimer = nil
	}
}

func (e *Engine) clearSpamTimerLocked() {
	e.spamGen++
	if e.spamTimer != nil {
		e.spamTimer.Stop()
		e.spamTimer = nil
	}
}

func (e *Engine) clearBlurTimerLocked() {
	e.blurGen++
	if e.blurTimer != nil {
		e.blurTimer.Stop()
		e.blurTimer = nil
	}
}

func (e *Engine) stopAutoscrollLocked() {
	if e.autoscrollStop != nil {
		close(e.autoscrollStop)
		e.autoscrollStop = nil
	}
}

func (e *Engine) stopProgressLocked() {
	if e.progressStop != nil {
		close(e.progressStop)
		e.progressStop = nil
	}
}

func (e *Engine) publishLocked(eventType types.GrabEventType) {
	if e.broadcaster == nil {
		return
	}
	e.broadcaster.Publish(types.GrabEvent{
		Type:      eventType,
		Active:    e.mode.engaged(),
		InputMode: e.mode == ModeInput,
	})
}

// deferCallback queues a callback invocation to run once the lock drops.
// Callers must hold e.mu and must exit through unlockAndNotify.
func (e *Engine) deferCallback(f func(Callbacks)) {
	e.pending = append(e.pending, f)
}

// unlockAndNotify releases the lock, runs the queued callbacks in order and
// then reports the settled state through OnStateChange.
func (e *Engine) unlockAndNotify() {
	pending := e.pending
	e.pending = nil
	snapshot := e.snapshotLocked()
	cb := e.callbacks
	e.mu.Unlock()

	for _, f := range pending {
		f(cb)
	}
	if cb.OnStateChange != nil {
		cb.OnStateChange(snapshot)
	}
}
