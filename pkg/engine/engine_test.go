package engine

import (
	"context"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/entrhq/grab/pkg/agentbridge"
	"github.com/entrhq/grab/pkg/config"
	"github.com/entrhq/grab/pkg/dom"
	"github.com/entrhq/grab/pkg/dom/domtest"
	"github.com/entrhq/grab/pkg/types"
)

var (
	altDown   = types.KeyEvent{Key: "Alt", Alt: true}
	altRepeat = types.KeyEvent{Key: "Alt", Alt: true, Repeat: true}
	altUp     = types.KeyEvent{Key: "Alt"}
)

func testOptions() config.Options {
	return config.Options{
		Shortcut:            "alt",
		HoldDuration:        20 * time.Millisecond,
		SpamGuardWindow:     40 * time.Millisecond,
		BlurThreshold:       60 * time.Millisecond,
		HoverThrottle:       time.Millisecond,
		DragThresholdPx:     4,
		MaxContextLines:     60,
		CopiedLabelDuration: 10 * time.Millisecond,
		FadeDuration:        10 * time.Millisecond,
		GrabbedBoxDuration:  10 * time.Millisecond,
		AutoscrollMargin:    48,
		AutoscrollSpeed:     12,
		FrameInterval:       2 * time.Millisecond,
		ProgressCap:         0.95,
		ProgressRate:        0.18,
	}
}

func newTestEngine(t *testing.T, fake dom.Adapter, extra ...Option) *Engine {
	t.Helper()
	opts := append([]Option{WithOptions(testOptions())}, extra...)
	e, err := New(fake, opts...)
	require.NoError(t, err)
	t.Cleanup(e.Dispose)
	return e
}

// holdActivate simulates a full press-and-hold activation.
func holdActivate(t *testing.T, e *Engine) {
	t.Helper()
	e.HandleKeyDown(altDown)
	require.Eventually(t, e.IsActive, time.Second, time.Millisecond)
}

// hoverOn moves the pointer and waits for the hover target to resolve.
func hoverOn(t *testing.T, e *Engine, x, y float64) {
	t.Helper()
	e.HandlePointerMove(types.NewPointerMove(x, y))
	require.Eventually(t, func() bool {
		return e.GetState().TargetElement != nil
	}, time.Second, time.Millisecond)
}

// recordingProvider is an in-memory agent provider. With a release channel
// set, StartSession blocks until the channel closes.
type recordingProvider struct {
	mu      sync.Mutex
	started []agentbridge.StartRequest
	aborted []string
	release chan struct{}
}

func (p *recordingProvider) StartSession(ctx context.Context, req agentbridge.StartRequest) error {
	p.mu.Lock()
	p.started = append(p.started, req)
	release := p.release
	p.mu.Unlock()
	if release != nil {
		select {
		case <-release:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	return nil
}

func (p *recordingProvider) AbortSession(_ context.Context, sessionID string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.aborted = append(p.aborted, sessionID)
	return nil
}

func (p *recordingProvider) ResumeSessions(context.Context) ([]agentbridge.ResumedSession, error) {
	return nil, nil
}

func (p *recordingProvider) requests() []agentbridge.StartRequest {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]agentbridge.StartRequest(nil), p.started...)
}

func TestHoldActivates(t *testing.T) {
	e := newTestEngine(t, &domtest.FakeAdapter{})
	require.False(t, e.IsActive())

	e.HandleKeyDown(altDown)
	assert.False(t, e.IsActive(), "activation requires the full hold")
	require.Eventually(t, e.IsActive, time.Second, time.Millisecond)
}

func TestReleaseBeforeHoldNeverActivates(t *testing.T) {
	e := newTestEngine(t, &domtest.FakeAdapter{})

	e.HandleKeyDown(altDown)
	e.HandleKeyUp(altUp)

	time.Sleep(3 * testOptions().HoldDuration)
	assert.False(t, e.IsActive())
}

func TestKeyReleaseDeactivatesHoldSession(t *testing.T) {
	e := newTestEngine(t, &domtest.FakeAdapter{})
	holdActivate(t, e)

	e.HandleKeyUp(altUp)
	assert.False(t, e.IsActive())
}

func TestToggleSessionSurvivesKeyRelease(t *testing.T) {
	e := newTestEngine(t, &domtest.FakeAdapter{})

	e.Activate()
	require.True(t, e.IsActive())

	e.HandleKeyUp(altUp)
	assert.True(t, e.IsActive(), "toggled sessions outlive the key")

	e.Deactivate()
	assert.False(t, e.IsActive())
}

func TestEscapeDeactivates(t *testing.T) {
	e := newTestEngine(t, &domtest.FakeAdapter{})
	e.Activate()

	e.HandleKeyDown(types.NewKeyDown("Escape"))
	assert.False(t, e.IsActive())
}

func TestOtherKeyCancelsPendingHold(t *testing.T) {
	e := newTestEngine(t, &domtest.FakeAdapter{})

	e.HandleKeyDown(altDown)
	e.HandleKeyDown(types.KeyEvent{Key: "x", Alt: true})

	time.Sleep(3 * testOptions().HoldDuration)
	assert.False(t, e.IsActive())
}

func TestOtherKeyDismissesHoldSessionButNotToggled(t *testing.T) {
	e := newTestEngine(t, &domtest.FakeAdapter{})
	holdActivate(t, e)

	e.HandleKeyDown(types.NewKeyDown("x"))
	assert.False(t, e.IsActive(), "hold sessions dismiss on any other chord")

	e.Activate()
	e.HandleKeyDown(types.NewKeyDown("x"))
	assert.True(t, e.IsActive(), "toggled sessions ignore other chords")
}

func TestKeyRepeatAloneNeverArmsHold(t *testing.T) {
	e := newTestEngine(t, &domtest.FakeAdapter{})

	// A repeat without a preceding real keydown (the tail of a key held
	// before a page load) must not start the hold.
	e.HandleKeyDown(altRepeat)

	time.Sleep(3 * testOptions().HoldDuration)
	assert.False(t, e.IsActive())
}

func TestSpamGuardTearsDownAutoFiredActivation(t *testing.T) {
	opts := testOptions()
	opts.BlurThreshold = 500 * time.Millisecond
	e, err := New(&domtest.FakeAdapter{}, WithOptions(opts))
	require.NoError(t, err)
	t.Cleanup(e.Dispose)

	e.HandleKeyDown(altDown)
	e.HandleKeyDown(altRepeat)
	require.Eventually(t, e.IsActive, time.Second, time.Millisecond)

	// The keyup is lost to a hidden tab; the guard notices the key is no
	// longer held and tears down well before the blur threshold.
	e.HandleVisibilityChange(false)
	require.Eventually(t, func() bool { return !e.IsActive() },
		200*time.Millisecond, time.Millisecond)
}

func TestBlurThresholdDeactivates(t *testing.T) {
	e := newTestEngine(t, &domtest.FakeAdapter{})
	holdActivate(t, e)

	e.HandleVisibilityChange(false)
	assert.True(t, e.IsActive(), "a brief flicker must not tear down")
	require.Eventually(t, func() bool { return !e.IsActive() },
		time.Second, time.Millisecond)
}

func TestVisibilityFlickerKeepsSession(t *testing.T) {
	e := newTestEngine(t, &domtest.FakeAdapter{})
	e.Activate()

	e.HandleVisibilityChange(false)
	e.HandleVisibilityChange(true)

	time.Sleep(3 * testOptions().BlurThreshold)
	assert.True(t, e.IsActive())
}

func TestClickGrabCopiesHoverTarget(t *testing.T) {
	button := domtest.NewElement("b1", "button")
	fake := &domtest.FakeAdapter{
		AtPointFn: func(x, y float64) dom.Element { return button },
		ContextFn: func(el dom.Element, _ dom.ContextOptions) (string, error) {
			return "<button> context", nil
		},
	}

	var copied []string
	var copiedMu sync.Mutex
	e := newTestEngine(t, fake, WithCallbacks(Callbacks{
		OnCopySuccess: func(text string) {
			copiedMu.Lock()
			copied = append(copied, text)
			copiedMu.Unlock()
		},
	}))

	holdActivate(t, e)
	hoverOn(t, e, 50, 50)

	e.HandlePointerDown(types.NewPointerMove(50, 50))
	e.HandlePointerUp(types.NewPointerMove(51, 51))

	require.Eventually(t, func() bool {
		copiedMu.Lock()
		defer copiedMu.Unlock()
		return len(copied) == 1
	}, time.Second, time.Millisecond)

	copiedMu.Lock()
	assert.Equal(t, []string{"<button> context"}, copied)
	copiedMu.Unlock()
	assert.Equal(t, []string{"<button> context"}, fake.WrittenTexts())

	assert.True(t, e.IsActive(), "hold sessions stay live after a grab")
}

func TestRepeatedGrabsCopyEveryTime(t *testing.T) {
	button := domtest.NewElement("b1", "button")
	fake := &domtest.FakeAdapter{
		AtPointFn: func(x, y float64) dom.Element { return button },
		ContextFn: func(dom.Element, dom.ContextOptions) (string, error) {
			return "same context", nil
		},
	}
	e := newTestEngine(t, fake)

	holdActivate(t, e)
	for i := 0; i < 2; i++ {
		hoverOn(t, e, 50, 50)
		e.HandlePointerDown(types.NewPointerMove(50, 50))
		e.HandlePointerUp(types.NewPointerMove(50, 50))
		want := i + 1
		require.Eventually(t, func() bool {
			return len(fake.WrittenTexts()) == want
		}, time.Second, time.Millisecond)
	}

	assert.Equal(t, []string{"same context", "same context"}, fake.WrittenTexts())
}

func TestLabelsAlwaysResolveToRemoval(t *testing.T) {
	button := domtest.NewElement("b1", "button")
	fake := &domtest.FakeAdapter{
		AtPointFn: func(x, y float64) dom.Element { return button },
		ContextFn: func(dom.Element, dom.ContextOptions) (string, error) {
			return "ctx", nil
		},
	}
	e := newTestEngine(t, fake)

	holdActivate(t, e)
	hoverOn(t, e, 10, 10)
	e.HandlePointerDown(types.NewPointerMove(10, 10))
	e.HandlePointerUp(types.NewPointerMove(10, 10))

	require.Eventually(t, func() bool {
		return len(fake.WrittenTexts()) == 1
	}, time.Second, time.Millisecond)

	require.Eventually(t, func() bool {
		s := e.GetState()
		return len(s.Labels) == 0 && len(s.GrabbedBoxes) == 0
	}, time.Second, time.Millisecond)
}

func TestTotalCopyFailureRemovesLabelsWithoutErrorHook(t *testing.T) {
	button := domtest.NewElement("b1", "button")
	fake := &domtest.FakeAdapter{
		AtPointFn: func(x, y float64) dom.Element { return button },
		ContextFn: func(dom.Element, dom.ContextOptions) (string, error) {
			return "ctx", nil
		},
		ClipboardErrs: []error{assert.AnError, assert.AnError},
	}

	errs := make(chan error, 1)
	after := make(chan bool, 1)
	e := newTestEngine(t, fake, WithCallbacks(Callbacks{
		OnCopyError: func(err error) { errs <- err },
		OnAfterCopy: func(_ []dom.Element, copied bool) { after <- copied },
	}))

	holdActivate(t, e)
	hoverOn(t, e, 10, 10)
	e.HandlePointerDown(types.NewPointerMove(10, 10))
	e.HandlePointerUp(types.NewPointerMove(10, 10))

	select {
	case copied := <-after:
		assert.False(t, copied)
	case <-time.After(time.Second):
		t.Fatal("after-copy hook never fired")
	}

	// Nothing could be produced, so nothing was attempted: the failure is
	// reported through the outcome alone, never the error hook.
	select {
	case err := <-errs:
		t.Fatalf("unexpected copy error: %v", err)
	default:
	}

	assert.Empty(t, fake.WrittenTexts())
	require.Eventually(t, func() bool {
		return len(e.GetState().Labels) == 0
	}, time.Second, time.Millisecond)
}

func TestStructuredPanicReportsErrorAndFallsBackToPlainText(t *testing.T) {
	button := domtest.NewElement("b1", "button")
	button.Content = "Submit"
	fake := &domtest.FakeAdapter{
		AtPointFn: func(x, y float64) dom.Element { return button },
		ContextFn: func(dom.Element, dom.ContextOptions) (string, error) {
			panic("snippet builder blew up")
		},
	}

	errs := make(chan error, 1)
	e := newTestEngine(t, fake, WithCallbacks(Callbacks{
		OnCopyError: func(err error) { errs <- err },
	}))

	holdActivate(t, e)
	hoverOn(t, e, 10, 10)
	e.HandlePointerDown(types.NewPointerMove(10, 10))
	e.HandlePointerUp(types.NewPointerMove(10, 10))

	select {
	case err := <-errs:
		require.Error(t, err)
	case <-time.After(time.Second):
		t.Fatal("structured-path failure never reached the error hook")
	}

	require.Eventually(t, func() bool {
		return len(fake.WrittenTexts()) == 1
	}, time.Second, time.Millisecond)
	assert.Equal(t, "Submit", fake.WrittenTexts()[0], "the plain-text fallback still lands")
}

func TestDragGrabsContainedElements(t *testing.T) {
	a := domtest.NewElement("a", "button")
	b := domtest.NewElement("b", "input")

	var gotRect types.Rect
	var rectMu sync.Mutex
	fake := &domtest.FakeAdapter{
		InRectFn: func(rect types.Rect) []dom.Element {
			rectMu.Lock()
			gotRect = rect
			rectMu.Unlock()
			return []dom.Element{a, b}
		},
		ContextFn: func(el dom.Element, _ dom.ContextOptions) (string, error) {
			return "ctx " + el.TagName(), nil
		},
	}
	e := newTestEngine(t, fake)

	e.Activate()
	e.HandlePointerMove(types.NewPointerMove(10, 10))
	e.HandlePointerDown(types.NewPointerMove(10, 10))
	e.HandlePointerMove(types.NewPointerMove(100, 100))

	state := e.GetState()
	require.True(t, state.IsDragging)
	require.NotNil(t, state.DragBounds)
	assert.Equal(t, types.Rect{X: 10, Y: 10, Width: 90, Height: 90}, *state.DragBounds)
	assert.Nil(t, state.TargetElement, "dragging selects by rectangle, not hover")

	e.HandlePointerUp(types.NewPointerMove(100, 100))

	require.Eventually(t, func() bool {
		return len(fake.WrittenTexts()) == 1
	}, time.Second, time.Millisecond)

	rectMu.Lock()
	assert.Equal(t, types.Rect{X: 10, Y: 10, Width: 90, Height: 90}, gotRect)
	rectMu.Unlock()

	text := fake.WrittenTexts()[0]
	assert.Contains(t, text, "ctx button")
	assert.Contains(t, text, "ctx input")

	// A toggled session ends once the grab lands.
	require.Eventually(t, func() bool { return !e.IsActive() },
		time.Second, time.Millisecond)
}

func TestDragFallsBackToIntersection(t *testing.T) {
	a := domtest.NewElement("a", "div")
	fake := &domtest.FakeAdapter{
		IntersectingFn: func(rect types.Rect) []dom.Element {
			return []dom.Element{a}
		},
		ContextFn: func(dom.Element, dom.ContextOptions) (string, error) {
			return "loose ctx", nil
		},
	}
	e := newTestEngine(t, fake)

	e.Activate()
	e.HandlePointerDown(types.NewPointerMove(10, 10))
	e.HandlePointerMove(types.NewPointerMove(60, 60))
	e.HandlePointerUp(types.NewPointerMove(60, 60))

	require.Eventually(t, func() bool {
		return len(fake.WrittenTexts()) == 1
	}, time.Second, time.Millisecond)
	assert.Equal(t, "loose ctx", fake.WrittenTexts()[0])
}

func TestEmptyDragIsNoop(t *testing.T) {
	fake := &domtest.FakeAdapter{}
	e := newTestEngine(t, fake)

	e.Activate()
	e.HandlePointerDown(types.NewPointerMove(10, 10))
	e.HandlePointerMove(types.NewPointerMove(60, 60))
	e.HandlePointerUp(types.NewPointerMove(60, 60))

	require.Eventually(t, func() bool {
		fakeState := e.GetState()
		return !fakeState.IsDragging
	}, time.Second, time.Millisecond)
	time.Sleep(20 * time.Millisecond)

	assert.Empty(t, fake.WrittenTexts())
	assert.True(t, e.IsActive(), "an empty rectangle leaves the session live")
}

func TestSubThresholdDragIsClick(t *testing.T) {
	button := domtest.NewElement("b1", "button")
	fake := &domtest.FakeAdapter{
		AtPointFn: func(x, y float64) dom.Element { return button },
		ContextFn: func(dom.Element, dom.ContextOptions) (string, error) {
			return "ctx", nil
		},
	}
	e := newTestEngine(t, fake)

	e.Activate()
	hoverOn(t, e, 10, 10)
	e.HandlePointerDown(types.NewPointerMove(10, 10))
	e.HandlePointerMove(types.NewPointerMove(12, 12))
	require.False(t, e.GetState().IsDragging)
	e.HandlePointerUp(types.NewPointerMove(12, 12))

	require.Eventually(t, func() bool {
		return len(fake.WrittenTexts()) == 1
	}, time.Second, time.Millisecond)
}

func TestClickBeforeHoverResolvesGrabsAtReleasePoint(t *testing.T) {
	button := domtest.NewElement("b1", "button")
	fake := &domtest.FakeAdapter{
		AtPointFn: func(x, y float64) dom.Element {
			if x < 20 {
				return nil
			}
			return button
		},
		ContextFn: func(dom.Element, dom.ContextOptions) (string, error) {
			return "ctx", nil
		},
	}
	e := newTestEngine(t, fake)

	// Click lands before any hover target has resolved: the element is
	// looked up fresh at the release point.
	e.Activate()
	e.HandlePointerDown(types.NewPointerMove(30, 30))
	e.HandlePointerUp(types.NewPointerMove(30, 30))

	require.Eventually(t, func() bool {
		return len(fake.WrittenTexts()) == 1
	}, time.Second, time.Millisecond)
	assert.Equal(t, "ctx", fake.WrittenTexts()[0])
}

func TestDragWithProviderOpensInputMode(t *testing.T) {
	a := domtest.NewElement("a", "form")
	fake := &domtest.FakeAdapter{
		InRectFn: func(types.Rect) []dom.Element { return []dom.Element{a} },
	}
	e := newTestEngine(t, fake)
	e.SetAgent(agentbridge.Options{Provider: &recordingProvider{}})

	e.Activate()
	e.HandlePointerDown(types.NewPointerMove(10, 10))
	e.HandlePointerMove(types.NewPointerMove(100, 100))
	e.HandlePointerUp(types.NewPointerMove(100, 100))

	require.Eventually(t, func() bool {
		return e.GetState().IsInputMode
	}, time.Second, time.Millisecond)

	state := e.GetState()
	assert.True(t, dom.SameElement(a, state.FrozenElement))
	assert.Empty(t, fake.WrittenTexts(), "a provider diverts the drag to prompt entry")
}

func TestEnterOpensInputModeOnTarget(t *testing.T) {
	button := domtest.NewElement("b1", "button")
	fake := &domtest.FakeAdapter{
		AtPointFn: func(x, y float64) dom.Element { return button },
	}
	e := newTestEngine(t, fake)

	holdActivate(t, e)
	hoverOn(t, e, 10, 10)

	e.HandleKeyDown(types.NewKeyDown("Enter"))
	state := e.GetState()
	require.True(t, state.IsInputMode)
	assert.True(t, dom.SameElement(button, state.FrozenElement))
	assert.Nil(t, state.TargetElement)

	// Opening the prompt latches the session: key release no longer ends it.
	e.HandleKeyUp(altUp)
	assert.True(t, e.GetState().IsInputMode)
}

func TestEnterDuringHoldOpensInputMode(t *testing.T) {
	e := newTestEngine(t, &domtest.FakeAdapter{})

	// Enter before the hold elapses latches straight into prompt entry
	// instead of waiting out the hold.
	e.HandleKeyDown(altDown)
	e.HandleKeyDown(types.NewKeyDown("Enter"))

	state := e.GetState()
	require.True(t, state.IsInputMode)
	assert.True(t, state.IsActive)

	e.HandleKeyUp(altUp)
	assert.True(t, e.GetState().IsInputMode, "the session is latched")
}

func TestEnterWithoutTargetStillOpensInputMode(t *testing.T) {
	e := newTestEngine(t, &domtest.FakeAdapter{})
	holdActivate(t, e)

	// No hover has resolved; Enter still opens the prompt, unpinned.
	e.HandleKeyDown(types.NewKeyDown("Enter"))

	state := e.GetState()
	require.True(t, state.IsInputMode)
	assert.Nil(t, state.FrozenElement)
	assert.True(t, e.IsActive())
}

func TestSubmitWithoutProviderCopiesWithInstruction(t *testing.T) {
	button := domtest.NewElement("b1", "button")
	fake := &domtest.FakeAdapter{
		AtPointFn: func(x, y float64) dom.Element { return button },
		ContextFn: func(dom.Element, dom.ContextOptions) (string, error) {
			return "<button> context", nil
		},
	}
	e := newTestEngine(t, fake)

	e.Activate()
	hoverOn(t, e, 10, 10)
	e.HandleKeyDown(types.NewKeyDown("Enter"))

	e.SetInputText("make it red")
	e.SubmitInput()

	require.Eventually(t, func() bool {
		return len(fake.WrittenTexts()) == 1
	}, time.Second, time.Millisecond)
	text := fake.WrittenTexts()[0]
	assert.True(t, strings.HasPrefix(text, "make it red"), "instruction leads the copy: %q", text)
	assert.Contains(t, text, "<button> context")
}

func TestSubmitWithProviderStartsAgentSession(t *testing.T) {
	button := domtest.NewElement("b1", "button")
	fake := &domtest.FakeAdapter{
		AtPointFn: func(x, y float64) dom.Element { return button },
		ContextFn: func(dom.Element, dom.ContextOptions) (string, error) {
			return "<button> context", nil
		},
	}
	provider := &recordingProvider{}
	e := newTestEngine(t, fake)
	e.SetAgent(agentbridge.Options{Provider: provider})

	e.Activate()
	hoverOn(t, e, 10, 10)
	e.HandleKeyDown(types.NewKeyDown("Enter"))
	e.SetInputText("make it blue")
	e.SubmitInput()

	require.Eventually(t, func() bool {
		return len(provider.requests()) == 1
	}, time.Second, time.Millisecond)

	req := provider.requests()[0]
	assert.Equal(t, "make it blue", req.Prompt)
	assert.Equal(t, "<button> context", req.Context)
	assert.True(t, dom.SameElement(button, req.Element))
	assert.Empty(t, fake.WrittenTexts(), "handoff replaces the clipboard copy")
	assert.False(t, e.IsActive(), "the overlay closes once the agent owns the request")
}

func TestAbortReentryPreservesPrompt(t *testing.T) {
	button := domtest.NewElement("b1", "button")
	fake := &domtest.FakeAdapter{
		AtPointFn: func(x, y float64) dom.Element { return button },
	}
	provider := &recordingProvider{release: make(chan struct{})}
	defer close(provider.release)

	e := newTestEngine(t, fake)
	e.SetAgent(agentbridge.Options{Provider: provider})

	e.Activate()
	hoverOn(t, e, 10, 10)
	e.HandleKeyDown(types.NewKeyDown("Enter"))
	e.SetInputText("make it blue")
	e.SubmitInput()

	require.Eventually(t, func() bool {
		return len(e.Bridge().Sessions()) == 1
	}, time.Second, time.Millisecond)
	session := e.Bridge().Sessions()[0]

	require.NoError(t, e.Bridge().AbortSession(context.Background(), session.ID))

	require.Eventually(t, func() bool {
		state := e.GetState()
		return state.IsInputMode && state.InputText == "make it blue"
	}, time.Second, time.Millisecond)
	assert.True(t, dom.SameElement(button, e.GetState().FrozenElement))
}

func TestEscapeInInputModeClosesPromptWhenNoSessions(t *testing.T) {
	button := domtest.NewElement("b1", "button")
	fake := &domtest.FakeAdapter{
		AtPointFn: func(x, y float64) dom.Element { return button },
	}
	e := newTestEngine(t, fake)

	e.Activate()
	hoverOn(t, e, 10, 10)
	e.HandleKeyDown(types.NewKeyDown("Enter"))
	require.True(t, e.GetState().IsInputMode)

	e.HandleKeyDown(types.NewKeyDown("Escape"))
	state := e.GetState()
	assert.False(t, state.IsInputMode)
	assert.False(t, state.IsActive, "nothing was submitted, the session ends with the prompt")
}

func TestEscapeInInputModeAbortsProcessingSessions(t *testing.T) {
	button := domtest.NewElement("b1", "button")
	fake := &domtest.FakeAdapter{
		AtPointFn: func(x, y float64) dom.Element { return button },
	}
	provider := &recordingProvider{release: make(chan struct{})}
	defer close(provider.release)

	e := newTestEngine(t, fake)
	e.SetAgent(agentbridge.Options{Provider: provider})

	e.Activate()
	hoverOn(t, e, 10, 10)
	e.HandleKeyDown(types.NewKeyDown("Enter"))
	e.SetInputText("fix the label")
	e.SubmitInput()

	require.Eventually(t, func() bool {
		return e.Bridge().IsProcessing()
	}, time.Second, time.Millisecond)

	// Re-open the prompt while the session is still processing. Escape now
	// aborts the session instead of closing the prompt.
	e.Activate()
	hoverOn(t, e, 10, 10)
	e.HandleKeyDown(types.NewKeyDown("Enter"))
	require.True(t, e.GetState().IsInputMode)

	e.HandleKeyDown(types.NewKeyDown("Escape"))

	require.Eventually(t, func() bool {
		provider.mu.Lock()
		defer provider.mu.Unlock()
		return len(provider.aborted) == 1
	}, time.Second, time.Millisecond)
	assert.True(t, e.GetState().IsInputMode, "escape aborted the session, the prompt stays")
}

func TestClickingAwayDismissesPrompt(t *testing.T) {
	button := domtest.NewElement("b1", "button")
	fake := &domtest.FakeAdapter{
		AtPointFn: func(x, y float64) dom.Element { return button },
	}
	e := newTestEngine(t, fake)

	e.Activate()
	hoverOn(t, e, 10, 10)
	e.HandleKeyDown(types.NewKeyDown("Enter"))
	require.True(t, e.GetState().IsInputMode)

	e.HandlePointerDown(types.NewPointerMove(300, 300))
	assert.False(t, e.GetState().IsInputMode)
	assert.False(t, e.IsActive(), "clicking away cancels the whole session")
}

func TestCopyElementFromIdle(t *testing.T) {
	button := domtest.NewElement("b1", "button")
	fake := &domtest.FakeAdapter{
		ContextFn: func(dom.Element, dom.ContextOptions) (string, error) {
			return "<button> context", nil
		},
	}
	e := newTestEngine(t, fake)

	assert.True(t, e.CopyElement(button, "check this"))
	assert.Equal(t, []string{"check this\n\n<button> context"}, fake.WrittenTexts())

	require.Eventually(t, func() bool {
		return e.GetState().Mode == ModeIdle
	}, time.Second, time.Millisecond)
	assert.False(t, e.IsActive())
}

func TestCopyElementReportsFailure(t *testing.T) {
	button := domtest.NewElement("b1", "button")
	fake := &domtest.FakeAdapter{
		ClipboardErrs: []error{assert.AnError, assert.AnError},
	}
	e := newTestEngine(t, fake)

	assert.False(t, e.CopyElement(button, ""))
	assert.Empty(t, fake.WrittenTexts())
}

func TestCopyElementsEmptyListIsNoop(t *testing.T) {
	fake := &domtest.FakeAdapter{}
	var hooks []string
	var hooksMu sync.Mutex
	record := func(name string) {
		hooksMu.Lock()
		hooks = append(hooks, name)
		hooksMu.Unlock()
	}
	e := newTestEngine(t, fake, WithCallbacks(Callbacks{
		OnBeforeCopy: func([]dom.Element) { record("before") },
		OnAfterCopy:  func([]dom.Element, bool) { record("after") },
	}))

	assert.False(t, e.CopyElements(nil, ""))
	assert.False(t, e.CopyElement(nil, ""))

	assert.Empty(t, fake.WrittenTexts())
	hooksMu.Lock()
	assert.Empty(t, hooks, "an empty grab fires no hooks")
	hooksMu.Unlock()
}

func TestBeforeCopyHookRunsBeforeResolution(t *testing.T) {
	button := domtest.NewElement("b1", "button")

	var events []string
	var eventsMu sync.Mutex
	record := func(name string) {
		eventsMu.Lock()
		events = append(events, name)
		eventsMu.Unlock()
	}

	fake := &domtest.FakeAdapter{
		BoundsFn: func(dom.Element) (types.Bounds, error) {
			record("bounds")
			return types.Bounds{Width: 10, Height: 10}, nil
		},
		ContextFn: func(dom.Element, dom.ContextOptions) (string, error) {
			record("context")
			return "ctx", nil
		},
	}
	e := newTestEngine(t, fake, WithCallbacks(Callbacks{
		OnBeforeCopy: func([]dom.Element) { record("before") },
	}))

	require.True(t, e.CopyElement(button, ""))

	eventsMu.Lock()
	defer eventsMu.Unlock()
	require.NotEmpty(t, events)
	assert.Equal(t, "before", events[0], "no lookup may precede the before hook")
}

func TestOpenFileCallbackOnGrab(t *testing.T) {
	button := domtest.NewElement("b1", "button")
	fake := &domtest.FakeAdapter{
		AtPointFn: func(x, y float64) dom.Element { return button },
		ContextFn: func(dom.Element, dom.ContextOptions) (string, error) {
			return "ctx", nil
		},
		StackFn: func(dom.Element) ([]types.SourceFrame, error) {
			return []types.SourceFrame{
				{ComponentName: "Anonymous"},
				{ComponentName: "SubmitButton", Source: &types.SourceLocation{FileName: "src/Submit.tsx", LineNumber: 42}},
			}, nil
		},
	}

	type opened struct {
		file string
		line int
	}
	got := make(chan opened, 1)
	e := newTestEngine(t, fake, WithCallbacks(Callbacks{
		OnOpenFile: func(file string, line int) { got <- opened{file, line} },
	}))

	holdActivate(t, e)
	hoverOn(t, e, 10, 10)
	e.HandlePointerDown(types.NewPointerMove(10, 10))
	e.HandlePointerUp(types.NewPointerMove(10, 10))

	select {
	case o := <-got:
		assert.Equal(t, "src/Submit.tsx", o.file)
		assert.Equal(t, 42, o.line)
	case <-time.After(time.Second):
		t.Fatal("open-file callback never fired")
	}
}

func TestDisposeIsIdempotent(t *testing.T) {
	e := newTestEngine(t, &domtest.FakeAdapter{})
	e.Activate()

	e.Dispose()
	e.Dispose()

	assert.False(t, e.IsActive())
	assert.Empty(t, e.GetState().Labels)

	// A disposed engine ignores further events.
	e.HandleKeyDown(altDown)
	time.Sleep(3 * testOptions().HoldDuration)
	assert.False(t, e.IsActive())
}

func TestUpdateThemeMerges(t *testing.T) {
	e := newTestEngine(t, &domtest.FakeAdapter{})

	before := e.GetTheme()
	e.UpdateTheme(config.Theme{PrimaryColor: "#ff0000"})

	after := e.GetTheme()
	assert.Equal(t, "#ff0000", after.PrimaryColor)
	assert.Equal(t, before.LabelText, after.LabelText, "unset fields keep their values")
}
