package engine

import (
	"strings"

	"github.com/entrhq/grab/pkg/agentbridge"
	"github.com/entrhq/grab/pkg/dom"
	"github.com/entrhq/grab/pkg/types"
)

// SetInputText updates the prompt text during input mode.
func (e *Engine) SetInputText(text string) {
	e.mu.Lock()
	if e.disposed || e.mode != ModeInput {
		e.mu.Unlock()
		return
	}
	e.inputText = text
	e.unlockAndNotify()
}

// SubmitInput submits the prompt: handed to the agent provider when one is
// registered, otherwise copied to the clipboard as an instruction prefix on
// the element's context.
func (e *Engine) SubmitInput() {
	e.mu.Lock()
	if e.disposed || e.mode != ModeInput {
		e.mu.Unlock()
		return
	}
	e.submitInputLocked()
	e.unlockAndNotify()
}

// CancelInput dismisses the prompt and tears the session down.
func (e *Engine) CancelInput() {
	e.mu.Lock()
	if e.disposed || e.mode != ModeInput {
		e.mu.Unlock()
		return
	}
	e.cancelInputLocked()
	e.unlockAndNotify()
}

// enterInputModeLocked pins an element and opens prompt entry. The session
// becomes toggled: releasing the activation key no longer tears it down.
// Callers must hold e.mu.
func (e *Engine) enterInputModeLocked(el dom.Element, selection *types.Rect) {
	e.mode = ModeInput
	e.frozen = el
	e.toggleLatch = true
	e.inputSelection = selection
	e.inputPosition = e.pointer
	e.inputText = ""

	// The hover target is superseded by the pinned element.
	e.hoverSeq++
	e.target = nil
	e.targetBounds = types.Bounds{}
	e.targetLabel = ""

	e.publishLocked(types.EventTypeInputModeChanged)
	e.deferCallback(func(cb Callbacks) {
		if cb.OnInputModeChange != nil {
			cb.OnInputModeChange(true)
		}
	})
}

// submitInputLocked resolves a prompt submission. Callers must hold e.mu.
func (e *Engine) submitInputLocked() {
	prompt := strings.TrimSpace(e.inputText)
	if prompt == "" || e.frozen == nil {
		return
	}

	el := e.frozen
	selection := e.inputSelection
	position := e.inputPosition
	ctx := e.ctx

	if e.bridge.HasProvider() {
		// Hand off to the agent and close the overlay; the session runs
		// in the background and re-opens the prompt if aborted.
		e.deactivateLocked()
		go func() {
			contextText, err := e.adapter.ElementContext(ctx, el, dom.ContextOptions{MaxLines: e.opts.MaxContextLines})
			if err != nil {
				e.logger.Warnf("context resolution for agent handoff failed: %v", err)
			}
			if _, err := e.bridge.StartSession(ctx, el, prompt, contextText, position, selection); err != nil {
				e.logger.Errorf("agent session start failed: %v", err)
			}
		}()
		return
	}

	// No provider: the prompt becomes an instruction prefix on a normal
	// copy of the pinned element.
	e.mode = ModeActivated
	e.frozen = nil
	e.inputSelection = nil
	e.inputText = ""
	e.publishLocked(types.EventTypeInputModeChanged)
	e.deferCallback(func(cb Callbacks) {
		if cb.OnInputModeChange != nil {
			cb.OnInputModeChange(false)
		}
	})
	e.startCopyLocked([]dom.Element{el}, prompt, nil)
}

// escapeInputLocked handles Escape during prompt entry: with agent
// sessions in flight it aborts them instead of closing the prompt.
// Callers must hold e.mu.
func (e *Engine) escapeInputLocked() {
	if e.bridge.IsProcessing() {
		ctx := e.ctx
		go e.bridge.AbortAllSessions(ctx)
		return
	}
	e.cancelInputLocked()
}

// cancelInputLocked dismisses the prompt without submitting. Nothing was
// handed off, so the whole session tears down to idle. Callers must hold
// e.mu.
func (e *Engine) cancelInputLocked() {
	if e.mode != ModeInput {
		return
	}
	e.deactivateLocked()
	e.publishLocked(types.EventTypeInputModeChanged)
}

// reenterSession re-opens prompt entry for an aborted agent session with
// its prompt preserved. Invoked by the bridge when the session's element is
// still attached.
func (e *Engine) reenterSession(session agentbridge.Session) {
	e.mu.Lock()
	if e.disposed || session.Element == nil {
		e.mu.Unlock()
		return
	}
	if e.mode == ModeCopying {
		// A copy in flight wins; the abort is absorbed.
		e.mu.Unlock()
		return
	}

	if !e.mode.engaged() {
		e.activateLocked(true)
	}
	e.enterInputModeLocked(session.Element, session.SelectionBounds)
	e.inputText = session.Prompt
	e.inputPosition = session.Position
	e.unlockAndNotify()
}
