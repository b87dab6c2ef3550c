package engine

import (
	"time"

	"github.com/entrhq/grab/pkg/types"
)

// HandleKeyDown feeds a raw keydown event into the mode machine.
func (e *Engine) HandleKeyDown(ev types.KeyEvent) {
	e.mu.Lock()
	if e.disposed {
		e.mu.Unlock()
		return
	}

	// Prompt entry consumes its own keys; only Enter and Escape reach the
	// mode machine.
	if e.mode == ModeInput {
		switch ev.Key {
		case "Enter":
			e.submitInputLocked()
		case "Escape":
			e.escapeInputLocked()
		}
		e.unlockAndNotify()
		return
	}

	if ev.Key == "Escape" {
		if e.mode == ModeHoldingKeys || e.mode.engaged() {
			e.deactivateLocked()
		}
		e.unlockAndNotify()
		return
	}

	// Enter during the hold or while activated latches the session and
	// opens prompt entry pinned to whatever the hover has resolved so far.
	if ev.Key == "Enter" && (e.mode == ModeHoldingKeys || e.mode == ModeActivated) {
		if e.mode == ModeHoldingKeys {
			e.clearHoldTimerLocked()
			e.activateLocked(true)
		}
		e.enterInputModeLocked(e.target, nil)
		e.unlockAndNotify()
		return
	}

	if e.shortcut.MatchesHold(ev) && (!ev.FromTextInput || e.opts.AllowWhileTyping) {
		e.handleActivationKeyLocked(ev)
		e.unlockAndNotify()
		return
	}

	// Any other chord while holding cancels the pending activation; while
	// engaged it dismisses a non-toggled session.
	if e.mode == ModeHoldingKeys {
		e.deactivateLocked()
	} else if e.mode.engaged() && !e.toggleLatch {
		e.deactivateLocked()
	}
	e.unlockAndNotify()
}

// HandleKeyUp feeds a raw keyup event into the mode machine.
func (e *Engine) HandleKeyUp(ev types.KeyEvent) {
	e.mu.Lock()
	if e.disposed {
		e.mu.Unlock()
		return
	}

	if !e.shortcut.MatchesRelease(ev) {
		e.mu.Unlock()
		return
	}

	e.keyHeld = false

	switch {
	case e.mode == ModeHoldingKeys:
		// Released before the hold elapsed: never activates.
		e.deactivateLocked()
	case e.mode.engaged() && !e.toggleLatch && e.mode != ModeInput:
		e.deactivateLocked()
	}
	e.unlockAndNotify()
}

// handleActivationKeyLocked processes a keydown matching the activation
// chord. Callers must hold e.mu.
func (e *Engine) handleActivationKeyLocked(ev types.KeyEvent) {
	if ev.Repeat {
		// OS key repeat. Never re-arms the hold timer; remembered so the
		// spam guard can tell an auto-fired activation from a real hold.
		e.sawRepeat = true
		e.keyHeld = true
		return
	}

	e.keyHeld = true
	if e.mode != ModeIdle {
		return
	}

	e.mode = ModeHoldingKeys
	e.sawRepeat = false
	e.armHoldTimerLocked()
}

func (e *Engine) armHoldTimerLocked() {
	e.clearHoldTimerLocked()
	gen := e.holdGen
	e.holdTimer = time.AfterFunc(e.opts.HoldDuration, func() {
		e.holdElapsed(gen)
	})
}

// holdElapsed fires when the activation chord has been held long enough.
func (e *Engine) holdElapsed(gen uint64) {
	e.mu.Lock()
	if e.disposed || gen != e.holdGen || e.mode != ModeHoldingKeys {
		e.mu.Unlock()
		return
	}

	spamSuspect := e.sawRepeat
	e.activateLocked(false)

	// When the activation rode in on key repeat the keyup may already be
	// in flight. Re-check shortly after and tear down if the key is gone.
	if spamSuspect {
		e.armSpamTimerLocked()
	}
	e.unlockAndNotify()
}

func (e *Engine) armSpamTimerLocked() {
	e.clearSpamTimerLocked()
	gen := e.spamGen
	e.spamTimer = time.AfterFunc(e.opts.SpamGuardWindow, func() {
		e.spamElapsed(gen)
	})
}

func (e *Engine) spamElapsed(gen uint64) {
	e.mu.Lock()
	if e.disposed || gen != e.spamGen {
		e.mu.Unlock()
		return
	}
	if !e.keyHeld && !e.toggleLatch && e.mode.engaged() {
		e.logger.Debugf("spam guard: key released around auto-fire, deactivating")
		e.deactivateLocked()
	}
	e.unlockAndNotify()
}

// HandleVisibilityChange feeds tab visibility into the mode machine. A tab
// hidden longer than the blur threshold tears the overlay down; a quick
// flicker (window switch previews, notifications) does not.
func (e *Engine) HandleVisibilityChange(visible bool) {
	e.mu.Lock()
	if e.disposed {
		e.mu.Unlock()
		return
	}

	if visible {
		e.clearBlurTimerLocked()
		e.mu.Unlock()
		return
	}

	if e.mode == ModeHoldingKeys {
		// The keyup will never arrive once the tab is hidden.
		e.keyHeld = false
		e.deactivateLocked()
		e.unlockAndNotify()
		return
	}
	if !e.mode.engaged() || e.mode == ModeInput {
		e.mu.Unlock()
		return
	}

	e.keyHeld = false
	e.armBlurTimerLocked()
	e.mu.Unlock()
}

func (e *Engine) armBlurTimerLocked() {
	e.clearBlurTimerLocked()
	gen := e.blurGen
	e.blurTimer = time.AfterFunc(e.opts.BlurThreshold, func() {
		e.blurElapsed(gen)
	})
}

func (e *Engine) blurElapsed(gen uint64) {
	e.mu.Lock()
	if e.disposed || gen != e.blurGen || !e.mode.engaged() {
		e.mu.Unlock()
		return
	}
	e.logger.Debugf("tab hidden past blur threshold, deactivating")
	e.deactivateLocked()
	e.unlockAndNotify()
}
