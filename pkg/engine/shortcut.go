package engine

import (
	"fmt"
	"strings"

	"github.com/entrhq/grab/pkg/types"
)

// Shortcut matches the activation key combination against raw key events.
// Hold matches a keydown that arms or sustains the hold; Release matches a
// keyup that lets go of any part of the combination.
type Shortcut struct {
	alt   bool
	ctrl  bool
	meta  bool
	shift bool
	key   string // optional non-modifier key, lowercase
}

// ParseShortcut compiles a spec like "alt", "ctrl", "meta", or
// "<modifier>+<key>" (for example "alt+g").
func ParseShortcut(spec string) (Shortcut, error) {
	var s Shortcut
	for _, part := range strings.Split(strings.ToLower(strings.TrimSpace(spec)), "+") {
		switch part {
		case "alt", "option":
			s.alt = true
		case "ctrl", "control":
			s.ctrl = true
		case "meta", "cmd", "command":
			s.meta = true
		case "shift":
			s.shift = true
		case "":
			return Shortcut{}, fmt.Errorf("empty shortcut spec %q", spec)
		default:
			if s.key != "" {
				return Shortcut{}, fmt.Errorf("shortcut %q names two keys", spec)
			}
			s.key = part
		}
	}
	if !s.alt && !s.ctrl && !s.meta && !s.shift && s.key == "" {
		return Shortcut{}, fmt.Errorf("empty shortcut spec %q", spec)
	}
	return s, nil
}

// MatchesHold reports whether the keydown event is the activation chord.
func (s Shortcut) MatchesHold(ev types.KeyEvent) bool {
	if s.alt != ev.Alt || s.ctrl != ev.Ctrl || s.meta != ev.Meta || s.shift != ev.Shift {
		return false
	}
	if s.key != "" {
		return strings.ToLower(ev.Key) == s.key
	}
	// Pure modifier shortcuts match the modifier's own keydown.
	return isModifierKey(ev.Key)
}

// MatchesRelease reports whether the keyup event releases any part of the
// activation chord.
func (s Shortcut) MatchesRelease(ev types.KeyEvent) bool {
	key := strings.ToLower(ev.Key)
	if s.key != "" && key == s.key {
		return true
	}
	switch key {
	case "alt":
		return s.alt
	case "control", "ctrl":
		return s.ctrl
	case "meta":
		return s.meta
	case "shift":
		return s.shift
	}
	return false
}

func isModifierKey(key string) bool {
	switch strings.ToLower(key) {
	case "alt", "control", "ctrl", "meta", "shift":
		return true
	}
	return false
}
