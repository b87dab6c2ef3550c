package engine

// Mode is the interaction state machine's current mode. Exactly one mode is
// current at a time; Dragging, Copying and Input are therefore mutually
// exclusive by construction.
type Mode int

const (
	// ModeIdle means the overlay is fully torn down.
	ModeIdle Mode = iota

	// ModeHoldingKeys means the activation key is down and the hold timer
	// is running toward activation.
	ModeHoldingKeys

	// ModeActivated means the crosshair and hover tracking are live.
	ModeActivated

	// ModeDragging means a pointer-down occurred while activated; the drag
	// rectangle materializes once movement exceeds the threshold.
	ModeDragging

	// ModeCopying means a copy is in flight; hover changes are suspended.
	ModeCopying

	// ModeInput means the prompt input is open, bound to a frozen element.
	ModeInput
)

// String implements fmt.Stringer.
func (m Mode) String() string {
	switch m {
	case ModeIdle:
		return "idle"
	case ModeHoldingKeys:
		return "holding-keys"
	case ModeActivated:
		return "activated"
	case ModeDragging:
		return "dragging"
	case ModeCopying:
		return "copying"
	case ModeInput:
		return "input"
	}
	return "unknown"
}

// engaged reports whether the overlay is live (anything past the hold).
func (m Mode) engaged() bool {
	return m >= ModeActivated
}
