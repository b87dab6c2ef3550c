// Package config holds the runtime options, theme and persistence for the
// grab overlay. Options are plain data so they can round-trip through the
// YAML store; behavior hooks (shortcut predicates, agent providers) are
// registered on the engine directly.
package config

import "time"

// Default timing and geometry constants. These mirror the tuned values of
// the browser overlay and are only overridden in tests.
const (
	DefaultShortcut            = "alt"
	DefaultHoldDuration        = 300 * time.Millisecond
	DefaultSpamGuardWindow     = 150 * time.Millisecond
	DefaultBlurThreshold       = 600 * time.Millisecond
	DefaultHoverThrottle       = 32 * time.Millisecond
	DefaultDragThresholdPx     = 4.0
	DefaultMaxContextLines     = 60
	DefaultCopiedLabelDuration = 1200 * time.Millisecond
	DefaultFadeDuration        = 300 * time.Millisecond
	DefaultGrabbedBoxDuration  = 800 * time.Millisecond
	DefaultAutoscrollMargin    = 48.0
	DefaultAutoscrollSpeed     = 12.0
	DefaultFrameInterval       = 16 * time.Millisecond
	DefaultProgressCap         = 0.95
	DefaultProgressRate        = 0.18
)

// Options configures the grab engine.
type Options struct {
	// Shortcut names the activation key held to arm the overlay.
	// Recognized values: "alt", "ctrl", "meta", or "<modifier>+<key>"
	// combinations such as "alt+c".
	Shortcut string `yaml:"shortcut"`

	// HoldDuration is how long the shortcut must be held before the
	// overlay activates.
	HoldDuration time.Duration `yaml:"hold_duration"`

	// AllowWhileTyping permits activation while focus is inside a text
	// input. Off by default so the shortcut never hijacks typing.
	AllowWhileTyping bool `yaml:"allow_while_typing"`

	// MaxContextLines bounds the per-element context snippet size.
	MaxContextLines int `yaml:"max_context_lines"`

	// DragThresholdPx is the displacement on either axis beyond which a
	// pointer-down/up pair is treated as a drag rather than a click.
	DragThresholdPx float64 `yaml:"drag_threshold_px"`

	// HoverThrottle is the minimum interval between element-at-point
	// lookups during pointer movement.
	HoverThrottle time.Duration `yaml:"hover_throttle"`

	// SpamGuardWindow deactivates the overlay when the activation key is
	// released within this window of a key-repeat auto-fire.
	SpamGuardWindow time.Duration `yaml:"spam_guard_window"`

	// BlurThreshold deactivates the overlay when the tab stays hidden for
	// longer than this while activated.
	BlurThreshold time.Duration `yaml:"blur_threshold"`

	// CopiedLabelDuration and FadeDuration control the success label's
	// copied and fading stages.
	CopiedLabelDuration time.Duration `yaml:"copied_label_duration"`
	FadeDuration        time.Duration `yaml:"fade_duration"`

	// GrabbedBoxDuration controls how long the post-grab feedback box stays.
	GrabbedBoxDuration time.Duration `yaml:"grabbed_box_duration"`

	// AutoscrollMargin and AutoscrollSpeed control edge scrolling while
	// dragging: within Margin pixels of a viewport edge the window scrolls
	// Speed pixels per frame toward that edge.
	AutoscrollMargin float64 `yaml:"autoscroll_margin"`
	AutoscrollSpeed  float64 `yaml:"autoscroll_speed"`

	// FrameInterval is the animation tick used for autoscroll and the
	// copy progress indicator.
	FrameInterval time.Duration `yaml:"frame_interval"`

	// ProgressCap and ProgressRate shape the copy progress ease: progress
	// approaches ProgressCap exponentially at ProgressRate per frame and
	// only completes when the real operation does.
	ProgressCap  float64 `yaml:"progress_cap"`
	ProgressRate float64 `yaml:"progress_rate"`

	// IgnoreSelectors lists glob patterns of selectors that are never
	// valid grab targets (overlay internals, devtools probes, ...).
	IgnoreSelectors []string `yaml:"ignore_selectors"`
}

// DefaultOptions returns the tuned defaults.
func DefaultOptions() Options {
	return Options{
		Shortcut:            DefaultShortcut,
		HoldDuration:        DefaultHoldDuration,
		MaxContextLines:     DefaultMaxContextLines,
		DragThresholdPx:     DefaultDragThresholdPx,
		HoverThrottle:       DefaultHoverThrottle,
		SpamGuardWindow:     DefaultSpamGuardWindow,
		BlurThreshold:       DefaultBlurThreshold,
		CopiedLabelDuration: DefaultCopiedLabelDuration,
		FadeDuration:        DefaultFadeDuration,
		GrabbedBoxDuration:  DefaultGrabbedBoxDuration,
		AutoscrollMargin:    DefaultAutoscrollMargin,
		AutoscrollSpeed:     DefaultAutoscrollSpeed,
		FrameInterval:       DefaultFrameInterval,
		ProgressCap:         DefaultProgressCap,
		ProgressRate:        DefaultProgressRate,
	}
}

// Normalize fills zero-valued fields with defaults so a sparse YAML file or
// a partially constructed Options is always usable.
func (o Options) Normalize() Options {
	def := DefaultOptions()
	if o.Shortcut == "" {
		o.Shortcut = def.Shortcut
	}
	if o.HoldDuration <= 0 {
		o.HoldDuration = def.HoldDuration
	}
	if o.MaxContextLines <= 0 {
		o.MaxContextLines = def.MaxContextLines
	}
	if o.DragThresholdPx <= 0 {
		o.DragThresholdPx = def.DragThresholdPx
	}
	if o.HoverThrottle <= 0 {
		o.HoverThrottle = def.HoverThrottle
	}
	if o.SpamGuardWindow <= 0 {
		o.SpamGuardWindow = def.SpamGuardWindow
	}
	if o.BlurThreshold <= 0 {
		o.BlurThreshold = def.BlurThreshold
	}
	if o.CopiedLabelDuration <= 0 {
		o.CopiedLabelDuration = def.CopiedLabelDuration
	}
	if o.FadeDuration <= 0 {
		o.FadeDuration = def.FadeDuration
	}
	if o.GrabbedBoxDuration <= 0 {
		o.GrabbedBoxDuration = def.GrabbedBoxDuration
	}
	if o.AutoscrollMargin <= 0 {
		o.AutoscrollMargin = def.AutoscrollMargin
	}
	if o.AutoscrollSpeed <= 0 {
		o.AutoscrollSpeed = def.AutoscrollSpeed
	}
	if o.FrameInterval <= 0 {
		o.FrameInterval = def.FrameInterval
	}
	if o.ProgressCap <= 0 || o.ProgressCap > 1 {
		o.ProgressCap = def.ProgressCap
	}
	if o.ProgressRate <= 0 || o.ProgressRate >= 1 {
		o.ProgressRate = def.ProgressRate
	}
	return o
}
