// Package overlay projects engine state into a declarative frame the host
// can render. The projection is a pure function: same state and theme in,
// same frame out, with no page access and no side effects.
package overlay

import (
	"github.com/entrhq/grab/pkg/config"
	"github.com/entrhq/grab/pkg/engine"
	"github.com/entrhq/grab/pkg/types"
)

// Box is an outlined rectangle mirroring an element's rendered shape.
type Box struct {
	Rect         types.Rect
	BorderRadius string
	Transform    string
	Color        string
	BorderWidth  float64
	Fill         string
}

// LabelView is a text chip anchored above an element.
type LabelView struct {
	Text       string
	X          float64
	Y          float64
	Background string
	Foreground string
	Fading     bool
}

// CrosshairView is the activated-mode cursor marker.
type CrosshairView struct {
	X     float64
	Y     float64
	Color string
}

// InputView is the prompt entry surface pinned to a frozen element.
type InputView struct {
	X    float64
	Y    float64
	Text string
}

// ProgressView is the copy progress indicator.
type ProgressView struct {
	Fraction float64
	Color    string
}

// Frame is everything visible for one engine state.
type Frame struct {
	Visible       bool
	Cursor        engine.CursorKind
	Crosshair     *CrosshairView
	Highlight     *Box
	HighlightTag  string
	DragRect      *Box
	Labels        []LabelView
	GrabbedBoxes  []Box
	Input         *InputView
	Progress      *ProgressView
	SelectionHint *CrosshairView
	ZIndex        int
}

// Project renders the state into a frame using the given theme.
func Project(state engine.State, theme config.Theme) Frame {
	frame := Frame{
		Visible: state.IsActive,
		Cursor:  state.Cursor,
		ZIndex:  theme.ZIndex,
	}

	if state.IsActive && !state.Touch && state.Mode != engine.ModeInput {
		frame.Crosshair = &CrosshairView{
			X:     state.Pointer.X,
			Y:     state.Pointer.Y,
			Color: theme.PrimaryColor,
		}
	}

	if state.TargetElement != nil {
		frame.Highlight = &Box{
			Rect:         state.TargetBounds.Rect(),
			BorderRadius: state.TargetBounds.BorderRadius,
			Transform:    state.TargetBounds.Transform,
			Color:        theme.PrimaryColor,
			BorderWidth:  theme.BorderWidth,
		}
		frame.HighlightTag = state.TargetLabel
	}

	if state.DragBounds != nil {
		frame.DragRect = &Box{
			Rect:        *state.DragBounds,
			Color:       theme.PrimaryColor,
			BorderWidth: theme.BorderWidth,
			Fill:        theme.DragFillColor,
		}
	}

	for _, label := range state.Labels {
		frame.Labels = append(frame.Labels, projectLabel(label, theme))
	}
	for _, box := range state.GrabbedBoxes {
		frame.GrabbedBoxes = append(frame.GrabbedBoxes, Box{
			Rect:         box.Bounds.Rect(),
			BorderRadius: box.Bounds.BorderRadius,
			Color:        theme.SuccessColor,
			BorderWidth:  theme.BorderWidth,
		})
	}

	if state.IsInputMode && state.FrozenElement != nil {
		frame.Input = &InputView{
			X:    state.Pointer.X,
			Y:    state.Pointer.Y,
			Text: state.InputText,
		}
	}

	if state.IsCopying {
		frame.Progress = &ProgressView{
			Fraction: state.Progress,
			Color:    theme.PrimaryColor,
		}
	}

	if !state.IsActive && state.NativeSelection.HasSelection {
		frame.SelectionHint = &CrosshairView{
			X:     state.NativeSelection.CursorX,
			Y:     state.NativeSelection.CursorY,
			Color: theme.PrimaryColor,
		}
	}

	return frame
}

func projectLabel(label engine.Label, theme config.Theme) LabelView {
	text := label.TagName
	if text != "" {
		text = "<" + text + ">"
	}
	if label.ComponentName != "" {
		text += " in " + label.ComponentName
	}

	view := LabelView{
		Text:       text,
		X:          label.Bounds.X,
		Y:          label.Bounds.Y,
		Background: theme.LabelBackground,
		Foreground: theme.LabelText,
	}
	switch label.Status {
	case engine.LabelCopying:
		view.Text = "Copying " + view.Text
	case engine.LabelCopied:
		view.Text = "Copied " + view.Text
		view.Background = theme.SuccessColor
	case engine.LabelFading:
		view.Text = "Copied " + view.Text
		view.Background = theme.SuccessColor
		view.Fading = true
	}
	return view
}
