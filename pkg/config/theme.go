package config

// Theme controls the overlay's presentation. All fields are plain CSS
// values; zero values mean "use the default" when merging.
type Theme struct {
	// PrimaryColor outlines the hover target and crosshair.
	PrimaryColor string `yaml:"primary_color"`

	// DragFillColor fills the drag rectangle.
	DragFillColor string `yaml:"drag_fill_color"`

	// LabelBackground and LabelText style the element label.
	LabelBackground string `yaml:"label_background"`
	LabelText       string `yaml:"label_text"`

	// SuccessColor styles the copied/success label stage.
	SuccessColor string `yaml:"success_color"`

	// BorderWidth is the outline width in pixels.
	BorderWidth float64 `yaml:"border_width"`

	// FontFamily is used for labels and the prompt input.
	FontFamily string `yaml:"font_family"`

	// ZIndex is the stacking level of every overlay surface.
	ZIndex int `yaml:"z_index"`
}

// DefaultTheme returns the built-in look.
func DefaultTheme() Theme {
	return Theme{
		PrimaryColor:    "#3b82f6",
		DragFillColor:   "rgba(59, 130, 246, 0.08)",
		LabelBackground: "#1f2937",
		LabelText:       "#f9fafb",
		SuccessColor:    "#22c55e",
		BorderWidth:     2,
		FontFamily:      "ui-sans-serif, system-ui, sans-serif",
		ZIndex:          2147483646,
	}
}

// Merge overlays the non-zero fields of partial onto t and returns the
// result. t is not modified.
func (t Theme) Merge(partial Theme) Theme {
	if partial.PrimaryColor != "" {
		t.PrimaryColor = partial.PrimaryColor
	}
	if partial.DragFillColor != "" {
		t.DragFillColor = partial.DragFillColor
	}
	if partial.LabelBackground != "" {
		t.LabelBackground = partial.LabelBackground
	}
	if partial.LabelText != "" {
		t.LabelText = partial.LabelText
	}
	if partial.SuccessColor != "" {
		t.SuccessColor = partial.SuccessColor
	}
	if partial.BorderWidth > 0 {
		t.BorderWidth = partial.BorderWidth
	}
	if partial.FontFamily != "" {
		t.FontFamily = partial.FontFamily
	}
	if partial.ZIndex > 0 {
		t.ZIndex = partial.ZIndex
	}
	return t
}
