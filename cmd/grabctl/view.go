package main

import (
	"fmt"
	"strings"
)

// View implements tea.Model.
func (m *model) View() string {
	if !m.ready {
		return "starting..."
	}

	var b strings.Builder
	b.WriteString(headerStyle.Render("grabctl") + "  " + statusBarStyle.Render(m.url))
	b.WriteString("\n")
	b.WriteString(m.viewport.View())
	b.WriteString("\n")
	b.WriteString(m.statusLine())
	b.WriteString("\n")
	b.WriteString(inputBoxStyle.Width(m.width - 2).Render(m.input.View()))
	return b.String()
}

func (m *model) statusLine() string {
	parts := []string{"mode: " + m.state.Mode.String()}

	if m.state.IsCopying {
		parts = append(parts, m.spinner.View()+fmt.Sprintf("copying %3.0f%%", m.state.Progress*100))
	}
	if m.state.TargetLabel != "" {
		parts = append(parts, "target: "+m.state.TargetLabel)
	}
	if m.state.IsInputMode {
		parts = append(parts, "prompt open")
	}
	if n := len(m.state.Labels); n > 0 {
		parts = append(parts, fmt.Sprintf("%d label(s)", n))
	}
	return statusBarStyle.Render(strings.Join(parts, " | "))
}
