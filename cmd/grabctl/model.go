package main

import (
	"strings"

	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/entrhq/grab/pkg/config"
	"github.com/entrhq/grab/pkg/engine"
	"github.com/entrhq/grab/pkg/types"
)

// model is the state of the grabctl console.
type model struct {
	engine *engine.Engine
	url    string
	theme  config.Theme

	viewport viewport.Model
	input    textinput.Model
	spinner  spinner.Model

	log      *strings.Builder
	state    engine.State
	lastCopy string

	width  int
	height int
	ready  bool
}

// stateMsg carries an engine state snapshot.
type stateMsg struct{ state engine.State }

// copiedMsg carries the text of a finished copy.
type copiedMsg struct{ text string }

// copyErrMsg signals a failed copy.
type copyErrMsg struct{ err error }

// sourceMsg carries a grabbed element's resolved source location.
type sourceMsg struct {
	file string
	line int
}

// grabEventMsg carries a page-global grab event.
type grabEventMsg struct{ event types.GrabEvent }

func newModel(url string, theme config.Theme) *model {
	input := textinput.New()
	input.Placeholder = "command (try: help)"
	input.Prompt = "> "
	input.Focus()

	sp := spinner.New()
	sp.Spinner = spinner.Dot

	return &model{
		url:     url,
		theme:   theme,
		input:   input,
		spinner: sp,
		log:     &strings.Builder{},
	}
}

// Init implements tea.Model.
func (m *model) Init() tea.Cmd {
	return tea.Batch(textinput.Blink, m.spinner.Tick)
}

// appendLog adds one line to the scrollback and keeps the view pinned to
// the bottom.
func (m *model) appendLog(line string) {
	m.log.WriteString(line)
	m.log.WriteString("\n")
	if m.ready {
		m.viewport.SetContent(m.log.String())
		m.viewport.GotoBottom()
	}
}
