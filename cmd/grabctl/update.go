package main

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/entrhq/grab/pkg/types"
)

// commandResultMsg carries the output of an async console command.
type commandResultMsg struct{ output string }

// Update implements tea.Model.
func (m *model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmds []tea.Cmd

	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		logHeight := msg.Height - 6
		if logHeight < 3 {
			logHeight = 3
		}
		if !m.ready {
			m.viewport = viewport.New(msg.Width, logHeight)
			m.viewport.SetContent(m.log.String())
			m.ready = true
		} else {
			m.viewport.Width = msg.Width
			m.viewport.Height = logHeight
		}
		m.input.Width = msg.Width - 6

	case tea.KeyMsg:
		switch msg.Type {
		case tea.KeyCtrlC:
			return m, tea.Quit
		case tea.KeyEnter:
			line := strings.TrimSpace(m.input.Value())
			m.input.Reset()
			if line != "" {
				if cmd := m.execute(line); cmd != nil {
					cmds = append(cmds, cmd)
				}
			}
		}

	case stateMsg:
		m.state = msg.state

	case copiedMsg:
		m.lastCopy = msg.text
		m.appendLog(successStyle.Render(fmt.Sprintf("copied %d bytes to clipboard (show to view)", len(msg.text))))

	case copyErrMsg:
		m.appendLog(errorStyle.Render("copy failed: " + msg.err.Error()))

	case sourceMsg:
		m.appendLog(eventStyle.Render(fmt.Sprintf("source: %s:%d", msg.file, msg.line)))

	case grabEventMsg:
		m.appendLog(eventStyle.Render(describeEvent(msg.event)))

	case commandResultMsg:
		if msg.output != "" {
			m.appendLog(msg.output)
		}
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	cmds = append(cmds, cmd)
	m.spinner, cmd = m.spinner.Update(msg)
	cmds = append(cmds, cmd)
	if m.ready {
		m.viewport, cmd = m.viewport.Update(msg)
		cmds = append(cmds, cmd)
	}
	return m, tea.Batch(cmds...)
}

// execute runs one console command. Slow page work happens in a tea.Cmd so
// the UI never blocks.
func (m *model) execute(line string) tea.Cmd {
	m.appendLog("> " + line)
	fields := strings.Fields(line)
	verb, args := fields[0], fields[1:]

	switch verb {
	case "help":
		m.appendLog(helpText)

	case "quit", "exit":
		return tea.Quit

	case "on":
		m.engine.Activate()

	case "off":
		m.engine.Deactivate()

	case "hover":
		x, y, err := parsePoint(args)
		if err != nil {
			m.appendLog(errorStyle.Render(err.Error()))
			return nil
		}
		m.engine.HandlePointerMove(types.NewPointerMove(x, y))

	case "grab":
		x, y, err := parsePoint(args)
		if err != nil {
			m.appendLog(errorStyle.Render(err.Error()))
			return nil
		}
		return m.grabAt(x, y, "")

	case "ask":
		if len(args) < 3 {
			m.appendLog(errorStyle.Render("usage: ask <x> <y> <prompt...>"))
			return nil
		}
		x, y, err := parsePoint(args[:2])
		if err != nil {
			m.appendLog(errorStyle.Render(err.Error()))
			return nil
		}
		return m.grabAt(x, y, strings.Join(args[2:], " "))

	case "rect":
		if len(args) != 4 {
			m.appendLog(errorStyle.Render("usage: rect <x1> <y1> <x2> <y2>"))
			return nil
		}
		coords := make([]float64, 4)
		for i, arg := range args {
			v, err := strconv.ParseFloat(arg, 64)
			if err != nil {
				m.appendLog(errorStyle.Render("bad coordinate: " + arg))
				return nil
			}
			coords[i] = v
		}
		m.engine.Activate()
		m.engine.HandlePointerMove(types.NewPointerMove(coords[0], coords[1]))
		m.engine.HandlePointerDown(types.NewPointerMove(coords[0], coords[1]))
		m.engine.HandlePointerMove(types.NewPointerMove(coords[2], coords[3]))
		m.engine.HandlePointerUp(types.NewPointerMove(coords[2], coords[3]))

	case "show":
		if m.lastCopy == "" {
			m.appendLog(eventStyle.Render("nothing copied yet"))
			return nil
		}
		m.appendLog(resultStyle.Render(highlightMarkup(m.lastCopy)))

	default:
		m.appendLog(errorStyle.Render("unknown command: " + verb + " (try: help)"))
	}
	return nil
}

// grabAt resolves the element under a point and copies its context, with an
// optional instruction prefix.
func (m *model) grabAt(x, y float64, instruction string) tea.Cmd {
	eng := m.engine
	return func() tea.Msg {
		el, err := eng.ElementAt(context.Background(), x, y)
		if err != nil {
			return commandResultMsg{output: errorStyle.Render("lookup failed: " + err.Error())}
		}
		if el == nil {
			return commandResultMsg{output: eventStyle.Render(fmt.Sprintf("no grabbable element at (%.0f, %.0f)", x, y))}
		}
		if !eng.CopyElement(el, instruction) {
			return commandResultMsg{output: errorStyle.Render("nothing copied: no content could be produced")}
		}
		return commandResultMsg{}
	}
}

func parsePoint(args []string) (float64, float64, error) {
	if len(args) != 2 {
		return 0, 0, fmt.Errorf("expected <x> <y>")
	}
	x, err := strconv.ParseFloat(args[0], 64)
	if err != nil {
		return 0, 0, fmt.Errorf("bad coordinate: %s", args[0])
	}
	y, err := strconv.ParseFloat(args[1], 64)
	if err != nil {
		return 0, 0, fmt.Errorf("bad coordinate: %s", args[1])
	}
	return x, y, nil
}

func describeEvent(event types.GrabEvent) string {
	switch event.Type {
	case types.EventTypeElementsGrabbed:
		return "grabbed: " + strings.Join(event.TagNames, ", ")
	case types.EventTypeActivated:
		return "overlay activated"
	case types.EventTypeDeactivated:
		return "overlay deactivated"
	case types.EventTypeInputModeChanged:
		if event.InputMode {
			return "prompt opened"
		}
		return "prompt closed"
	case types.EventTypeAgentSessionStarted:
		return "agent session started: " + event.SessionID
	case types.EventTypeAgentSessionAborted:
		return "agent session aborted: " + event.SessionID
	}
	return string(event.Type)
}

const helpText = `commands:
  hover <x> <y>            move the pointer
  grab <x> <y>             copy the element under a point
  ask <x> <y> <prompt...>  copy with an instruction prefix
  rect <x1> <y1> <x2> <y2> drag-grab everything in a rectangle
  show                     print the last copy, syntax highlighted
  on | off                 toggle the overlay
  quit                     exit`
