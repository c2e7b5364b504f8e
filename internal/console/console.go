// Package console implements the interactive devscripts shell.
package console

import (
	"context"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/zjrosen/devscripts/internal/log"
	"github.com/zjrosen/devscripts/internal/trigger"
)

const prompt = "devscripts> "

// HelpText lists the shell commands.
const HelpText = `Commands:
  run <name> [args...]   trigger a script (alias: r)
  help                   show this help
  clear                  clear the screen
  quit                   leave the console (alias: exit)`

// Runner triggers a script and renders the outcome.
type Runner interface {
	Trigger(ctx context.Context, nameAndArgs []string) trigger.Outcome
}

type entryKind int

const (
	entryCommand entryKind = iota
	entryInfo
	entrySuccess
	entryFailure
)

type entry struct {
	kind entryKind
	text string
}

// outcomeMsg carries the result of a trigger back into Update.
type outcomeMsg struct {
	outcome trigger.Outcome
}

// Model is the bubbletea model for the console.
type Model struct {
	ctx      context.Context
	runner   Runner
	input    textinput.Model
	spinner  spinner.Model
	entries  []entry
	recall   []string // submitted lines, oldest first
	recallAt int
	running  string // name of the script in flight, empty when idle
	height   int
	quitting bool
}

// New creates a console that triggers scripts through runner.
func New(ctx context.Context, runner Runner) Model {
	ti := textinput.New()
	ti.Prompt = promptStyle.Render(prompt)
	ti.Placeholder = "run <name> [args...]"
	ti.Focus()

	sp := spinner.New()
	sp.Spinner = spinner.Dot
	sp.Style = spinnerStyle

	return Model{
		ctx:     ctx,
		runner:  runner,
		input:   ti,
		spinner: sp,
		entries: []entry{{kind: entryInfo, text: `Type "help" for commands.`}},
	}
}

// Init implements tea.Model.
func (m Model) Init() tea.Cmd {
	return textinput.Blink
}

// Running returns the name of the script in flight, or "".
func (m Model) Running() string {
	return m.running
}

// Update implements tea.Model.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.height = msg.Height
		m.input.Width = msg.Width - len(prompt) - 1
		return m, nil

	case outcomeMsg:
		m.running = ""
		kind := entryFailure
		if msg.outcome.OK {
			kind = entrySuccess
		}
		m.entries = append(m.entries, entry{kind: kind, text: msg.outcome.Message})
		return m, nil

	case spinner.TickMsg:
		if m.running == "" {
			return m, nil
		}
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd

	case tea.KeyMsg:
		switch msg.Type {
		case tea.KeyCtrlC, tea.KeyCtrlD:
			m.quitting = true
			return m, tea.Quit
		case tea.KeyEnter:
			line := m.input.Value()
			m.input.SetValue("")
			return m.submit(line)
		case tea.KeyUp:
			m.recallPrev()
			return m, nil
		case tea.KeyDown:
			m.recallNext()
			return m, nil
		}
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

func (m Model) submit(line string) (tea.Model, tea.Cmd) {
	fields := strings.Fields(line)
	if len(fields) == 0 {
		return m, nil
	}
	m.recall = append(m.recall, line)
	m.recallAt = len(m.recall)
	m.entries = append(m.entries, entry{kind: entryCommand, text: prompt + line})

	switch fields[0] {
	case "run", "r":
		if m.running != "" {
			m.entries = append(m.entries, entry{kind: entryInfo, text: fmt.Sprintf("Script %s is still running.", m.running)})
			return m, nil
		}
		args := fields[1:]
		if len(args) > 0 {
			m.running = args[0]
		} else {
			m.running = "script"
		}
		log.Debug(log.CatConsole, "Console trigger", "args", args)
		return m, tea.Batch(m.spinner.Tick, m.trigger(args))
	case "help":
		m.entries = append(m.entries, entry{kind: entryInfo, text: HelpText})
	case "clear":
		m.entries = nil
	case "quit", "exit":
		m.quitting = true
		return m, tea.Quit
	default:
		m.entries = append(m.entries, entry{kind: entryFailure, text: fmt.Sprintf("Unknown command: %s. Type \"help\" for commands.", fields[0])})
	}
	return m, nil
}

func (m Model) trigger(args []string) tea.Cmd {
	runner, ctx := m.runner, m.ctx
	return func() tea.Msg {
		return outcomeMsg{outcome: runner.Trigger(ctx, args)}
	}
}

func (m *Model) recallPrev() {
	if m.recallAt == 0 {
		return
	}
	m.recallAt--
	m.input.SetValue(m.recall[m.recallAt])
	m.input.CursorEnd()
}

func (m *Model) recallNext() {
	if m.recallAt >= len(m.recall) {
		return
	}
	m.recallAt++
	if m.recallAt == len(m.recall) {
		m.input.SetValue("")
		return
	}
	m.input.SetValue(m.recall[m.recallAt])
	m.input.CursorEnd()
}

// View implements tea.Model.
func (m Model) View() string {
	if m.quitting {
		return ""
	}

	var lines []string
	for _, e := range m.entries {
		lines = append(lines, strings.Split(renderEntry(e), "\n")...)
	}
	if m.running != "" {
		lines = append(lines, m.spinner.View()+" running "+m.running+"...")
	}

	// Keep the tail that fits above the input line.
	if m.height > 1 && len(lines) > m.height-1 {
		lines = lines[len(lines)-(m.height-1):]
	}

	var b strings.Builder
	for _, l := range lines {
		b.WriteString(l)
		b.WriteString("\n")
	}
	b.WriteString(m.input.View())
	return b.String()
}

func renderEntry(e entry) string {
	switch e.kind {
	case entryCommand:
		return commandStyle.Render(e.text)
	case entrySuccess:
		return successStyle.Render(e.text)
	case entryFailure:
		return failureStyle.Render(e.text)
	default:
		return infoStyle.Render(e.text)
	}
}

// Run starts the console and blocks until the user quits.
func Run(ctx context.Context, runner Runner) error {
	p := tea.NewProgram(New(ctx, runner), tea.WithContext(ctx))
	_, err := p.Run()
	return err
}
