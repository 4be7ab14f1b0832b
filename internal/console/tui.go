// Package console is the interactive dispatch surface: one input line,
// the current target in the header, and the recent dispatch history.
// All engine work happens through the Session API inside tea.Cmd
// goroutines so the UI loop never blocks on focus polling or pacing.
package console

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/timvw/term-courier/internal/dispatch"
	"github.com/timvw/term-courier/internal/intake"
	"github.com/timvw/term-courier/internal/model"
)

// Console runs the interactive courier TUI.
type Console struct {
	Session *dispatch.Session
	// History receives every dispatch outcome; nil gets an unbounded-TTL
	// store private to this console.
	History *intake.Store
	Theme   Theme
	// PickDelay is the countdown before a pointer pick resolves, giving
	// the operator time to move the pointer onto the target.
	PickDelay time.Duration
	Version   string
}

// messages
type sendResultMsg struct {
	results []model.DispatchResult
}

type pickTickMsg struct{}

type pickDoneMsg struct {
	target model.SendTarget
	err    error
}

// consoleModel implements tea.Model.
type consoleModel struct {
	ctx       context.Context
	session   *dispatch.Session
	history   *intake.Store
	styles    styles
	pickDelay time.Duration
	version   string

	input textinput.Model

	sending  bool
	picking  bool
	pickLeft int
	message  string

	width  int
	height int
}

func (c *Console) Run(ctx context.Context) error {
	ti := textinput.New()
	ti.Placeholder = "Type a command and press Enter..."
	ti.CharLimit = 2048
	ti.Width = 80
	ti.Focus()

	history := c.History
	if history == nil {
		history = intake.NewStore(0)
	}

	m := &consoleModel{
		ctx:       ctx,
		session:   c.Session,
		history:   history,
		styles:    newStyles(c.Theme),
		pickDelay: c.PickDelay,
		version:   c.Version,
		input:     ti,
	}
	p := tea.NewProgram(m, tea.WithAltScreen())
	_, err := p.Run()
	return err
}

func (m *consoleModel) Init() tea.Cmd {
	return textinput.Blink
}

// schedulePickTick advances the pick countdown once per second.
func (m *consoleModel) schedulePickTick() tea.Cmd {
	return tea.Tick(time.Second, func(time.Time) tea.Msg {
		return pickTickMsg{}
	})
}

func (m *consoleModel) doSend(text string) tea.Cmd {
	session, ctx := m.session, m.ctx
	return func() tea.Msg {
		return sendResultMsg{results: session.Send(ctx, text)}
	}
}

func (m *consoleModel) doPick() tea.Cmd {
	session, ctx := m.session, m.ctx
	return func() tea.Msg {
		target, err := session.PickAtPointer(ctx)
		return pickDoneMsg{target: target, err: err}
	}
}

func (m *consoleModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		return m.handleKey(msg)

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		if w := msg.Width - 4; w > 20 {
			m.input.Width = w
		}
		return m, nil

	case sendResultMsg:
		m.sending = false
		m.history.Append(msg.results...)
		m.message = summarize(msg.results)
		return m, nil

	case pickTickMsg:
		if !m.picking {
			return m, nil
		}
		m.pickLeft--
		if m.pickLeft > 0 {
			m.message = fmt.Sprintf("picking in %ds — put the pointer on the target", m.pickLeft)
			return m, m.schedulePickTick()
		}
		m.message = "picking..."
		return m, m.doPick()

	case pickDoneMsg:
		m.picking = false
		if msg.err != nil {
			m.message = fmt.Sprintf("Pick failed: %v", msg.err)
		} else {
			m.message = fmt.Sprintf("Target: %s", msg.target.Window.String())
		}
		return m, nil
	}

	return m, nil
}

func (m *consoleModel) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "ctrl+c", "esc":
		return m, tea.Quit

	case "q":
		// Quit only on an empty line; otherwise "q" is just a character.
		if m.input.Value() == "" {
			return m, tea.Quit
		}

	case "enter":
		text := m.input.Value()
		if strings.TrimSpace(text) == "" || m.sending {
			return m, nil
		}
		m.sending = true
		m.message = "sending..."
		m.input.SetValue("")
		return m, m.doSend(text)

	case "ctrl+p":
		if m.picking {
			return m, nil
		}
		m.picking = true
		m.pickLeft = int((m.pickDelay + time.Second - 1) / time.Second)
		if m.pickLeft <= 0 {
			m.message = "picking..."
			return m, m.doPick()
		}
		m.message = fmt.Sprintf("picking in %ds — put the pointer on the target", m.pickLeft)
		return m, m.schedulePickTick()

	case "ctrl+e":
		if m.session.ToggleAutoEnter() {
			m.message = "Auto-enter ON"
		} else {
			m.message = "Auto-enter OFF"
		}
		return m, nil

	case "ctrl+t":
		m.message = fmt.Sprintf("Mode: %s", m.session.CycleMode())
		return m, nil

	case "ctrl+l":
		m.history.Clear()
		m.message = ""
		return m, nil
	}

	// Forward everything else to the text input component.
	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

func (m *consoleModel) View() string {
	if m.width == 0 {
		return "Loading..."
	}

	var b strings.Builder

	b.WriteString(m.styles.title.Render("Term Courier"))
	b.WriteString("  ")
	b.WriteString(m.styles.dim.Render("Enter=send  ctrl+p=pick  ctrl+e=auto-enter  ctrl+t=mode  ctrl+l=clear  q=quit"))
	b.WriteString("\n")

	b.WriteString(m.targetLine())
	b.WriteString("\n")
	b.WriteString(m.styles.header.Render(strings.Repeat("─", min(m.width, 100))))
	b.WriteString("\n")

	// History: oldest first, newest at the bottom, fitted to the space
	// between the header and the input line.
	rows := m.historyRows()
	avail := m.height - 6
	if avail < 1 {
		avail = 1
	}
	if len(rows) > avail {
		rows = rows[len(rows)-avail:]
	}
	for _, row := range rows {
		b.WriteString(row)
		b.WriteString("\n")
	}

	b.WriteString("\n")
	b.WriteString(m.input.View())
	b.WriteString("\n")

	if m.message != "" {
		b.WriteString(m.styles.status.Render("  " + m.message))
		b.WriteString("\n")
	}

	return b.String()
}

// targetLine renders the current binding: mode badge, window identity,
// profile, pace, and the auto-enter state.
func (m *consoleModel) targetLine() string {
	badge := m.styles.mode.Render(strings.ToUpper(string(m.session.Mode())))
	autoEnter := "auto-enter off"
	if m.session.AutoEnter() {
		autoEnter = "auto-enter on"
	}

	if m.session.Mode() == model.ModeSerial {
		return fmt.Sprintf("  %s  %s  %s",
			badge,
			m.styles.text.Render("serial route"),
			m.styles.dim.Render(autoEnter))
	}

	target, ok := m.session.Current()
	if !ok {
		return fmt.Sprintf("  %s  %s  %s",
			badge,
			m.styles.pending.Render("no target — ctrl+p to pick"),
			m.styles.dim.Render(autoEnter))
	}

	w := target.Window
	desc := fmt.Sprintf("%s/%s %q", w.ProcessName, w.Class, truncate(w.Title, 32))
	return fmt.Sprintf("  %s  %s  %s  %s  %s",
		badge,
		m.styles.text.Render(desc),
		m.styles.profile.Render(string(target.Profile.ID)),
		m.styles.dim.Render(fmt.Sprintf("pace %s", target.Pace)),
		m.styles.dim.Render(autoEnter))
}

func (m *consoleModel) historyRows() []string {
	results := m.history.Snapshot(time.Now().UTC())
	rows := make([]string, 0, len(results))
	for _, r := range results {
		rows = append(rows, m.resultRow(r))
	}
	return rows
}

func (m *consoleModel) resultRow(r model.DispatchResult) string {
	text := truncate(r.Text, 60)
	if r.OK {
		detail := string(r.Strategy)
		if r.FallbackUsed {
			detail += " fallback"
		}
		return fmt.Sprintf("  %s %s  %s",
			m.styles.ok.Render("✓"),
			m.styles.text.Render(text),
			m.styles.dim.Render(fmt.Sprintf("(%s, %dms)", detail, r.DurationMs)))
	}
	return fmt.Sprintf("  %s %s  %s",
		m.styles.fail.Render("✗"),
		m.styles.text.Render(text),
		m.styles.fail.Render(fmt.Sprintf("(%s: %s)", r.Code, truncate(r.Error, 48))))
}

// summarize renders a one-line status for a batch outcome.
func summarize(results []model.DispatchResult) string {
	if len(results) == 0 {
		return "nothing to send"
	}
	sent := 0
	for _, r := range results {
		if r.OK {
			sent++
		}
	}
	if sent == len(results) {
		if sent == 1 {
			return "sent 1 line"
		}
		return fmt.Sprintf("sent %d lines", sent)
	}
	for _, r := range results {
		if !r.OK {
			return fmt.Sprintf("%s: %s", r.Code, r.Error)
		}
	}
	return ""
}

// truncate cuts a string to at most maxLen characters.
func truncate(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	if maxLen <= 3 {
		return s[:maxLen]
	}
	return s[:maxLen-3] + "..."
}
