// Package watch renders a read-only view of the active session. It polls the
// query port once per PollInterval and never mutates anything.
package watch

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/progress"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	sessiondto "deepwork/internal/modules/session/dto"
	apperrors "deepwork/internal/platform/errors"
	"deepwork/internal/ui/theme"
)

const PollInterval = time.Second

type activePort interface {
	GetActive(ctx context.Context) (sessiondto.SessionOutput, error)
}

type tickMsg time.Time

type activeLoadedMsg struct {
	session sessiondto.SessionOutput
	err     error
}

type keyMap struct {
	Quit key.Binding
}

func (k keyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.Quit}
}

func (k keyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{{k.Quit}}
}

type Model struct {
	port activePort
	keys keyMap
	help help.Model
	bar  progress.Model

	session   sessiondto.SessionOutput
	hasActive bool
	loaded    bool
	err       error
	width     int
}

func NewModel(port activePort) Model {
	return Model{
		port: port,
		keys: keyMap{
			Quit: key.NewBinding(key.WithKeys("ctrl+c", "q", "esc"), key.WithHelp("q", "quit")),
		},
		help: help.New(),
		bar:  progress.New(progress.WithGradient(string(theme.Sapphire), string(theme.Lavender)), progress.WithoutPercentage()),
	}
}

func (m Model) Init() tea.Cmd {
	return m.fetch()
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.bar.Width = max(10, min(60, msg.Width-12))
		return m, nil
	case tea.KeyMsg:
		if key.Matches(msg, m.keys.Quit) {
			return m, tea.Quit
		}
		return m, nil
	case tickMsg:
		return m, m.fetch()
	case activeLoadedMsg:
		m.loaded = true
		switch {
		case msg.err == nil:
			m.session, m.hasActive, m.err = msg.session, true, nil
		case errors.Is(msg.err, apperrors.ErrNoActiveSession):
			m.session, m.hasActive, m.err = sessiondto.SessionOutput{}, false, nil
		default:
			m.err = msg.err
		}
		return m, poll()
	}
	return m, nil
}

func (m Model) View() string {
	var b strings.Builder
	b.WriteString(theme.Title.Render("deepwork"))
	b.WriteString(theme.Muted.Render("  watch"))
	b.WriteString("\n\n")

	switch {
	case m.err != nil:
		b.WriteString(theme.Error.Render("error: " + m.err.Error()))
	case !m.loaded:
		b.WriteString(theme.Muted.Render("loading…"))
	case !m.hasActive:
		b.WriteString(theme.Muted.Render("no active session"))
	default:
		b.WriteString(m.sessionView())
	}

	b.WriteString("\n\n")
	b.WriteString(m.help.View(m.keys))
	return theme.App.Render(b.String())
}

func (m Model) sessionView() string {
	s := m.session
	lines := []string{
		lipgloss.JoinHorizontal(lipgloss.Center, theme.Status(s.Status).Render(s.Status), " ", theme.Title.Render(s.Title)),
	}
	if s.Goal != "" {
		lines = append(lines, theme.Muted.Render(s.Goal))
	}
	lines = append(lines, "")

	pane := theme.Pane
	if t := s.Timer; t != nil {
		scheduled := int64(s.ScheduledMinutes) * 60
		if t.Overtime {
			pane = theme.PaneOvertime
			lines = append(lines, theme.Hot.Render("overtime +"+clockFace(t.ElapsedSeconds-scheduled)))
		} else {
			lines = append(lines, theme.Clock.Render(clockFace(t.RemainingSeconds))+theme.Muted.Render(" remaining"))
		}
		lines = append(lines, m.bar.ViewAs(fraction(t.ElapsedSeconds, scheduled)))
		lines = append(lines, theme.Muted.Render(fmt.Sprintf(
			"worked %s of %dm  ·  pauses %d", clockFace(t.WorkedSeconds), s.ScheduledMinutes, s.PauseCount,
		)))
	} else {
		lines = append(lines, theme.Muted.Render(fmt.Sprintf("scheduled for %dm, not started", s.ScheduledMinutes)))
	}
	return pane.Render(strings.Join(lines, "\n"))
}

func (m Model) fetch() tea.Cmd {
	port := m.port
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), PollInterval)
		defer cancel()
		session, err := port.GetActive(ctx)
		return activeLoadedMsg{session: session, err: err}
	}
}

func poll() tea.Cmd {
	return tea.Tick(PollInterval, func(t time.Time) tea.Msg {
		return tickMsg(t)
	})
}

// clockFace formats seconds as MM:SS, or H:MM:SS past the hour.
func clockFace(secs int64) string {
	if secs < 0 {
		secs = 0
	}
	h, m, s := secs/3600, secs%3600/60, secs%60
	if h > 0 {
		return fmt.Sprintf("%d:%02d:%02d", h, m, s)
	}
	return fmt.Sprintf("%02d:%02d", m, s)
}

func fraction(elapsed, total int64) float64 {
	if total <= 0 {
		return 1
	}
	f := float64(elapsed) / float64(total)
	if f > 1 {
		return 1
	}
	if f < 0 {
		return 0
	}
	return f
}
