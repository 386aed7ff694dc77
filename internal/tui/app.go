package tui

import (
	"fmt"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/1broseidon/visiwatch/internal/ipc"
	"github.com/1broseidon/visiwatch/internal/occlusion"
)

// DefaultRefresh is how often the live view polls the daemon.
const DefaultRefresh = time.Second

// SnapshotClient is the part of the IPC client the live view uses.
type SnapshotClient interface {
	GetSnapshot(visibleOnly bool) (*occlusion.Snapshot, error)
	GetStatus() (*ipc.StatusData, error)
}

type tickMsg time.Time

type snapshotMsg struct {
	snap   *occlusion.Snapshot
	status *ipc.StatusData
	err    error
}

// model is the bubbletea model behind "visiwatch watch".
type model struct {
	client   SnapshotClient
	interval time.Duration

	snap    *occlusion.Snapshot
	status  *ipc.StatusData
	err     error
	paused  bool
	updated time.Time

	width  int
	height int
}

func newModel(client SnapshotClient, interval time.Duration) model {
	if interval <= 0 {
		interval = DefaultRefresh
	}
	return model{client: client, interval: interval}
}

func (m model) fetch() tea.Cmd {
	client := m.client
	return func() tea.Msg {
		snap, err := client.GetSnapshot(false)
		if err != nil {
			return snapshotMsg{err: err}
		}
		status, err := client.GetStatus()
		return snapshotMsg{snap: snap, status: status, err: err}
	}
}

func (m model) tick() tea.Cmd {
	return tea.Tick(m.interval, func(t time.Time) tea.Msg { return tickMsg(t) })
}

// Init implements tea.Model.
func (m model) Init() tea.Cmd {
	return m.fetch()
}

// Update implements tea.Model.
func (m model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "ctrl+c", "q", "esc":
			return m, tea.Quit
		case "p", " ":
			m.paused = !m.paused
			return m, nil
		case "r":
			return m, m.fetch()
		}

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		return m, nil

	case tickMsg:
		if m.paused {
			return m, m.tick()
		}
		return m, m.fetch()

	case snapshotMsg:
		m.err = msg.err
		if msg.snap != nil {
			m.snap = msg.snap
			m.updated = time.Now()
		}
		if msg.status != nil {
			m.status = msg.status
		}
		return m, m.tick()
	}
	return m, nil
}

// View implements tea.Model.
func (m model) View() string {
	if m.width == 0 || m.height == 0 {
		return ""
	}

	statusBar := renderStatusBar(m.status, m.err, m.paused, m.width)
	helpBar := renderHelpBar(m.width)

	legend := Legend(m.snap, m.width-2)
	legendBlock := legendStyle.Width(m.width).Render(strings.Join(legend, "\n"))

	usedHeight := lipgloss.Height(statusBar) + lipgloss.Height(helpBar) + lipgloss.Height(legendBlock)
	mapHeight := m.height - usedHeight
	var body string
	if mapHeight >= 3 {
		body = mapStyle.Render(strings.Join(RenderMap(m.snap, m.width, mapHeight), "\n"))
	}

	return lipgloss.JoinVertical(lipgloss.Left,
		statusBar,
		body,
		legendBlock,
		helpBar,
	)
}

var (
	mapStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("250"))
	legendStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("245"))
)

func renderStatusBar(status *ipc.StatusData, err error, paused bool, width int) string {
	var text string
	switch {
	case err != nil:
		dot := lipgloss.NewStyle().Foreground(lipgloss.Color("196")).Render("●")
		text = dot + " " + err.Error()
	case status == nil:
		dot := lipgloss.NewStyle().Foreground(lipgloss.Color("241")).Render("●")
		text = dot + " waiting for daemon"
	default:
		dot := lipgloss.NewStyle().Foreground(lipgloss.Color("42")).Render("●")
		parts := []string{
			dot + " daemon connected",
			fmt.Sprintf("visible:%d/%d", status.Visible, status.Candidates),
			fmt.Sprintf("monitors:%d", status.Monitors),
			fmt.Sprintf("samples:%d", status.Samples),
		}
		if status.QueuePending > 0 {
			parts = append(parts, fmt.Sprintf("queued:%d", status.QueuePending))
		}
		text = strings.Join(parts, "  ")
	}
	if paused {
		text += "  [paused]"
	}

	style := lipgloss.NewStyle().
		Width(width).
		Background(lipgloss.Color("235")).
		Foreground(lipgloss.Color("250")).
		Padding(0, 1)
	return style.Render(text)
}

func renderHelpBar(width int) string {
	help := "p/space: pause  r: refresh  q/ctrl-c: quit"
	style := lipgloss.NewStyle().
		Width(width).
		Foreground(lipgloss.Color("241")).
		Padding(0, 1)
	return style.Render(help)
}
