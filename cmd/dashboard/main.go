// Command dashboard is a terminal dashboard over the running scheduler.
// It talks only to app.App's exposed facade and never reaches into
// internal/* state directly, so it can be swapped for any other
// external collaborator without internal changes.
package main

import (
	"fmt"
	"log"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/Taragi14/smart-resource-scheduler/internal/app"
	"github.com/Taragi14/smart-resource-scheduler/internal/config"
	"github.com/Taragi14/smart-resource-scheduler/internal/model"
)

func main() {
	cfg := config.Default()
	a := app.New(cfg, nil)
	if err := a.Start(); err != nil {
		log.Fatal(err)
	}
	defer a.Stop()

	prog := tea.NewProgram(newModel(a), tea.WithAltScreen())
	if _, err := prog.Run(); err != nil {
		log.Fatal(err)
	}
}

// uiModel renders the most recent snapshot pulled from app.App.
type uiModel struct {
	a      *app.App
	sys    model.SystemSnapshot
	topCPU []model.ProcessSnapshot
	topMem []model.ProcessSnapshot
	mode   model.Mode
	width  int
	height int
}

func newModel(a *app.App) *uiModel {
	return &uiModel{a: a, width: 120, height: 40}
}

type tickMsg struct{}

func tickCmd() tea.Cmd {
	return tea.Tick(time.Second/2, func(time.Time) tea.Msg { return tickMsg{} })
}

func (m *uiModel) Init() tea.Cmd { return tickCmd() }

func (m *uiModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width, m.height = msg.Width, msg.Height
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c":
			return m, tea.Quit
		case "g":
			_ = m.a.SwitchMode(model.ModeGaming)
		case "p":
			_ = m.a.SwitchMode(model.ModeProductivity)
		case "b":
			_ = m.a.SwitchMode(model.ModeBalanced)
		case "s":
			_ = m.a.SwitchMode(model.ModePowerSaving)
		}
	case tickMsg:
		m.sys = m.a.SystemSnapshot()
		m.topCPU = m.a.TopCPU(8)
		m.topMem = m.a.TopMemory(5)
		m.mode = m.a.CurrentMode()
		return m, tickCmd()
	}
	return m, nil
}

var (
	titleStyle  = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("45"))
	subtleStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("244"))
	labelStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("81")).Bold(true)
	gaugeFill   = "█"
	gaugeEmpty  = "░"
	cardStyle   = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("60")).
			Padding(0, 1).
			MarginRight(1)
)

func (m *uiModel) View() string {
	header := titleStyle.Render("Adaptive Resource Scheduler") + "  " +
		subtleStyle.Render("mode: "+m.mode.String()) + "  " +
		subtleStyle.Render("[g]aming [p]roductivity [b]alanced [s]ave  q quit")

	cpuCard := card("CPU", fmt.Sprintf("%s  load %.2f %.2f %.2f",
		gaugeBar(m.sys.CPUTotalPct, 28), m.sys.Load1, m.sys.Load5, m.sys.Load15))

	memCard := card("Memory", fmt.Sprintf("%s  used %.1f%%  swap %.0f/%.0fMB",
		gaugeBar(m.sys.UsedPct(), 28),
		m.sys.UsedPct(),
		float64(m.sys.SwapTotalKB-m.sys.SwapFreeKB)/1024,
		float64(m.sys.SwapTotalKB)/1024))

	topCPUCard := card("Top CPU", renderTable(m.topCPU))
	topMemCard := card("Top Memory", renderTable(m.topMem))

	line1 := lipgloss.JoinHorizontal(lipgloss.Top, cpuCard, memCard)
	line2 := lipgloss.JoinHorizontal(lipgloss.Top, topCPUCard, topMemCard)

	return lipgloss.JoinVertical(lipgloss.Left, header, line1, line2)
}

func gaugeBar(pct float64, width int) string {
	if pct < 0 {
		pct = 0
	}
	if pct > 100 {
		pct = 100
	}
	filled := int((pct / 100) * float64(width))
	if filled > width {
		filled = width
	}
	return fmt.Sprintf("[%s%s] %5.1f%%",
		strings.Repeat(gaugeFill, filled),
		strings.Repeat(gaugeEmpty, width-filled),
		pct)
}

func card(title, body string) string {
	return cardStyle.Render(labelStyle.Render(title) + "\n" + body)
}

func renderTable(rows []model.ProcessSnapshot) string {
	var b strings.Builder
	fmt.Fprintf(&b, "%-18s %-6s %-3s %6s %8s\n", "cmd", "pid", "ni", "cpu%", "rss(KB)")
	for _, p := range rows {
		fmt.Fprintf(&b, "%-18s %-6d %3d %6.1f %8d\n",
			truncate(p.Name, 18), p.PID, p.Nice, p.CPUPct, p.RSSKB)
	}
	return strings.TrimRight(b.String(), "\n")
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n-1]) + "…"
}
