// Package ui implements the interactive tunnel list built with Bubble Tea.
package ui

import (
	"fmt"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/death/ssh-tunnels/internal/appconfig"
	"github.com/death/ssh-tunnels/internal/config"
	"github.com/death/ssh-tunnels/internal/events"
	"github.com/death/ssh-tunnels/internal/history"
	"github.com/death/ssh-tunnels/internal/model"
	"github.com/death/ssh-tunnels/internal/sshclient"
	"github.com/death/ssh-tunnels/internal/state"
	"github.com/death/ssh-tunnels/internal/tunnel"
	"github.com/death/ssh-tunnels/internal/util"
)

type tickMsg time.Time

type statusMsg string

// uiMode switches between the list and the add-tunnel form.
type uiMode int

const (
	modeList uiMode = iota
	modeForm
	modePortPrompt
)

type modelUI struct {
	statuses   []model.TunnelStatus
	filtered   []model.TunnelStatus
	sel        int
	filter     string
	filterMode bool
	showHelp   bool
	status     string
	warnings   []string
	width      int
	height     int
	cfg        appconfig.Config
	mgr        *tunnel.Manager

	mode   uiMode
	form   *tunnelForm
	prompt *portPrompt
}

func initialModel() modelUI {
	cfg, _ := appconfig.Load()
	overrides := state.NewStore()
	client := sshclient.New(cfg.SSHBinary, cfg.ControlDir, overrides)
	res, err := config.Load()
	mgr := tunnel.NewManager(res.Tunnels, client, overrides).WithJournal(events.NewStore())

	m := modelUI{cfg: cfg, mgr: mgr, warnings: res.Warnings}
	if err != nil {
		m.status = "config load error: " + err.Error()
	} else {
		m.status = "Ready. Select a tunnel, then r to run, x to kill, c to re-check."
	}
	m.refresh()
	return m
}

// refresh re-queries every tunnel's control socket and re-sorts the list
// by recent activity. The RUNNING column is only as fresh as the last
// refresh; operations re-check before acting.
func (m *modelUI) refresh() {
	statuses := m.mgr.Statuses()
	if lastRun, err := history.LastRun(); err == nil && len(lastRun) > 0 {
		ordered := make([]model.TunnelConfig, 0, len(statuses))
		byName := map[string]model.TunnelStatus{}
		for _, st := range statuses {
			ordered = append(ordered, st.Config)
			byName[st.Config.Name] = st
		}
		sorted := history.SortTunnelsRecent(ordered, lastRun)
		statuses = statuses[:0]
		for _, cfg := range sorted {
			statuses = append(statuses, byName[cfg.Name])
		}
	}
	m.statuses = statuses
	m.applyFilter()
}

func (m *modelUI) applyFilter() {
	if strings.TrimSpace(m.filter) == "" {
		m.filtered = append([]model.TunnelStatus(nil), m.statuses...)
	} else {
		f := strings.ToLower(strings.TrimSpace(m.filter))
		m.filtered = nil
		for _, st := range m.statuses {
			if strings.Contains(strings.ToLower(st.Config.Name), f) ||
				strings.Contains(strings.ToLower(st.Config.Login), f) ||
				strings.Contains(strings.ToLower(st.Config.Host), f) {
				m.filtered = append(m.filtered, st)
			}
		}
	}
	if m.sel >= len(m.filtered) {
		m.sel = len(m.filtered) - 1
	}
	if m.sel < 0 {
		m.sel = 0
	}
}

func tickCmd(seconds int) tea.Cmd {
	if seconds <= 0 {
		seconds = util.DefaultRefreshSeconds
	}
	return tea.Tick(time.Duration(seconds)*time.Second, func(t time.Time) tea.Msg { return tickMsg(t) })
}

func (m modelUI) Init() tea.Cmd {
	return tickCmd(m.cfg.UI.RefreshSeconds)
}

func (m modelUI) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tickMsg:
		if m.mode == modeList {
			m.refresh()
		}
		return m, tickCmd(m.cfg.UI.RefreshSeconds)
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		return m, nil
	case statusMsg:
		m.status = string(msg)
		return m, nil
	case tea.KeyMsg:
		switch m.mode {
		case modeForm:
			return m.updateForm(msg)
		case modePortPrompt:
			return m.updatePrompt(msg)
		}
		return m.updateList(msg)
	}
	return m, nil
}

func (m modelUI) updateList(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if m.filterMode {
		switch msg.String() {
		case "enter", "esc":
			m.filterMode = false
			m.applyFilter()
			return m, nil
		case "backspace":
			if len(m.filter) > 0 {
				m.filter = m.filter[:len(m.filter)-1]
			}
			m.applyFilter()
			return m, nil
		default:
			if len(msg.String()) == 1 {
				m.filter += msg.String()
				m.applyFilter()
			}
			return m, nil
		}
	}

	switch msg.String() {
	case "q", "ctrl+c":
		return m, tea.Quit
	case "j", "down":
		if m.sel < len(m.filtered)-1 {
			m.sel++
		}
	case "k", "up":
		if m.sel > 0 {
			m.sel--
		}
	case "/":
		m.filterMode = true
		m.status = "Filter mode: type and press Enter"
	case "?":
		m.showHelp = !m.showHelp
	case "g":
		m.refresh()
		m.status = "Refreshed tunnel status"
	case "a":
		m.mode = modeForm
		m.form = newTunnelForm()
		return m, m.form.focusCmd()
	case "r":
		if st, ok := m.selected(); ok {
			m.runTunnel(st.Config.Name, 0)
		}
	case "p":
		if st, ok := m.selected(); ok {
			m.mode = modePortPrompt
			m.prompt = newPortPrompt(st.Config.Name)
			return m, m.prompt.focusCmd()
		}
	case "x":
		if st, ok := m.selected(); ok {
			if err := m.mgr.Kill(st.Config.Name); err != nil {
				m.status = "Kill failed: " + err.Error()
			} else {
				m.status = "Stopped " + st.Config.Name
			}
			m.refresh()
		}
	case "R":
		if st, ok := m.selected(); ok {
			if err := m.mgr.Rerun(st.Config.Name); err != nil {
				m.status = "Rerun failed: " + err.Error()
			} else {
				m.status = "Restarted " + st.Config.Name
			}
			m.refresh()
		}
	case "c":
		if st, ok := m.selected(); ok {
			running, err := m.mgr.Check(st.Config.Name)
			switch {
			case err != nil:
				m.status = "Check failed: " + err.Error()
			case running:
				m.status = st.Config.Name + " is running"
			default:
				m.status = st.Config.Name + " is not running"
			}
			m.refresh()
		}
	}
	return m, nil
}

// runTunnel starts a tunnel unless the control socket already reports a
// live master, which would otherwise spawn a redundant one.
func (m *modelUI) runTunnel(name string, adhocPort int) {
	if running, err := m.mgr.Check(name); err == nil && running {
		m.status = name + " is already running"
		return
	}
	if err := m.mgr.Run(name, adhocPort); err != nil {
		m.status = "Run failed: " + err.Error()
	} else if adhocPort > 0 {
		m.status = fmt.Sprintf("Started %s on port %d", name, adhocPort)
	} else {
		m.status = "Started " + name
	}
	m.refresh()
}

func (m modelUI) selected() (model.TunnelStatus, bool) {
	if len(m.filtered) == 0 {
		return model.TunnelStatus{}, false
	}
	return m.filtered[m.sel], true
}

func (m modelUI) View() string {
	switch m.mode {
	case modeForm:
		return m.form.view(m.effectiveWidth())
	case modePortPrompt:
		return m.prompt.view(m.effectiveWidth())
	}

	head := lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("39")).Render("SSH Tunnels")
	subhead := fmt.Sprintf("tunnels=%d shown=%d refresh=%ds", len(m.statuses), len(m.filtered), clampRefresh(m.cfg.UI.RefreshSeconds))

	list := strings.Builder{}
	list.WriteString(fmt.Sprintf(" %-2s %-18s %-8s %-12s %-12s %s\n", "", "NAME", "TYPE", "LOCAL", "REMOTE", "STATE"))
	for i, st := range m.filtered {
		cursor := " "
		if i == m.sel {
			cursor = ">"
		}
		mark := " "
		if st.Running {
			mark = "*"
		}
		if st.Err != nil {
			list.WriteString(fmt.Sprintf("%s[%s] %-18s %-8s %-12s %-12s invalid\n",
				cursor, mark, st.Config.Name, st.Config.EffectiveType(), "-", "-"))
			continue
		}
		stateStr := "stopped"
		if st.Running {
			stateStr = "running"
		}
		list.WriteString(fmt.Sprintf("%s[%s] %-18s %-8s %-12s %-12s %s\n",
			cursor, mark, st.Resolved.Name, st.Resolved.Type,
			util.EmptyDash(st.Resolved.LocalEndpoint()),
			util.EmptyDash(st.Resolved.RemoteEndpoint()), stateStr))
	}
	if len(m.filtered) == 0 {
		list.WriteString("  (no tunnels matched)\n")
	}

	detail := strings.Builder{}
	if st, ok := m.selected(); ok {
		if st.Err != nil {
			detail.WriteString(fmt.Sprintf("Name: %s\nInvalid: %v\n", st.Config.Name, st.Err))
		} else {
			r := st.Resolved
			detail.WriteString(fmt.Sprintf("Name: %s\nType: %s\nLogin: %s\nHost: %s\n",
				r.Name, r.Type, util.EmptyDash(r.Login), r.Host))
			detail.WriteString(fmt.Sprintf("Local: %s\nRemote: %s\n",
				util.EmptyDash(r.LocalEndpoint()), util.EmptyDash(r.RemoteEndpoint())))
			detail.WriteString("\nNext steps:\n")
			if st.Running {
				detail.WriteString("  - Press x to stop this tunnel, R to restart it.\n")
			} else {
				detail.WriteString("  - Press r to start this tunnel, p to pick a different local port.\n")
			}
		}
	} else {
		detail.WriteString("No tunnels configured.\nPress a to add one, or seed tunnels.yaml with `ssh-tunnels import`.\n")
	}

	warn := ""
	if len(m.warnings) > 0 {
		warn = "Warnings: " + strings.Join(m.warnings, " | ") + "\n"
	}
	filterLine := fmt.Sprintf("Filter: %s", m.filter)
	if m.filterMode {
		filterLine += " (typing...)"
	}

	quickHelp := "Keys: r run | p run on port | x kill | R rerun | c check | a add | / filter | ? help | q quit"
	main := m.renderMainPanels(list.String(), detail.String())
	status := m.renderPanel("Status", m.status, m.effectiveWidth(), lipgloss.Color("205"))
	help := ""
	if m.showHelp {
		help = m.renderPanel("Help", m.helpBlock(), m.effectiveWidth(), lipgloss.Color("244"))
	}
	return lipgloss.JoinVertical(
		lipgloss.Left,
		head,
		subhead,
		filterLine,
		quickHelp,
		main,
		help,
		warn,
		status,
	)
}

// Run starts the interactive tunnel list.
func Run() error {
	cfg, err := appconfig.Load()
	if err != nil {
		return err
	}
	if err := sshclient.EnsureBinary(cfg.SSHBinary); err != nil {
		return err
	}
	p := tea.NewProgram(initialModel(), tea.WithAltScreen())
	_, err = p.Run()
	return err
}

func clampRefresh(seconds int) int {
	if seconds <= 0 {
		return util.DefaultRefreshSeconds
	}
	return seconds
}

func (m modelUI) helpBlock() string {
	return strings.Join([]string{
		"  Navigation: j/k or arrow keys move selection.",
		"  Filtering: press /, type name/login/host text, then Enter.",
		"  Run: press r; p asks for an ad-hoc local port first.",
		"  Kill/Rerun: press x to stop, R to stop-then-start.",
		"  Check: press c to query the control socket; g refreshes all.",
		"  Add: press a to define a new tunnel in tunnels.yaml.",
		"  Quit: press q (or Ctrl+C). Running tunnels keep running.",
	}, "\n")
}

func (m modelUI) renderMainPanels(listPanel, detailsPanel string) string {
	width := m.effectiveWidth()
	if width < 96 {
		return lipgloss.JoinVertical(
			lipgloss.Left,
			m.renderPanel("Tunnels", listPanel, width, lipgloss.Color("39")),
			m.renderPanel("Details", detailsPanel, width, lipgloss.Color("69")),
		)
	}
	leftWidth := width * 3 / 5
	rightWidth := width - leftWidth
	return lipgloss.JoinHorizontal(
		lipgloss.Top,
		m.renderPanel("Tunnels", listPanel, leftWidth, lipgloss.Color("39")),
		m.renderPanel("Details", detailsPanel, rightWidth, lipgloss.Color("69")),
	)
}

func (m modelUI) effectiveWidth() int {
	if m.width <= 0 {
		return 100
	}
	return m.width
}

func (m modelUI) renderPanel(title, body string, width int, accent lipgloss.Color) string {
	if width < 24 {
		width = 24
	}
	header := lipgloss.NewStyle().Bold(true).Foreground(accent).Render(title)
	content := strings.TrimSuffix(body, "\n")
	panel := strings.TrimSpace(header + "\n" + content)
	return lipgloss.NewStyle().
		Width(width).
		Border(lipgloss.RoundedBorder()).
		BorderForeground(accent).
		Padding(0, 1).
		Render(panel)
}
