package ui

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/death/ssh-tunnels/internal/config"
	"github.com/death/ssh-tunnels/internal/model"
	"github.com/death/ssh-tunnels/internal/resolve"
	"github.com/death/ssh-tunnels/internal/util"
)

// Field indices for the add-tunnel form.
const (
	fieldName = iota
	fieldType
	fieldLogin
	fieldHost
	fieldLocalPort
	fieldRemotePort
	fieldLocalSocket
	fieldRemoteSocket
	fieldCount
)

// tunnelForm holds all state for the "new tunnel" screen.
type tunnelForm struct {
	fields   []textinput.Model
	focusIdx int
	errText  string
}

func newTunnelForm() *tunnelForm {
	labels := []string{
		"name", "type (local/remote/dynamic/shell)", "login (user@host)",
		"host", "local port", "remote port", "local socket", "remote socket",
	}
	fields := make([]textinput.Model, fieldCount)
	for i := range fields {
		ti := textinput.New()
		ti.Placeholder = labels[i]
		ti.CharLimit = 128
		ti.Width = 40
		fields[i] = ti
	}
	fields[fieldName].Focus()
	return &tunnelForm{fields: fields}
}

func (f *tunnelForm) focusCmd() tea.Cmd {
	return textinput.Blink
}

// compile turns the field values into a tunnel definition, reporting the
// first problem found.
func (f *tunnelForm) compile() (model.TunnelConfig, error) {
	t := model.TunnelConfig{
		Name:         strings.TrimSpace(f.fields[fieldName].Value()),
		Login:        strings.TrimSpace(f.fields[fieldLogin].Value()),
		Host:         strings.TrimSpace(f.fields[fieldHost].Value()),
		LocalSocket:  strings.TrimSpace(f.fields[fieldLocalSocket].Value()),
		RemoteSocket: strings.TrimSpace(f.fields[fieldRemoteSocket].Value()),
	}
	if err := config.ValidateName(t.Name); err != nil {
		return t, err
	}

	switch typ := strings.TrimSpace(f.fields[fieldType].Value()); typ {
	case "", string(model.TypeLocal):
		// Default type.
	case string(model.TypeRemote), string(model.TypeDynamic), string(model.TypeShell):
		t.Type = model.TunnelType(typ)
	default:
		return t, fmt.Errorf("unknown tunnel type %q", typ)
	}

	if t.Login == "" {
		return t, fmt.Errorf("login is required")
	}

	for _, spec := range []struct {
		idx  int
		dest **int
	}{
		{fieldLocalPort, &t.LocalPort},
		{fieldRemotePort, &t.RemotePort},
	} {
		v := strings.TrimSpace(f.fields[spec.idx].Value())
		if v == "" {
			continue
		}
		p, err := strconv.Atoi(v)
		if err != nil {
			return t, fmt.Errorf("invalid port %q", v)
		}
		if err := util.ValidatePort(p); err != nil {
			return t, err
		}
		*spec.dest = &p
	}

	if err := resolve.Validate(t); err != nil {
		return t, err
	}
	return t, nil
}

func (m modelUI) updateForm(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	f := m.form
	switch msg.String() {
	case "esc":
		m.mode = modeList
		m.status = "Add cancelled"
		return m, nil
	case "tab", "down":
		f.setFocus((f.focusIdx + 1) % fieldCount)
		return m, textinput.Blink
	case "shift+tab", "up":
		f.setFocus((f.focusIdx + fieldCount - 1) % fieldCount)
		return m, textinput.Blink
	case "enter":
		t, err := f.compile()
		if err != nil {
			f.errText = err.Error()
			return m, nil
		}
		added, err := config.Append([]model.TunnelConfig{t})
		if err != nil {
			f.errText = err.Error()
			return m, nil
		}
		if added == 0 {
			f.errText = fmt.Sprintf("tunnel %q already exists", t.Name)
			return m, nil
		}
		if res, err := config.Load(); err == nil {
			m.mgr.SetTunnels(res.Tunnels)
			m.warnings = res.Warnings
		}
		m.mode = modeList
		m.status = "Added " + t.Name
		m.refresh()
		return m, nil
	}

	var cmd tea.Cmd
	f.fields[f.focusIdx], cmd = f.fields[f.focusIdx].Update(msg)
	return m, cmd
}

func (f *tunnelForm) setFocus(idx int) {
	f.fields[f.focusIdx].Blur()
	f.focusIdx = idx
	f.fields[f.focusIdx].Focus()
}

func (f *tunnelForm) view(width int) string {
	b := strings.Builder{}
	b.WriteString(lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("39")).Render("New Tunnel"))
	b.WriteString("\n\nTab moves between fields; Enter saves; Esc cancels.\n\n")
	labels := []string{"Name", "Type", "Login", "Host", "Local port", "Remote port", "Local socket", "Remote socket"}
	for i, ti := range f.fields {
		marker := "  "
		if i == f.focusIdx {
			marker = "> "
		}
		b.WriteString(fmt.Sprintf("%s%-14s %s\n", marker, labels[i]+":", ti.View()))
	}
	if f.errText != "" {
		b.WriteString("\n" + lipgloss.NewStyle().Foreground(lipgloss.Color("203")).Render(f.errText) + "\n")
	}
	return lipgloss.NewStyle().Width(clampWidth(width)).Padding(1, 2).Render(b.String())
}

// portPrompt asks for an ad-hoc local port before running a tunnel.
type portPrompt struct {
	tunnel  string
	input   textinput.Model
	errText string
}

func newPortPrompt(tunnel string) *portPrompt {
	ti := textinput.New()
	ti.Placeholder = "local port"
	ti.CharLimit = 5
	ti.Width = 8
	ti.Focus()
	return &portPrompt{tunnel: tunnel, input: ti}
}

func (p *portPrompt) focusCmd() tea.Cmd {
	return textinput.Blink
}

func (m modelUI) updatePrompt(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	p := m.prompt
	switch msg.String() {
	case "esc":
		m.mode = modeList
		m.status = "Run cancelled"
		return m, nil
	case "enter":
		port, err := strconv.Atoi(strings.TrimSpace(p.input.Value()))
		if err != nil {
			p.errText = "port must be a number"
			return m, nil
		}
		if err := util.ValidatePort(port); err != nil {
			p.errText = err.Error()
			return m, nil
		}
		m.mode = modeList
		m.runTunnel(p.tunnel, port)
		return m, nil
	}

	var cmd tea.Cmd
	p.input, cmd = p.input.Update(msg)
	return m, cmd
}

func (p *portPrompt) view(width int) string {
	b := strings.Builder{}
	b.WriteString(lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("39")).Render("Run " + p.tunnel))
	b.WriteString("\n\nEnter a local port for this run; Esc cancels.\n\n")
	b.WriteString("  Port: " + p.input.View() + "\n")
	if p.errText != "" {
		b.WriteString("\n" + lipgloss.NewStyle().Foreground(lipgloss.Color("203")).Render(p.errText) + "\n")
	}
	return lipgloss.NewStyle().Width(clampWidth(width)).Padding(1, 2).Render(b.String())
}

func clampWidth(w int) int {
	if w <= 0 {
		return 100
	}
	return w
}
