// Cockpit provides a TUI to view and manipulate the registers of the relay controller FPGA over modbus.
package main

import (
	"flag"
	"fmt"
	"log"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/table"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/rwirdemann/regmap"
	"github.com/rwirdemann/regmap/fpga"
	"github.com/rwirdemann/regmap/modbus"
)

const (
	focusRegisterList = iota
	focusRegisterInput
	focusSlaves
	ratioLeftPanelWidth = 0.6
	defaultMap          = "relay-modbus"
)

var (
	configPath *string // base directory of config files
)

var baseStyle = lipgloss.NewStyle().
	BorderStyle(lipgloss.RoundedBorder())

var activeStyle = baseStyle.
	BorderForeground(lipgloss.Color("white"))

var passiveStyle = baseStyle.
	BorderForeground(lipgloss.Color("240"))

var helpStyle = lipgloss.NewStyle().Foreground(lipgloss.AdaptiveColor{
	Light: "#909090",
	Dark:  "#626262",
}).Padding(0, 1)

var statusStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("214"))

// slave is one sub-block of the FPGA reached through a modbus endpoint.
type slave struct {
	regmap.Unit
	url     string
	device  *regmap.Device
	updated time.Time
}

var slaves []*slave

func main() {
	configPath = flag.String("config", "config", "config base directory")
	help := flag.Bool("help", false, "print usage")
	flag.Parse()

	if *help {
		flag.Usage()
		os.Exit(0)
	}

	config, err := regmap.LoadConfig(*configPath)
	if err != nil {
		log.Fatal(err)
	}
	ref := config.MapPath(*configPath)
	if ref == "" {
		ref = defaultMap
	}
	m, err := fpga.Open(ref)
	if err != nil {
		log.Fatal(err)
	}

	// One adapter per serial; its unit table yields the slaves shown in the view.
	var adapters []*modbus.Adapter
	for _, serial := range config.Serials {
		adapter, err := modbus.NewAdapter(serial, m)
		if err != nil {
			log.Fatal(err)
		}
		adapters = append(adapters, adapter)
		device := regmap.NewDevice(m, adapter)
		for _, u := range adapter.Units().Units() {
			slaves = append(slaves, &slave{Unit: u, url: serial.Url, device: device})
		}
	}
	defer func() {
		for _, a := range adapters {
			a.Close()
		}
	}()
	if len(slaves) == 0 {
		log.Fatal("no modbus slaves configured")
	}

	// keep log output off the alt screen
	f, err := tea.LogToFile("cockpit.log", "cockpit")
	if err != nil {
		log.Fatal(err)
	}
	defer f.Close()

	if _, err := tea.NewProgram(newModel(), tea.WithAltScreen()).Run(); err != nil {
		fmt.Println("Error running program:", err)
		os.Exit(1)
	}
}

type model struct {
	focus            int
	registerTable    table.Model
	slaveTable       table.Model
	samples          []regmap.Sample
	current          regmap.Sample
	registerInput    textinput.Model
	status           string
	fullHeight       int
	fullWidth        int
	leftPanelWidth   int
	rightPanelWidth  int
	slavePanelHeight int
	editPanelHeight  int
}

func newModel() model {
	s := table.DefaultStyles()
	s.Header = s.Header.
		BorderStyle(lipgloss.NormalBorder()).
		BorderForeground(lipgloss.Color("240")).
		BorderBottom(true).
		Bold(false)
	s.Selected = s.Selected.
		Foreground(lipgloss.Color("229")).
		Background(lipgloss.Color("57")).
		Bold(true)

	columns := []table.Column{
		{Title: "Register", Width: 16},
		{Title: "Offset", Width: 9},
		{Title: "Mode", Width: 4},
		{Title: "Value", Width: 12},
		{Title: "Description", Width: 26},
	}

	samples := readSamples(slaves[0])
	registerTable := table.New(
		table.WithColumns(columns),
		table.WithRows(samplesToTableRows(samples)),
		table.WithFocused(true),
	)
	registerTable.SetStyles(s)

	slaveColumns := []table.Column{
		{Title: "Block", Width: 12},
		{Title: "URL", Width: 20},
		{Title: "Unit", Width: 4},
		{Title: "Updated", Width: 9},
	}
	slaveTable := table.New(
		table.WithColumns(slaveColumns),
		table.WithRows(slavesToTableRows()),
	)
	slaveTable.SetStyles(s)

	return model{
		registerTable: registerTable,
		registerInput: textinput.New(),
		focus:         focusRegisterList,
		slaveTable:    slaveTable,
		samples:       samples,
	}
}

func readSamples(s *slave) []regmap.Sample {
	samples, err := s.device.Snapshot(s.Group.Path)
	if err != nil {
		slog.Error("snapshot failed", "group", s.Group.Path, "err", err)
		return nil
	}
	s.updated = time.Now()
	return samples
}

func slavesToTableRows() []table.Row {
	var rows []table.Row
	for _, s := range slaves {
		updated := "-"
		if !s.updated.IsZero() {
			updated = s.updated.Format("15:04:05")
		}
		rows = append(rows, table.Row{s.Group.Path, s.url, fmt.Sprintf("%d", s.Address), updated})
	}
	return rows
}

type tickMsg time.Time

func tickCmd() tea.Cmd {
	return tea.Tick(time.Second*1, func(t time.Time) tea.Msg {
		return tickMsg(t)
	})
}

func (m model) Init() tea.Cmd { return tickCmd() }

func (m model) selectedSlave() *slave {
	return slaves[m.slaveTable.Cursor()]
}

func (m *model) refresh() {
	m.samples = readSamples(m.selectedSlave())
	m.registerTable.SetRows(samplesToTableRows(m.samples))
	m.slaveTable.SetRows(slavesToTableRows())
}

func (m model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var (
		cmds []tea.Cmd
		cmd  tea.Cmd
	)

	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.fullHeight = msg.Height
		m.fullWidth = msg.Width

		m.leftPanelWidth = int(float32(m.fullWidth) * ratioLeftPanelWidth)
		m.rightPanelWidth = m.fullWidth - m.leftPanelWidth - 4

		m.slavePanelHeight = (m.fullHeight - 5) / 2
		m.editPanelHeight = (m.fullHeight - 5) / 2
		if m.fullHeight%2 != 0 {
			m.editPanelHeight -= 1
		}

		m.registerTable.SetHeight(m.fullHeight - 4)
		m.slaveTable.SetHeight(m.slavePanelHeight - 4)

		return m, nil

	case tea.KeyMsg:
		switch m.focus {
		case focusRegisterList:
			m.registerTable, cmd = m.registerTable.Update(msg)
			cmds = append(cmds, cmd)

			switch msg.String() {
			case "tab":
				m.focus = focusSlaves
				m.registerTable.Blur()
				m.slaveTable.Focus()
			case "q", "ctrl+c":
				return m, tea.Quit
			case "enter":
				if len(m.samples) == 0 {
					break
				}
				m.current = m.samples[m.registerTable.Cursor()]
				if !m.current.Mode.Writable() {
					m.status = fmt.Sprintf("%s is read-only", m.current.Name)
					break
				}
				m.status = ""
				m.registerInput.SetValue(fmt.Sprintf("0x%X", m.current.Value))
				m.registerInput.SetCursor(len(m.registerInput.Value()))
				m.registerInput.Focus()
				m.registerTable.Blur()
				m.focus = focusRegisterInput
			}

		case focusSlaves:
			oldCursor := m.slaveTable.Cursor()
			m.slaveTable, cmd = m.slaveTable.Update(msg)

			// Reset register cursor and reload if the block has changed
			if oldCursor != m.slaveTable.Cursor() {
				m.registerTable.SetCursor(0)
				m.refresh()
			}
			cmds = append(cmds, cmd)

			switch msg.String() {
			case "tab":
				m.focus = focusRegisterList
				m.slaveTable.Blur()
				m.registerTable.Focus()
			case "q", "ctrl+c":
				return m, tea.Quit
			}

		case focusRegisterInput:
			m.registerInput, cmd = m.registerInput.Update(msg)
			cmds = append(cmds, cmd)

			switch msg.String() {
			case "esc":
				m.registerInput.Blur()
				m.registerTable.Focus()
				m.focus = focusRegisterList
			case "enter":
				v, err := strconv.ParseUint(strings.TrimSpace(m.registerInput.Value()), 0, 32)
				if err != nil {
					m.status = fmt.Sprintf("invalid value: %v", err)
					break
				}
				if err := m.selectedSlave().device.Write(m.current.Path, uint32(v)); err != nil {
					slog.Error("write failed", "register", m.current.Path, "err", err)
					m.status = err.Error()
				} else {
					m.status = fmt.Sprintf("%s <- 0x%X", m.current.Name, v)
				}
				m.refresh()
				m.registerInput.Blur()
				m.registerTable.Focus()
				m.focus = focusRegisterList
			}
		}
	case tickMsg:
		m.refresh()
		cmds = append(cmds, tickCmd())
	}

	return m, tea.Batch(cmds...)
}

func (m model) View() string {
	slavePanel := m.renderSlaveTable()
	registerForm := m.renderRegisterForm()
	panels := lipgloss.JoinVertical(lipgloss.Top, slavePanel, registerForm)
	registerTable := m.renderRegisterTable()
	return lipgloss.JoinHorizontal(lipgloss.Top, registerTable, panels)
}

func (m model) renderRegisterTable() string {
	var style lipgloss.Style
	if m.focus == focusRegisterList {
		style = activeStyle
	} else {
		style = passiveStyle
	}
	style = style.Height(m.fullHeight - 4).Width(m.leftPanelWidth)
	return style.Render(m.registerTable.View()) + "\n  " + m.registerTable.HelpView() + helpStyle.Render(" • <enter> edit register • <tab> switch block") + "\n"
}

func (m model) renderRegisterForm() string {
	var style lipgloss.Style
	if m.focus == focusRegisterInput {
		style = activeStyle
	} else {
		style = passiveStyle
	}

	s := ""
	if m.focus == focusRegisterInput {
		s = fmt.Sprintf("\nRegister: %s\n", m.current.Path)
		s = fmt.Sprintf("%sOffset  : 0x%06X\n\n", s, m.current.Offset)
		m.registerInput.Prompt = "Value   : "
		s += m.registerInput.View()
	}
	if m.status != "" {
		s += "\n\n" + statusStyle.Render(m.status)
	}

	style = style.Border(generateBorder("Edit Register", m.rightPanelWidth))
	return lipgloss.JoinVertical(
		lipgloss.Top,
		style.Padding(0, 1).Height(m.editPanelHeight).Width(m.rightPanelWidth).Render(s),
		helpStyle.Render("enter - save • esc - discard"))
}

func (m model) renderSlaveTable() string {
	var style lipgloss.Style
	if m.focus == focusSlaves {
		style = activeStyle
	} else {
		style = passiveStyle
	}
	return style.Height(m.slavePanelHeight).Width(m.rightPanelWidth).Render(m.slaveTable.View())
}

func generateBorder(title string, width int) lipgloss.Border {
	if width < 0 {
		return lipgloss.RoundedBorder()
	}
	border := lipgloss.RoundedBorder()
	border.Top = border.Top + border.MiddleRight + " " + title + " " + border.MiddleLeft + strings.Repeat(border.Top, width)
	return border
}

func samplesToTableRows(samples []regmap.Sample) []table.Row {
	var rows []table.Row
	for _, s := range samples {
		rows = append(rows, buildTableRow(s))
	}
	return rows
}

func buildTableRow(s regmap.Sample) table.Row {
	value := fmt.Sprintf("0x%08X", s.Value)
	if s.Err != nil {
		value = "error"
	}
	return table.Row{
		s.Name,
		fmt.Sprintf("0x%06X", s.Offset),
		string(s.Mode),
		value,
		s.Description,
	}
}
