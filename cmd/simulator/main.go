// Simulator serves the relay controller FPGA register map over modbus TCP
// from memory. Each sub-block is a slave that can be taken on- and offline.
package main

import (
	"flag"
	"fmt"
	"log"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/charmbracelet/bubbles/list"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/rwirdemann/regmap"
	"github.com/rwirdemann/regmap/fpga"
	"github.com/rwirdemann/regmap/modbus"
)

const defaultMap = "relay-modbus"

var (
	itemStyle = lipgloss.NewStyle().
			PaddingLeft(1).
			PaddingRight(1)

	selectedItemStyle = lipgloss.NewStyle().
				PaddingLeft(1).
				PaddingRight(1).
				Foreground(lipgloss.Color("#FAFAFA")).
				Background(lipgloss.Color("#F25D94"))

	slaveStyle = lipgloss.NewStyle().Height(20).Width(60).Border(lipgloss.NormalBorder())
	logStyle   = lipgloss.NewStyle().Height(20).Width(70).Border(lipgloss.NormalBorder())
)

// Slave represents an entry in the slave list. A slave holds a reference to the server it belongs to in order to inform
// the server whether the slave is online or not.
type Slave struct {
	URL    string
	ID     uint8
	Block  string
	Offset uint64
	Server *regmap.ModbusServer
}

func (c Slave) Description() string {
	connected := " online"
	if !c.Server.Online(c.ID) {
		connected = "offline"
	}
	return fmt.Sprintf("%-20s %3d %-10s 0x%06X %-8s", c.URL, c.ID, c.Block, c.Offset, connected)
}

func (c Slave) FilterValue() string {
	return c.URL + " " + c.Block
}

type model struct {
	list     list.Model
	quitting bool
	logger   *logger
}

type tickMsg time.Time

func tickCmd() tea.Cmd {
	return tea.Tick(time.Second*1, func(t time.Time) tea.Msg {
		return tickMsg(t)
	})
}

func (m model) Init() tea.Cmd {
	return tickCmd()
}

func (m model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmds []tea.Cmd

	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.list.SetWidth(msg.Width)
		return m, nil

	case tea.KeyMsg:
		switch keypress := msg.String(); keypress {
		case "ctrl+c", "q":
			m.quitting = true
			return m, tea.Quit

		case "enter":
			if len(m.list.Items()) > 0 {
				selected := m.list.SelectedItem().(Slave)
				if selected.Server.Online(selected.ID) {
					selected.Server.Disconnect(selected.ID)
					m.logger.Append(fmt.Sprintf("%s: %s:%d %s: disconnected", time.Now().Format(time.DateTime), selected.URL, selected.ID, selected.Block))
				} else {
					selected.Server.Connect(selected.ID)
					m.logger.Append(fmt.Sprintf("%s: %s:%d %s: connected", time.Now().Format(time.DateTime), selected.URL, selected.ID, selected.Block))
				}
				return m, m.list.SetItem(m.list.Index(), selected)
			}
			return m, nil
		}
	case tickMsg:
		cmds = append(cmds, tickCmd())
	}

	var cmd tea.Cmd
	m.list, cmd = m.list.Update(msg)
	cmds = append(cmds, cmd)
	return m, tea.Batch(cmds...)
}

func (m model) View() string {
	if m.quitting {
		return "Goodbye!\n"
	}

	var b strings.Builder

	// Slave list
	for i, item := range m.list.Items() {
		slave := item.(Slave)

		var style lipgloss.Style
		if i == m.list.Index() {
			style = selectedItemStyle
		} else {
			style = itemStyle
		}

		b.WriteString(style.Render(slave.Description()))
		b.WriteString("\n")
	}

	b.WriteString("\n")
	b.WriteString("Press 'enter' to toggle a slave, 'q' to quit")

	logs := logStyle.Render(strings.Join(m.logger.Items(), "\n"))
	return lipgloss.JoinHorizontal(lipgloss.Top, slaveStyle.Render(b.String()), logs)
}

// logger keeps the most recent server events, newest first. The servers
// append from their connection goroutines.
type logger struct {
	mu    sync.Mutex
	items []string
}

func (l *logger) Append(s string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if len(l.items) >= 20 {
		l.items = l.items[:19]
	}
	l.items = append([]string{s}, l.items...)
}

func (l *logger) Items() []string {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]string(nil), l.items...)
}

func main() {
	var configPath string
	flag.StringVar(&configPath, "config", "config", "path to the configuration directory")
	flag.Parse()
	if configPath == "" {
		flag.PrintDefaults()
		os.Exit(0)
	}

	config, err := regmap.LoadConfig(configPath)
	if err != nil {
		log.Fatal(err)
	}
	ref := config.MapPath(configPath)
	if ref == "" {
		ref = defaultMap
	}
	m, err := fpga.Open(ref)
	if err != nil {
		log.Fatal(err)
	}

	logger := &logger{}
	var servers []*regmap.ModbusServer
	var slaves []list.Item
	for _, serial := range config.Serials {
		defs := serial.Slaves
		if len(defs) == 0 {
			defs = regmap.DefaultSlaves(m)
		}
		units, err := regmap.NewUnitTable(m, defs)
		if err != nil {
			log.Fatal(err)
		}

		// every serial simulates its own device
		ms, err := regmap.NewModbusServer(serial.Url, units, modbus.NewMemoryMap(), logger)
		if err != nil {
			log.Fatal(err)
		}
		if err := ms.Start(); err != nil {
			log.Fatal(err)
		}
		servers = append(servers, ms)

		for _, u := range units.Units() {
			slaves = append(slaves, Slave{
				URL:    serial.Url,
				ID:     u.Address,
				Block:  u.Group.Name,
				Offset: u.Group.Offset,
				Server: ms,
			})
		}
	}
	defer func() {
		for _, ms := range servers {
			_ = ms.Stop()
		}
	}()

	l := list.New(slaves, list.NewDefaultDelegate(), 0, 0)
	l.SetShowStatusBar(false)
	l.SetFilteringEnabled(false)
	l.SetShowHelp(false)
	l.SetShowTitle(false)

	p := tea.NewProgram(model{list: l, logger: logger}, tea.WithAltScreen())
	if _, err := p.Run(); err != nil {
		log.Fatal(err)
	}
}
