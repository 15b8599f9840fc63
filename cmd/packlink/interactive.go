package main

import (
	"fmt"
	"os"
	"sort"
	"strings"

	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/pakstream/packlink"
	"github.com/pakstream/packlink/format"
)

var (
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#FAFAFA")).
			Background(lipgloss.Color("#7D56F4")).
			Padding(0, 1)

	pkgStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#98FB98"))

	dimStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#87CEEB"))

	selectedStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FAFAFA")).
			Background(lipgloss.Color("#7D56F4"))

	errorStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FF6B6B"))

	helpStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#666666"))
)

type pkgInfo struct {
	id      packlink.PackageID
	name    string
	exports int
	bundles int
	order   uint32
	data    []byte
}

type browserModel struct {
	err      error
	files    []string
	cache    *format.Cache
	pkgs     []pkgInfo
	selected int
	state    browserState
	view     viewport.Model
	width    int
	height   int
}

type browserState int

const (
	stateSelectPkg browserState = iota
	stateViewDump
)

type loadedMsg struct {
	err  error
	pkgs []pkgInfo
}

func newBrowserModel(files []string) (*browserModel, error) {
	cache, err := format.NewCache(64)
	if err != nil {
		return nil, err
	}
	return &browserModel{
		files: files,
		cache: cache,
		view:  viewport.New(80, 20),
	}, nil
}

func (m *browserModel) Init() tea.Cmd {
	return m.loadFiles
}

// loadFiles decodes every optimized buffer on the command line; container
// files contribute their entry metadata for packages whose buffers are
// present alongside.
func (m *browserModel) loadFiles() tea.Msg {
	var pkgs []pkgInfo
	for _, path := range m.files {
		data, err := os.ReadFile(path)
		if err != nil {
			return loadedMsg{err: err}
		}
		if format.Detect(data) != format.KindOptimized {
			continue
		}
		pkg, err := format.DecodeOptimized(data)
		if err != nil {
			return loadedMsg{err: fmt.Errorf("decode %s: %w", path, err)}
		}
		pkgs = append(pkgs, pkgInfo{
			id:      pkg.ID,
			name:    pkg.Name,
			exports: len(pkg.Exports),
			bundles: len(pkg.Bundles),
			order:   pkg.LoadOrder,
			data:    data,
		})
	}
	if len(pkgs) == 0 {
		return loadedMsg{err: fmt.Errorf("no optimized package buffers among %d files", len(m.files))}
	}
	sort.Slice(pkgs, func(i, j int) bool {
		if pkgs[i].order != pkgs[j].order {
			return pkgs[i].order < pkgs[j].order
		}
		return pkgs[i].id < pkgs[j].id
	})
	return loadedMsg{pkgs: pkgs}
}

func (m *browserModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.view.Width = msg.Width
		m.view.Height = msg.Height - 4

	case tea.KeyMsg:
		switch msg.String() {
		case "ctrl+c", "q":
			return m, tea.Quit

		case "up", "k":
			if m.state == stateSelectPkg && m.selected > 0 {
				m.selected--
			}

		case "down", "j":
			if m.state == stateSelectPkg && m.selected < len(m.pkgs)-1 {
				m.selected++
			}

		case "enter":
			if m.state == stateSelectPkg && len(m.pkgs) > 0 {
				if err := m.openSelected(); err != nil {
					m.err = err
					return m, nil
				}
				m.state = stateViewDump
			}

		case "esc":
			if m.state == stateViewDump {
				m.state = stateSelectPkg
			}
		}

	case loadedMsg:
		if msg.err != nil {
			m.err = msg.err
			return m, nil
		}
		m.pkgs = msg.pkgs
	}

	if m.state == stateViewDump {
		var cmd tea.Cmd
		m.view, cmd = m.view.Update(msg)
		return m, cmd
	}
	return m, nil
}

// openSelected decodes the selected package through the cache and fills the
// viewport with its dump.
func (m *browserModel) openSelected() error {
	info := m.pkgs[m.selected]
	pkg, err := m.cache.Load(info.id, info.data)
	if err != nil {
		return err
	}
	m.view.SetContent(pkg.Dump())
	m.view.GotoTop()
	return nil
}

func (m *browserModel) View() string {
	if m.err != nil {
		return errorStyle.Render(fmt.Sprintf("Error: %v\n\nPress q to quit.", m.err))
	}
	if len(m.pkgs) == 0 {
		return "Loading packages..."
	}

	var b strings.Builder
	b.WriteString(titleStyle.Render("packlink inspect"))
	b.WriteString("\n\n")

	switch m.state {
	case stateSelectPkg:
		for i, p := range m.pkgs {
			line := fmt.Sprintf("%s  %s",
				pkgStyle.Render(p.name),
				dimStyle.Render(fmt.Sprintf("order=%d exports=%d bundles=%d", p.order, p.exports, p.bundles)))
			if i == m.selected {
				b.WriteString(selectedStyle.Render("> " + line))
			} else {
				b.WriteString("  " + line)
			}
			b.WriteString("\n")
		}
		b.WriteString("\n")
		b.WriteString(helpStyle.Render("↑/↓ select • enter open • q quit"))

	case stateViewDump:
		b.WriteString(m.view.View())
		b.WriteString("\n")
		b.WriteString(helpStyle.Render("↑/↓ scroll • esc back • q quit"))
	}

	return b.String()
}

func runInteractive(files []string) error {
	m, err := newBrowserModel(files)
	if err != nil {
		return err
	}
	p := tea.NewProgram(m, tea.WithAltScreen())
	_, err = p.Run()
	return err
}
