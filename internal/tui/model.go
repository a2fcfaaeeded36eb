// Package tui provides the BubbleTea-based theme picker behind `daynight pick`.
package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/list"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/jmylchreest/daynight/internal/config"
	"github.com/jmylchreest/daynight/internal/model"
	"github.com/jmylchreest/daynight/internal/theme"
)

// Selection is the outcome of a completed pick.
type Selection struct {
	Daytime   model.ThemePair
	Nighttime model.ThemePair
}

// step is one of the four choices the picker walks through.
type step struct {
	title   string
	choices []theme.Choice
	current string
}

// choiceItem wraps a theme choice for the list component.
type choiceItem struct {
	choice theme.Choice
}

func (i choiceItem) Title() string       { return i.choice.Description }
func (i choiceItem) Description() string { return i.choice.Value }
func (i choiceItem) FilterValue() string {
	return i.choice.Description + " " + i.choice.Value
}

var (
	headerStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("12")).
			Padding(0, 1)
	labelStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("8"))
	pickedStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("10"))
)

// Model is the picker model.
type Model struct {
	steps  []step
	index  int
	picked []string

	list list.Model
	help help.Model
	keys KeyMap

	width     int
	height    int
	done      bool
	cancelled bool
}

// New creates a picker over the registry's themes, preselecting the
// currently configured ones.
func New(registry *theme.Registry, current config.AppearanceConfig) Model {
	ui, syntax := registry.UI(), registry.Syntax()
	steps := []step{
		{title: "Daytime UI theme", choices: ui, current: current.DaytimeUITheme},
		{title: "Daytime syntax theme", choices: syntax, current: current.DaytimeSyntaxTheme},
		{title: "Nighttime UI theme", choices: ui, current: current.NighttimeUITheme},
		{title: "Nighttime syntax theme", choices: syntax, current: current.NighttimeSyntaxTheme},
	}

	l := list.New(nil, list.NewDefaultDelegate(), 0, 0)
	l.SetShowStatusBar(false)
	l.SetShowHelp(false)
	l.SetShowTitle(false)
	l.SetFilteringEnabled(true)
	l.DisableQuitKeybindings()

	m := Model{
		steps:  steps,
		picked: make([]string, len(steps)),
		list:   l,
		help:   help.New(),
		keys:   DefaultKeyMap(),
	}
	m.loadStep()
	return m
}

// loadStep fills the list with the current step's choices.
func (m *Model) loadStep() {
	s := m.steps[m.index]

	items := make([]list.Item, len(s.choices))
	selected := 0
	want := s.current
	if m.picked[m.index] != "" {
		want = m.picked[m.index]
	}
	for i, c := range s.choices {
		items[i] = choiceItem{choice: c}
		if c.Value == want {
			selected = i
		}
	}

	m.list.ResetFilter()
	m.list.SetItems(items)
	m.list.Select(selected)
}

// Init initializes the picker.
func (m Model) Init() tea.Cmd {
	return nil
}

// Update handles messages and updates the model.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.help.Width = msg.Width
		m.list.SetSize(msg.Width, max(msg.Height-8, 3))
		return m, nil

	case tea.KeyMsg:
		return m.handleKey(msg)
	}

	var cmd tea.Cmd
	m.list, cmd = m.list.Update(msg)
	return m, cmd
}

// handleKey handles key presses.
func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	// While typing a filter, the list owns every key but ctrl+c.
	if m.list.FilterState() == list.Filtering {
		if msg.Type == tea.KeyCtrlC {
			m.cancelled = true
			return m, tea.Quit
		}
		var cmd tea.Cmd
		m.list, cmd = m.list.Update(msg)
		return m, cmd
	}

	switch {
	case key.Matches(msg, m.keys.Quit):
		m.cancelled = true
		return m, tea.Quit

	case key.Matches(msg, m.keys.Help):
		m.help.ShowAll = !m.help.ShowAll
		return m, nil

	case key.Matches(msg, m.keys.Back):
		if m.list.FilterState() == list.FilterApplied {
			m.list.ResetFilter()
			return m, nil
		}
		if m.index > 0 {
			m.index--
			m.loadStep()
		}
		return m, nil

	case key.Matches(msg, m.keys.Select):
		item, ok := m.list.SelectedItem().(choiceItem)
		if !ok {
			return m, nil
		}
		m.picked[m.index] = item.choice.Value
		if m.index == len(m.steps)-1 {
			m.done = true
			return m, tea.Quit
		}
		m.index++
		m.loadStep()
		return m, nil
	}

	var cmd tea.Cmd
	m.list, cmd = m.list.Update(msg)
	return m, cmd
}

// Result returns the selection once every step has been chosen.
func (m Model) Result() (*Selection, bool) {
	if !m.done || m.cancelled {
		return nil, false
	}
	return &Selection{
		Daytime:   model.ThemePair{UI: m.picked[0], Syntax: m.picked[1]},
		Nighttime: model.ThemePair{UI: m.picked[2], Syntax: m.picked[3]},
	}, true
}

// View renders the picker.
func (m Model) View() string {
	if m.done || m.cancelled {
		return ""
	}

	var b strings.Builder
	b.WriteString(headerStyle.Render(fmt.Sprintf("%s (%d/%d)", m.steps[m.index].title, m.index+1, len(m.steps))))
	b.WriteString("\n")
	b.WriteString(m.list.View())
	b.WriteString("\n")

	for i, s := range m.steps[:m.index] {
		b.WriteString(labelStyle.Render(s.title+": ") + pickedStyle.Render(theme.Title(m.picked[i])) + "\n")
	}

	b.WriteString(m.help.View(m.keys))
	return b.String()
}

// Run shows the picker and returns the selection, or nil if the user quit.
func Run(registry *theme.Registry, current config.AppearanceConfig) (*Selection, error) {
	p := tea.NewProgram(New(registry, current), tea.WithAltScreen())
	final, err := p.Run()
	if err != nil {
		return nil, err
	}

	sel, ok := final.(Model).Result()
	if !ok {
		return nil, nil
	}
	return sel, nil
}
