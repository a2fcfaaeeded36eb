package tui

import (
	"testing"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jmylchreest/daynight/internal/config"
	"github.com/jmylchreest/daynight/internal/theme"
)

func newTestModel(t *testing.T, current config.AppearanceConfig) Model {
	t.Helper()
	registry := theme.Scan(nil, nil)
	require.NotEmpty(t, registry.UI())
	require.NotEmpty(t, registry.Syntax())

	updated, _ := New(registry, current).Update(tea.WindowSizeMsg{Width: 80, Height: 40})
	return updated.(Model)
}

func press(t *testing.T, m Model, msg tea.KeyMsg) Model {
	t.Helper()
	updated, _ := m.Update(msg)
	return updated.(Model)
}

var (
	enter = tea.KeyMsg{Type: tea.KeyEnter}
	esc   = tea.KeyMsg{Type: tea.KeyEsc}
	down  = tea.KeyMsg{Type: tea.KeyDown}
)

func TestPicker_PreselectsCurrent(t *testing.T) {
	current := config.AppearanceConfig{
		DaytimeUITheme:       "one-light-ui",
		DaytimeSyntaxTheme:   "one-light-syntax",
		NighttimeUITheme:     "one-dark-ui",
		NighttimeSyntaxTheme: "one-dark-syntax",
	}
	m := newTestModel(t, current)

	for range 4 {
		m = press(t, m, enter)
	}

	sel, ok := m.Result()
	require.True(t, ok)
	assert.Equal(t, current.Daytime(), sel.Daytime)
	assert.Equal(t, current.Nighttime(), sel.Nighttime)
}

func TestPicker_MovesAndGoesBack(t *testing.T) {
	m := newTestModel(t, config.AppearanceConfig{})
	ui := theme.Scan(nil, nil).UI()
	require.GreaterOrEqual(t, len(ui), 2)

	// First step: move down one and choose.
	m = press(t, m, down)
	m = press(t, m, enter)
	assert.Equal(t, 1, m.index)
	assert.Equal(t, ui[1].Value, m.picked[0])

	// Back to the first step keeps the earlier pick selected.
	m = press(t, m, esc)
	assert.Equal(t, 0, m.index)
	item, ok := m.list.SelectedItem().(choiceItem)
	require.True(t, ok)
	assert.Equal(t, ui[1].Value, item.choice.Value)

	_, done := m.Result()
	assert.False(t, done)
}

func TestPicker_Quit(t *testing.T) {
	m := newTestModel(t, config.AppearanceConfig{})
	m = press(t, m, tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{'q'}})

	_, ok := m.Result()
	assert.False(t, ok)
	assert.True(t, m.cancelled)
	assert.Empty(t, m.View())
}

func TestPicker_ViewShowsProgress(t *testing.T) {
	m := newTestModel(t, config.AppearanceConfig{})
	assert.Contains(t, m.View(), "Daytime UI theme (1/4)")

	m = press(t, m, enter)
	view := m.View()
	assert.Contains(t, view, "Daytime syntax theme (2/4)")
	assert.Contains(t, view, "Daytime UI theme: ")
}
