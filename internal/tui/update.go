package tui

import (
	tea "github.com/charmbracelet/bubbletea"
)

// Update implements tea.Model.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		if h := m.height - 14; h > 3 {
			m.queue.SetHeight(h)
		}
		return m, nil

	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c", "esc":
			m.quitting = true
			if m.watcher != nil {
				m.watcher.Close()
			}
			return m, tea.Quit
		case "r":
			return m, m.loadRecord()
		}

	case recordLoadedMsg:
		m.record = msg.record
		m.statusMsg = ""
		m.rebuildQueue()
		return m, nil

	case watcherReadyMsg:
		m.watcher = msg.watcher
		return m, waitForChange(m.watcher, m.store.Path())

	case recordChangedMsg:
		return m, tea.Batch(m.loadRecord(), waitForChange(m.watcher, m.store.Path()))

	case errMsg:
		m.statusMsg = msg.err.Error()
		return m, nil
	}

	var cmd tea.Cmd
	m.queue, cmd = m.queue.Update(msg)
	return m, cmd
}
