// Package tui renders a live dashboard over the shared context: the
// current phase, the task queue, and the tail of the reasoning log. It
// is read-only; all mutations happen through the pipeline and CLI.
package tui

import (
	"path/filepath"

	"github.com/charmbracelet/bubbles/table"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/fsnotify/fsnotify"

	"github.com/triadhq/trio/internal/ctxstore"
	"github.com/triadhq/trio/internal/schema"
)

// Model is the top-level bubbletea model.
type Model struct {
	store   *ctxstore.Store
	watcher *fsnotify.Watcher

	record *schema.ContextRecord
	queue  table.Model

	width  int
	height int

	statusMsg string
	quitting  bool
}

// New creates a dashboard model over the given store.
func New(s *ctxstore.Store) Model {
	columns := []table.Column{
		{Title: "ID", Width: 10},
		{Title: "Title", Width: 40},
		{Title: "Priority", Width: 8},
		{Title: "Depends", Width: 18},
	}
	t := table.New(
		table.WithColumns(columns),
		table.WithFocused(true),
		table.WithHeight(8),
	)
	st := table.DefaultStyles()
	st.Header = st.Header.Bold(true).Foreground(clrHighlight)
	st.Selected = st.Selected.Foreground(clrWhite).Background(clrSubtle)
	t.SetStyles(st)

	return Model{store: s, queue: t}
}

// Init implements tea.Model.
func (m Model) Init() tea.Cmd {
	return tea.Batch(m.loadRecord(), m.startWatcher())
}

type recordLoadedMsg struct {
	record *schema.ContextRecord
}

type watcherReadyMsg struct {
	watcher *fsnotify.Watcher
}

type recordChangedMsg struct{}

type errMsg struct {
	err error
}

func (m Model) loadRecord() tea.Cmd {
	return func() tea.Msg {
		record, err := m.store.Load()
		if err != nil {
			return errMsg{err: err}
		}
		return recordLoadedMsg{record: record}
	}
}

// startWatcher watches the directory holding the record. The store lands
// updates with a rename, so watching the file itself would lose the watch
// after the first write.
func (m Model) startWatcher() tea.Cmd {
	return func() tea.Msg {
		w, err := fsnotify.NewWatcher()
		if err != nil {
			return errMsg{err: err}
		}
		if err := w.Add(filepath.Dir(m.store.Path())); err != nil {
			w.Close()
			return errMsg{err: err}
		}
		return watcherReadyMsg{watcher: w}
	}
}

// waitForChange blocks on the next filesystem event that touches the
// record path.
func waitForChange(w *fsnotify.Watcher, recordPath string) tea.Cmd {
	return func() tea.Msg {
		for {
			select {
			case ev, ok := <-w.Events:
				if !ok {
					return nil
				}
				if filepath.Clean(ev.Name) == filepath.Clean(recordPath) {
					return recordChangedMsg{}
				}
			case err, ok := <-w.Errors:
				if !ok {
					return nil
				}
				return errMsg{err: err}
			}
		}
	}
}

func (m *Model) rebuildQueue() {
	var rows []table.Row
	if m.record != nil {
		for _, t := range m.record.TaskQueue {
			deps := ""
			for i, d := range t.DependsOn {
				if i > 0 {
					deps += ", "
				}
				deps += d
			}
			rows = append(rows, table.Row{t.TaskID, t.Title, string(t.Priority), deps})
		}
	}
	m.queue.SetRows(rows)
}
