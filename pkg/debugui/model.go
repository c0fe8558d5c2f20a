// Package debugui is a read-only terminal inspector over a live
// BufferPool: one pane showing cache occupancy (resident pages in
// recency order, with dirty owners) and one showing the lock table
// (holders per page). It polls BufferPool.Snapshot on a timer and never
// mutates pool state — page recency included.
package debugui

import (
	"fmt"
	"time"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/table"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"ledgerpool/pkg/bufferpool"
	"ledgerpool/pkg/lock"
)

// refreshInterval is how often the inspector re-snapshots the pool.
const refreshInterval = 500 * time.Millisecond

type pane int

const (
	paneCache pane = iota
	paneLocks
)

type tickMsg time.Time

func tick() tea.Cmd {
	return tea.Tick(refreshInterval, func(t time.Time) tea.Msg {
		return tickMsg(t)
	})
}

// Model is the bubbletea model driving the inspector.
type Model struct {
	pool *bufferpool.BufferPool

	cacheTable table.Model
	lockTable  table.Model
	active     pane

	snap   bufferpool.Snapshot
	width  int
	height int
	keys   keyMap
}

// NewModel builds an inspector over pool.
func NewModel(pool *bufferpool.BufferPool) Model {
	cacheCols := []table.Column{
		{Title: "#", Width: 4},
		{Title: "Page", Width: 24},
		{Title: "State", Width: 10},
		{Title: "Dirty Txn", Width: 10},
	}
	lockCols := []table.Column{
		{Title: "Page", Width: 24},
		{Title: "Mode", Width: 10},
		{Title: "Holders", Width: 24},
	}

	styles := table.DefaultStyles()
	styles.Header = styles.Header.
		BorderStyle(lipgloss.NormalBorder()).
		BorderForeground(primaryColor).
		BorderBottom(true).
		Bold(true).
		Foreground(primaryColor)
	styles.Selected = styles.Selected.
		Foreground(fgColor).
		Background(secondaryColor)

	ct := table.New(table.WithColumns(cacheCols), table.WithFocused(true), table.WithHeight(12))
	ct.SetStyles(styles)
	lt := table.New(table.WithColumns(lockCols), table.WithFocused(false), table.WithHeight(12))
	lt.SetStyles(styles)

	m := Model{
		pool:       pool,
		cacheTable: ct,
		lockTable:  lt,
		active:     paneCache,
		keys:       keys,
	}
	m.refresh()
	return m
}

func (m Model) Init() tea.Cmd {
	return tick()
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		h := msg.Height - 10
		if h < 4 {
			h = 4
		}
		m.cacheTable.SetHeight(h)
		m.lockTable.SetHeight(h)

	case tea.KeyMsg:
		switch {
		case key.Matches(msg, m.keys.Quit):
			return m, tea.Quit

		case key.Matches(msg, m.keys.SwitchPane):
			if m.active == paneCache {
				m.active = paneLocks
				m.cacheTable.Blur()
				m.lockTable.Focus()
			} else {
				m.active = paneCache
				m.lockTable.Blur()
				m.cacheTable.Focus()
			}

		case key.Matches(msg, m.keys.Refresh):
			m.refresh()
		}

	case tickMsg:
		m.refresh()
		return m, tick()
	}

	var cmd tea.Cmd
	if m.active == paneCache {
		m.cacheTable, cmd = m.cacheTable.Update(msg)
	} else {
		m.lockTable, cmd = m.lockTable.Update(msg)
	}
	return m, cmd
}

func (m *Model) refresh() {
	m.snap = m.pool.Snapshot()

	cacheRows := make([]table.Row, 0, len(m.snap.Pages))
	for i, cp := range m.snap.Pages {
		state := "clean"
		dirtyTxn := "-"
		if cp.DirtyTxn != 0 {
			state = dirtyStyle.Render("dirty")
			dirtyTxn = fmt.Sprintf("%d", cp.DirtyTxn)
		}
		cacheRows = append(cacheRows, table.Row{
			fmt.Sprintf("%d", i+1),
			cp.Page.String(),
			state,
			dirtyTxn,
		})
	}
	m.cacheTable.SetRows(cacheRows)

	lockRows := make([]table.Row, 0, len(m.snap.Locks))
	for _, ph := range m.snap.Locks {
		mode := lock.Shared
		holders := ""
		for i, h := range ph.Holders {
			if i > 0 {
				holders += ", "
			}
			holders += fmt.Sprintf("txn#%d", h.Txn)
			if h.Mode == lock.Exclusive {
				mode = lock.Exclusive
			}
		}
		lockRows = append(lockRows, table.Row{ph.Page.String(), mode.String(), holders})
	}
	m.lockTable.SetRows(lockRows)
}

func (m Model) View() string {
	title := titleStyle.Render("ledgerpool inspector")

	cacheStyle, lockStyle := inactivePaneStyle, inactivePaneStyle
	if m.active == paneCache {
		cacheStyle = activePaneStyle
	} else {
		lockStyle = activePaneStyle
	}

	cachePane := lipgloss.JoinVertical(lipgloss.Left,
		paneTitleStyle.Render("Cache (MRU → LRU)"),
		cacheStyle.Render(m.cacheTable.View()),
	)
	lockPane := lipgloss.JoinVertical(lipgloss.Left,
		paneTitleStyle.Render("Lock Table"),
		lockStyle.Render(m.lockTable.View()),
	)

	dirty := 0
	for _, cp := range m.snap.Pages {
		if cp.DirtyTxn != 0 {
			dirty++
		}
	}
	status := statusBarStyle.Render(fmt.Sprintf(
		"resident %d/%d · dirty %d · locked pages %d",
		len(m.snap.Pages), m.snap.Capacity, dirty, len(m.snap.Locks)))

	help := helpStyle.Render("tab: switch pane · r: refresh · ↑/↓: scroll · q: quit")

	return lipgloss.JoinVertical(lipgloss.Left,
		title,
		lipgloss.JoinHorizontal(lipgloss.Top, cachePane, " ", lockPane),
		status,
		help,
	)
}

// Run starts the inspector in the alternate screen and blocks until the
// user quits.
func Run(pool *bufferpool.BufferPool) error {
	p := tea.NewProgram(NewModel(pool), tea.WithAltScreen())
	if _, err := p.Run(); err != nil {
		return fmt.Errorf("debugui: %w", err)
	}
	return nil
}
