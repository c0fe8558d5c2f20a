package lock

import (
	"sync"
	"time"

	"ledgerpool/pkg/dberr"
	"ledgerpool/pkg/page"
	"ledgerpool/pkg/txn"
)

// Config tunes the bounded-retry acquisition loop. The zero value is not
// usable; use DefaultConfig.
type Config struct {
	RetryMax  int
	RetryWait time.Duration
	// OnWait, if set, is invoked each time an acquisition suspends
	// before a retry. Used by the buffer pool to count lock waits.
	OnWait func()
}

// DefaultConfig returns the default retry budget: three retries,
// ~100ms apart.
func DefaultConfig() Config {
	return Config{RetryMax: DefaultRetryMax, RetryWait: DefaultRetryWait}
}

// Manager is the page-level two-phase lock manager. Every exported
// method is safe for concurrent use.
//
// Unlike a wait-for-graph implementation, Manager never diagnoses
// deadlocks directly: a transaction that cannot acquire a lock within
// cfg.RetryMax retries receives dberr.ErrTransactionAborted and is
// expected to release everything and restart. Two transactions stuck in
// a genuine cycle will both eventually time out this way rather than
// have one of them singled out as a victim.
type Manager struct {
	mu sync.Mutex

	cfg Config

	// holders maps a page to the set of transactions currently holding
	// a lock on it, and the mode each holds.
	holders map[page.ID][]*grant

	// held is the reverse index: transaction -> pages it holds, and the
	// mode held on each. Used by ReleaseAll and by Holds.
	held map[*txn.ID]map[page.ID]Mode
}

// New constructs a Manager with the given retry configuration.
func New(cfg Config) *Manager {
	return &Manager{
		cfg:     cfg,
		holders: make(map[page.ID][]*grant),
		held:    make(map[*txn.ID]map[page.ID]Mode),
	}
}

// Holds reports the mode tid currently holds on pid, and whether it
// holds any lock on it at all.
func (m *Manager) Holds(tid *txn.ID, pid page.ID) (Mode, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	mode, ok := m.held[tid][pid]
	return mode, ok
}

// Acquire blocks tid until it holds at least mode on pid, retrying up to
// cfg.RetryMax times with cfg.RetryWait between attempts. It returns
// dberr.ErrTransactionAborted if the budget is exhausted.
//
// The decision table:
//   - already holds >= the requested mode: no-op, return immediately.
//   - requests Exclusive while holding Shared, and is the page's only
//     holder: upgrade in place, no release/reacquire race.
//   - no conflicting holder exists: grant immediately.
//   - otherwise: wait for any release and re-check, up to the retry
//     budget.
func (m *Manager) Acquire(tid *txn.ID, pid page.ID, mode Mode) error {
	for attempt := 0; attempt <= m.cfg.RetryMax; attempt++ {
		m.mu.Lock()

		if m.sufficient(tid, pid, mode) {
			m.mu.Unlock()
			return nil
		}

		if mode == Exclusive && m.holdsMode(tid, pid, Shared) && m.soleHolder(tid, pid) {
			m.upgrade(tid, pid)
			m.mu.Unlock()
			return nil
		}

		if m.compatible(tid, pid, mode) {
			m.grant(tid, pid, mode)
			m.mu.Unlock()
			return nil
		}

		m.mu.Unlock()

		if attempt == m.cfg.RetryMax {
			break
		}
		if m.cfg.OnWait != nil {
			m.cfg.OnWait()
		}
		time.Sleep(m.cfg.RetryWait)
	}

	return dberr.ErrTransactionAborted
}

func (m *Manager) sufficient(tid *txn.ID, pid page.ID, mode Mode) bool {
	current, ok := m.held[tid][pid]
	if !ok {
		return false
	}
	return current == Exclusive || mode == Shared
}

func (m *Manager) holdsMode(tid *txn.ID, pid page.ID, mode Mode) bool {
	current, ok := m.held[tid][pid]
	return ok && current == mode
}

func (m *Manager) soleHolder(tid *txn.ID, pid page.ID) bool {
	for _, g := range m.holders[pid] {
		if g.tid != tid {
			return false
		}
	}
	return true
}

// compatible reports whether mode can be granted to tid right now given
// the page's existing holders.
func (m *Manager) compatible(tid *txn.ID, pid page.ID, mode Mode) bool {
	holders := m.holders[pid]
	if len(holders) == 0 {
		return true
	}
	if mode == Exclusive {
		for _, g := range holders {
			if g.tid != tid {
				return false
			}
		}
		return true
	}
	for _, g := range holders {
		if g.tid != tid && g.mode == Exclusive {
			return false
		}
	}
	return true
}

func (m *Manager) grant(tid *txn.ID, pid page.ID, mode Mode) {
	m.holders[pid] = append(m.holders[pid], &grant{tid: tid, mode: mode})
	if m.held[tid] == nil {
		m.held[tid] = make(map[page.ID]Mode)
	}
	m.held[tid][pid] = mode
}

func (m *Manager) upgrade(tid *txn.ID, pid page.ID) {
	for _, g := range m.holders[pid] {
		if g.tid == tid {
			g.mode = Exclusive
		}
	}
	m.held[tid][pid] = Exclusive
}

// Release drops tid's lock on pid, if any. Any transaction blocked in
// Acquire notices on its next retry.
func (m *Manager) Release(tid *txn.ID, pid page.ID) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.release(tid, pid)
}

func (m *Manager) release(tid *txn.ID, pid page.ID) {
	remaining := m.holders[pid][:0:0]
	for _, g := range m.holders[pid] {
		if g.tid != tid {
			remaining = append(remaining, g)
		}
	}
	if len(remaining) > 0 {
		m.holders[pid] = remaining
	} else {
		delete(m.holders, pid)
	}

	if pages, ok := m.held[tid]; ok {
		delete(pages, pid)
		if len(pages) == 0 {
			delete(m.held, tid)
		}
	}
}

// ReleaseAll drops every lock tid holds, across all pages. Called at
// transaction commit or abort.
func (m *Manager) ReleaseAll(tid *txn.ID) {
	m.mu.Lock()
	defer m.mu.Unlock()

	pages := m.held[tid]
	ids := make([]page.ID, 0, len(pages))
	for pid := range pages {
		ids = append(ids, pid)
	}
	for _, pid := range ids {
		m.release(tid, pid)
	}
}

// HeldPages returns every page tid currently holds a lock on, in no
// particular order.
func (m *Manager) HeldPages(tid *txn.ID) []page.ID {
	m.mu.Lock()
	defer m.mu.Unlock()
	pages := m.held[tid]
	ids := make([]page.ID, 0, len(pages))
	for pid := range pages {
		ids = append(ids, pid)
	}
	return ids
}

// HolderInfo describes one transaction's hold on a page, for
// observability surfaces.
type HolderInfo struct {
	Txn  int64
	Mode Mode
}

// PageHolders is the lock table's state for a single page.
type PageHolders struct {
	Page    page.ID
	Holders []HolderInfo
}

// Snapshot returns the current lock table: every locked page and its
// holders. Order is unspecified. The snapshot is a copy; mutating it
// does not affect the manager.
func (m *Manager) Snapshot() []PageHolders {
	m.mu.Lock()
	defer m.mu.Unlock()

	out := make([]PageHolders, 0, len(m.holders))
	for pid, grants := range m.holders {
		ph := PageHolders{Page: pid, Holders: make([]HolderInfo, 0, len(grants))}
		for _, g := range grants {
			ph.Holders = append(ph.Holders, HolderInfo{Txn: g.tid.Num(), Mode: g.mode})
		}
		out = append(out, ph)
	}
	return out
}

// IsLocked reports whether any transaction currently holds a lock on
// pid.
func (m *Manager) IsLocked(pid page.ID) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.holders[pid]) > 0
}
