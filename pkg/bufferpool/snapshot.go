package bufferpool

import (
	"ledgerpool/pkg/lock"
	"ledgerpool/pkg/page"
)

// CachedPage is one resident cache entry as seen by an observer.
type CachedPage struct {
	Page page.ID
	// DirtyTxn is the numeric ID of the transaction that dirtied the
	// page, or 0 if the page is clean.
	DirtyTxn int64
}

// Snapshot is a point-in-time view of the pool's cache and lock state,
// consumed by the debug inspector. It is a copy; holding one does not
// pin pages or locks.
type Snapshot struct {
	Capacity int
	// Pages lists resident pages from most to least recently used.
	Pages []CachedPage
	// Locks lists every locked page and its holders, in no particular
	// order.
	Locks []lock.PageHolders
}

// Snapshot captures the pool's current cache occupancy (in recency
// order, with dirty owners) and the lock table. Read-only: recency is
// not perturbed and no locks are taken on behalf of the caller beyond
// the pool's own monitor.
func (bp *BufferPool) Snapshot() Snapshot {
	bp.mu.Lock()
	ids := bp.cache.OrderedIDs()
	pages := make([]CachedPage, 0, len(ids))
	for _, pid := range ids {
		entry := CachedPage{Page: pid}
		if p, ok := bp.cache.Peek(pid); ok {
			if owner := p.IsDirty(); owner != nil {
				entry.DirtyTxn = owner.Num()
			}
		}
		pages = append(pages, entry)
	}
	capacity := bp.cfg.NumPages
	bp.mu.Unlock()

	return Snapshot{
		Capacity: capacity,
		Pages:    pages,
		Locks:    bp.locks.Snapshot(),
	}
}
