// Package lock implements the two-phase page-level lock manager: shared
// and exclusive locks on page.ID, lock upgrade from shared to exclusive
// when the requester is the page's sole holder, and bounded-retry
// acquisition in place of wait-for-graph deadlock detection. A
// transaction that cannot acquire a lock within the retry budget is
// told to abort and restart rather than being diagnosed as a deadlock
// participant — this manager has no dependency graph.
package lock

import (
	"time"

	"ledgerpool/pkg/txn"
)

// Mode is the granularity of a page lock.
type Mode int

const (
	// Shared allows any number of concurrent holders, all readers.
	Shared Mode = iota
	// Exclusive allows exactly one holder, for writers.
	Exclusive
)

func (m Mode) String() string {
	if m == Exclusive {
		return "exclusive"
	}
	return "shared"
}

// grant is one transaction's hold on one page.
type grant struct {
	tid  *txn.ID
	mode Mode
}

// Default retry budget for acquisition: three retries after the first
// attempt, with a roughly 100ms wait before each, before giving up and
// aborting the requesting transaction.
const (
	DefaultRetryMax  = 3
	DefaultRetryWait = 100 * time.Millisecond
)
