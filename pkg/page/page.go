package page

import "ledgerpool/pkg/txn"

// DefaultSize is the page size in bytes used by a BufferPool constructed
// without an explicit override.
const DefaultSize = 4096

// size is process-wide only as a convenience default for components that
// don't carry their own configuration (tests mostly). Production code
// should prefer a BufferPool constructed with an explicit page size;
// see bufferpool.Config. The guarded Set/Reset pair below exists only so
// table-driven tests can flip the size without reaching into package
// internals.
var size = DefaultSize

// Size returns the page size components should assume when none is
// configured explicitly.
func Size() int { return size }

// SetSizeForTest overrides the default page size. Test-only: production
// call sites must configure page size through bufferpool.Config instead
// of this process-wide knob.
func SetSizeForTest(n int) { size = n }

// ResetSize restores the default page size. Test-only, pairs with
// SetSizeForTest.
func ResetSize() { size = DefaultSize }

// Page is the external contract the buffer pool requires of every
// cached page. The cache and lock manager never interpret page
// contents; they only call these six methods.
type Page interface {
	// ID returns the page's identity.
	ID() ID

	// IsDirty returns the transaction that last dirtied this page, or
	// nil if the page is clean.
	IsDirty() *txn.ID

	// MarkDirty sets or clears the dirty owner.
	MarkDirty(dirty bool, tid *txn.ID)

	// Bytes returns the page's current contents for serialization to
	// disk or to the write-ahead log.
	Bytes() []byte

	// BeforeImage returns the snapshot captured at the last
	// SetBeforeImage call — the redo/undo anchor used by rollback and
	// by the log's before-image record.
	BeforeImage() Page

	// SetBeforeImage captures the page's current contents as the new
	// before-image, anchoring future rollbacks to this state.
	SetBeforeImage()
}
