package cache_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ledgerpool/pkg/cache"
	"ledgerpool/pkg/dberr"
	"ledgerpool/pkg/page"
	"ledgerpool/pkg/primitives"
	"ledgerpool/pkg/txn"
)

// fakePage is the minimal page.Page implementation the cache tests need:
// an identity, a dirty owner, and nothing else.
type fakePage struct {
	id    page.ID
	dirty *txn.ID
}

func newFakePage(tableID int32, pageNum int32) *fakePage {
	return &fakePage{id: page.New(primitives.TableID(tableID), primitives.PageNumber(pageNum))}
}

func (p *fakePage) ID() page.ID      { return p.id }
func (p *fakePage) IsDirty() *txn.ID { return p.dirty }
func (p *fakePage) MarkDirty(dirty bool, tid *txn.ID) {
	if dirty {
		p.dirty = tid
		return
	}
	p.dirty = nil
}
func (p *fakePage) Bytes() []byte          { return nil }
func (p *fakePage) BeforeImage() page.Page { return p }
func (p *fakePage) SetBeforeImage()        {}

func TestLRU_GetPromotesToMostRecentlyUsed(t *testing.T) {
	c := cache.New(2)
	p1 := newFakePage(1, 1)
	p2 := newFakePage(1, 2)
	p3 := newFakePage(1, 3)

	require.NoError(t, c.Put(p1.ID(), p1))
	require.NoError(t, c.Put(p2.ID(), p2))

	// Touch p1 so it becomes MRU; p2 is now the LRU victim.
	_, ok := c.Get(p1.ID())
	require.True(t, ok)

	require.NoError(t, c.Put(p3.ID(), p3))

	assert.True(t, c.Contains(p1.ID()), "p1 was touched most recently and should survive eviction")
	assert.True(t, c.Contains(p3.ID()), "p3 was just inserted")
	assert.False(t, c.Contains(p2.ID()), "p2 was the least recently used clean page and should be evicted")
}

func TestLRU_PutSkipsDirtyPagesWhenEvicting(t *testing.T) {
	c := cache.New(2)
	p1 := newFakePage(1, 1)
	p2 := newFakePage(1, 2)
	p3 := newFakePage(1, 3)

	tid := txn.New()
	p1.MarkDirty(true, tid)

	require.NoError(t, c.Put(p1.ID(), p1))
	require.NoError(t, c.Put(p2.ID(), p2))

	// p1 is the LRU entry but it's dirty; eviction must skip it and take
	// p2 (clean) instead, per the cache's NO-STEAL-compatible scan.
	require.NoError(t, c.Put(p3.ID(), p3))

	assert.True(t, c.Contains(p1.ID()), "dirty page must never be evicted")
	assert.False(t, c.Contains(p2.ID()), "clean LRU-eligible page should have been evicted instead")
	assert.True(t, c.Contains(p3.ID()))
}

func TestLRU_PutFailsWhenEveryResidentPageIsDirty(t *testing.T) {
	c := cache.New(2)
	p1 := newFakePage(1, 1)
	p2 := newFakePage(1, 2)
	p3 := newFakePage(1, 3)

	tid := txn.New()
	p1.MarkDirty(true, tid)
	p2.MarkDirty(true, tid)

	require.NoError(t, c.Put(p1.ID(), p1))
	require.NoError(t, c.Put(p2.ID(), p2))

	err := c.Put(p3.ID(), p3)
	require.Error(t, err)
	assert.ErrorIs(t, err, dberr.ErrNoEvictable)
	assert.Equal(t, 2, c.Size(), "a failed Put must not mutate the cache")
	assert.False(t, c.Contains(p3.ID()))
}

func TestLRU_RemoveIsNoopWhenAbsent(t *testing.T) {
	c := cache.New(1)
	p1 := newFakePage(1, 1)
	c.Remove(p1.ID()) // must not panic
	assert.Equal(t, 0, c.Size())
}

func TestLRU_ReplacePreservesCapacityAccounting(t *testing.T) {
	c := cache.New(1)
	p1 := newFakePage(1, 1)
	p1Replacement := newFakePage(1, 1)

	require.NoError(t, c.Put(p1.ID(), p1))
	require.NoError(t, c.Put(p1Replacement.ID(), p1Replacement))

	assert.Equal(t, 1, c.Size(), "replacing an existing key must not grow the cache")
	got, ok := c.Get(p1.ID())
	require.True(t, ok)
	assert.Same(t, p1Replacement, got)
}

func TestLRU_OrderedIDsReflectsRecencyWithoutPerturbingIt(t *testing.T) {
	c := cache.New(3)
	p1 := newFakePage(1, 1)
	p2 := newFakePage(1, 2)
	p3 := newFakePage(1, 3)
	require.NoError(t, c.Put(p1.ID(), p1))
	require.NoError(t, c.Put(p2.ID(), p2))
	require.NoError(t, c.Put(p3.ID(), p3))

	_, ok := c.Get(p1.ID())
	require.True(t, ok)

	want := []page.ID{p1.ID(), p3.ID(), p2.ID()}
	assert.Equal(t, want, c.OrderedIDs())

	// Peek must not promote its target.
	_, ok = c.Peek(p2.ID())
	require.True(t, ok)
	assert.Equal(t, want, c.OrderedIDs())
}

func TestLRU_EntriesReturnsAllResidentPages(t *testing.T) {
	c := cache.New(3)
	p1 := newFakePage(1, 1)
	p2 := newFakePage(1, 2)
	require.NoError(t, c.Put(p1.ID(), p1))
	require.NoError(t, c.Put(p2.ID(), p2))

	entries := c.Entries()
	assert.Len(t, entries, 2)

	seen := map[page.ID]bool{}
	for _, e := range entries {
		seen[e.ID] = true
	}
	assert.True(t, seen[p1.ID()])
	assert.True(t, seen[p2.ID()])
}
