package lock_test

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ledgerpool/pkg/dberr"
	"ledgerpool/pkg/lock"
	"ledgerpool/pkg/page"
	"ledgerpool/pkg/primitives"
	"ledgerpool/pkg/txn"
)

func testConfig() lock.Config {
	return lock.Config{RetryMax: 3, RetryWait: 10 * time.Millisecond}
}

func testPage() page.ID {
	return page.New(primitives.TableID(1), primitives.PageNumber(1))
}

func TestManager_SharedLocksAreConcurrent(t *testing.T) {
	m := lock.New(testConfig())
	pid := testPage()
	t1, t2 := txn.New(), txn.New()

	require.NoError(t, m.Acquire(t1, pid, lock.Shared))
	require.NoError(t, m.Acquire(t2, pid, lock.Shared))

	mode, ok := m.Holds(t1, pid)
	assert.True(t, ok)
	assert.Equal(t, lock.Shared, mode)
}

func TestManager_ReacquiringSameModeIsNoop(t *testing.T) {
	m := lock.New(testConfig())
	pid := testPage()
	tid := txn.New()

	require.NoError(t, m.Acquire(tid, pid, lock.Shared))
	require.NoError(t, m.Acquire(tid, pid, lock.Shared))

	mode, ok := m.Holds(tid, pid)
	assert.True(t, ok)
	assert.Equal(t, lock.Shared, mode)
}

func TestManager_UpgradesSharedToExclusiveWhenSoleHolder(t *testing.T) {
	m := lock.New(testConfig())
	pid := testPage()
	tid := txn.New()

	require.NoError(t, m.Acquire(tid, pid, lock.Shared))
	require.NoError(t, m.Acquire(tid, pid, lock.Exclusive))

	mode, ok := m.Holds(tid, pid)
	require.True(t, ok)
	assert.Equal(t, lock.Exclusive, mode)
}

func TestManager_UpgradeBlocksWithOtherSharedHolders(t *testing.T) {
	m := lock.New(testConfig())
	pid := testPage()
	t1, t2 := txn.New(), txn.New()

	require.NoError(t, m.Acquire(t1, pid, lock.Shared))
	require.NoError(t, m.Acquire(t2, pid, lock.Shared))

	err := m.Acquire(t1, pid, lock.Exclusive)
	require.Error(t, err)
	assert.ErrorIs(t, err, dberr.ErrTransactionAborted)
}

func TestManager_ExclusiveConflictAbortsAfterRetryBudget(t *testing.T) {
	m := lock.New(testConfig())
	pid := testPage()
	t1, t2 := txn.New(), txn.New()

	require.NoError(t, m.Acquire(t1, pid, lock.Exclusive))

	start := time.Now()
	err := m.Acquire(t2, pid, lock.Exclusive)
	elapsed := time.Since(start)

	require.Error(t, err)
	assert.ErrorIs(t, err, dberr.ErrTransactionAborted)
	// Three retries at RetryWait apart should take roughly that long,
	// not return instantly and not hang.
	assert.GreaterOrEqual(t, elapsed, 2*testConfig().RetryWait)
}

func TestManager_WaiterSucceedsOnceHolderReleases(t *testing.T) {
	m := lock.New(testConfig())
	pid := testPage()
	t1, t2 := txn.New(), txn.New()

	require.NoError(t, m.Acquire(t1, pid, lock.Exclusive))

	var wg sync.WaitGroup
	var acquireErr error
	wg.Add(1)
	go func() {
		defer wg.Done()
		acquireErr = m.Acquire(t2, pid, lock.Exclusive)
	}()

	time.Sleep(5 * time.Millisecond)
	m.Release(t1, pid)
	wg.Wait()

	assert.NoError(t, acquireErr)
	mode, ok := m.Holds(t2, pid)
	require.True(t, ok)
	assert.Equal(t, lock.Exclusive, mode)
}

func TestManager_SnapshotListsHoldersPerPage(t *testing.T) {
	m := lock.New(testConfig())
	pid := testPage()
	t1, t2 := txn.New(), txn.New()

	require.NoError(t, m.Acquire(t1, pid, lock.Shared))
	require.NoError(t, m.Acquire(t2, pid, lock.Shared))

	snap := m.Snapshot()
	require.Len(t, snap, 1)
	assert.Equal(t, pid, snap[0].Page)
	require.Len(t, snap[0].Holders, 2)
	for _, h := range snap[0].Holders {
		assert.Equal(t, lock.Shared, h.Mode)
	}
}

func TestManager_ReleaseAllDropsEveryPage(t *testing.T) {
	m := lock.New(testConfig())
	tid := txn.New()
	p1 := page.New(primitives.TableID(1), primitives.PageNumber(1))
	p2 := page.New(primitives.TableID(1), primitives.PageNumber(2))

	require.NoError(t, m.Acquire(tid, p1, lock.Shared))
	require.NoError(t, m.Acquire(tid, p2, lock.Exclusive))

	m.ReleaseAll(tid)

	assert.False(t, m.IsLocked(p1))
	assert.False(t, m.IsLocked(p2))
	assert.Empty(t, m.HeldPages(tid))
}
