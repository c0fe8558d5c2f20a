package bufferpool

import (
	"errors"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"ledgerpool/pkg/cache"
	"ledgerpool/pkg/dberr"
	"ledgerpool/pkg/lock"
	"ledgerpool/pkg/logging"
	"ledgerpool/pkg/metrics"
	"ledgerpool/pkg/page"
	"ledgerpool/pkg/primitives"
	"ledgerpool/pkg/txn"
)

// Permissions is the access level an executor requests for a page.
type Permissions int

const (
	ReadOnly Permissions = iota
	ReadWrite
)

func (p Permissions) lockMode() lock.Mode {
	if p == ReadWrite {
		return lock.Exclusive
	}
	return lock.Shared
}

// BufferPool is the only entry point executors use to read or mutate
// pages. It composes a lock.Manager and a cache.LRU with transaction
// semantics: pages pass through it on every read and write, and a
// transaction's changes become visible to disk only at commit.
type BufferPool struct {
	mu sync.Mutex

	cfg     Config
	cache   *cache.LRU
	locks   *lock.Manager
	catalog Catalog
	logFile LogFile
	metrics *metrics.BufferPool
	log     *zap.Logger

	// began tracks which transactions have already had a BEGIN record
	// logged, so GetPage/InsertTuple/DeleteTuple only log it once per
	// transaction and TransactionComplete logs COMMIT/ABORT only for a
	// transaction that began.
	began map[*txn.ID]struct{}
}

// New constructs a BufferPool. reg may be nil to skip metrics
// registration (tests typically pass prometheus.NewRegistry()); log may
// be nil to fall back to logging.Default().
func New(cfg Config, catalog Catalog, logFile LogFile, reg prometheus.Registerer, log *zap.Logger) *BufferPool {
	cfg = cfg.withDefaults()
	if log == nil {
		log = logging.Default()
	}
	m := metrics.NewBufferPool(reg, "ledgerpool")
	return &BufferPool{
		cfg:   cfg,
		cache: cache.New(cfg.NumPages),
		locks: lock.New(lock.Config{
			RetryMax:  cfg.RetryMax,
			RetryWait: cfg.RetryWait,
			OnWait:    m.LockWaits.Inc,
		}),
		catalog: catalog,
		logFile: logFile,
		metrics: m,
		log:     log.With(zap.String("module", "bufferpool")),
		began:   make(map[*txn.ID]struct{}),
	}
}

// GetPage acquires the lock implied by perm, then returns the requested
// page, loading it from the catalog's DbFile on a cache miss.
//
// If the lock is acquired but the page subsequently fails to load or to
// fit in the cache (e.g. dberr.ErrNoEvictable), the lock is NOT released
// here. The caller owns deciding whether to abort the transaction, which
// will release it via TransactionComplete.
func (bp *BufferPool) GetPage(tid *txn.ID, pid page.ID, perm Permissions) (page.Page, error) {
	if err := bp.locks.Acquire(tid, pid, perm.lockMode()); err != nil {
		bp.metrics.LockTimeouts.Inc()
		bp.log.Warn("lock acquisition exhausted retry budget",
			zap.Stringer("txn", tid), zap.Stringer("page", pid))
		return nil, err
	}
	bp.metrics.LockGrants.Inc()

	if err := bp.ensureBegun(tid); err != nil {
		return nil, err
	}

	bp.mu.Lock()
	defer bp.mu.Unlock()

	if !bp.cache.Contains(pid) {
		bp.metrics.CacheMisses.Inc()

		file, err := bp.catalog.GetFile(pid.TableID)
		if err != nil {
			return nil, dberr.Wrap(err, "Catalog.GetFile")
		}
		p, err := file.ReadPage(pid)
		if err != nil {
			return nil, dberr.Wrap(err, "DbFile.ReadPage")
		}
		full := bp.cache.Size() >= bp.cfg.NumPages
		if err := bp.cache.Put(pid, p); err != nil {
			if errors.Is(err, dberr.ErrNoEvictable) {
				bp.metrics.NoEvictable.Inc()
			}
			return nil, err
		}
		if full {
			bp.metrics.Evictions.Inc()
		}
	} else {
		bp.metrics.CacheHits.Inc()
	}

	p, _ := bp.cache.Get(pid)
	bp.refreshGauges()
	return p, nil
}

// InsertTuple inserts t into tableID's file under tid, then marks every
// page the file reports as modified dirty and resident.
func (bp *BufferPool) InsertTuple(tid *txn.ID, tableID primitives.TableID, t Tuple) error {
	return bp.mutate(tid, tableID, func(file DbFile) ([]page.Page, error) {
		return file.InsertTuple(tid, t)
	})
}

// DeleteTuple removes t, resolving the owning table from t's RecordID.
func (bp *BufferPool) DeleteTuple(tid *txn.ID, t Tuple) error {
	rid := t.RecordID()
	return bp.mutate(tid, rid.PageID.TableID, func(file DbFile) ([]page.Page, error) {
		return file.DeleteTuple(tid, t)
	})
}

func (bp *BufferPool) mutate(tid *txn.ID, tableID primitives.TableID, do func(DbFile) ([]page.Page, error)) error {
	if err := bp.ensureBegun(tid); err != nil {
		return err
	}

	file, err := bp.catalog.GetFile(tableID)
	if err != nil {
		return dberr.Wrap(err, "Catalog.GetFile")
	}

	pages, err := do(file)
	if err != nil {
		return dberr.Wrap(err, "DbFile mutation")
	}

	return bp.updateBufferPool(pages, tid)
}

func (bp *BufferPool) updateBufferPool(pages []page.Page, tid *txn.ID) error {
	bp.mu.Lock()
	defer bp.mu.Unlock()

	for _, p := range pages {
		p.MarkDirty(true, tid)
		if err := bp.cache.Put(p.ID(), p); err != nil {
			return err
		}
	}
	bp.refreshGauges()
	return nil
}

func (bp *BufferPool) ensureBegun(tid *txn.ID) error {
	bp.mu.Lock()
	_, began := bp.began[tid]
	bp.mu.Unlock()
	if began {
		return nil
	}

	if err := bp.logFile.LogBegin(tid); err != nil {
		return dberr.Wrap(err, "LogFile.LogBegin")
	}

	bp.mu.Lock()
	bp.began[tid] = struct{}{}
	bp.mu.Unlock()
	return nil
}

// TransactionComplete ends tid: flushing its dirty pages on commit, or
// re-reading them from disk on abort, then releasing every lock it
// holds regardless of outcome.
func (bp *BufferPool) TransactionComplete(tid *txn.ID, commit bool) error {
	bp.mu.Lock()
	_, began := bp.began[tid]
	bp.mu.Unlock()

	var err error
	if commit {
		if began {
			if err = bp.logFile.LogCommit(tid); err != nil {
				err = dberr.Wrap(err, "LogFile.LogCommit")
			}
		}
		if err == nil {
			err = bp.FlushPages(tid)
		}
		if err == nil {
			// FlushPages leaves dirty markers untouched so that a
			// mid-transaction flush (FlushAllPages) never hides
			// uncommitted changes; clearing ownership is this
			// method's job, once the commit is durable.
			bp.mu.Lock()
			for _, p := range bp.dirtyPagesOf(tid) {
				p.MarkDirty(false, nil)
			}
			bp.refreshGauges()
			bp.mu.Unlock()
			bp.metrics.Commits.Inc()
		}
	} else {
		if began {
			if err = bp.logFile.LogAbort(tid); err != nil {
				err = dberr.Wrap(err, "LogFile.LogAbort")
			}
		}
		if err == nil {
			err = bp.Rollback(tid)
		}
		bp.metrics.Aborts.Inc()
	}

	if err != nil {
		bp.log.Error("transaction completion failed", zap.Stringer("txn", tid),
			zap.Bool("commit", commit), zap.Error(err))
	}

	bp.locks.ReleaseAll(tid)

	bp.mu.Lock()
	delete(bp.began, tid)
	bp.mu.Unlock()

	return err
}

// FlushPages writes every page tid has dirtied to disk. Before any page
// is written, every dirty page's before-image is advanced to its
// current contents — that pass completes for the whole transaction
// before the write-to-disk pass begins. Dirty markers are deliberately
// left set: this routine is also reachable from FlushAllPages-style
// mid-transaction flushes, where clearing the marker would hide an
// uncommitted change. TransactionComplete clears ownership after a
// durable commit.
func (bp *BufferPool) FlushPages(tid *txn.ID) error {
	bp.mu.Lock()
	dirty := bp.dirtyPagesOf(tid)
	before := make([]page.Page, len(dirty))
	for i, p := range dirty {
		before[i] = p.BeforeImage()
		p.SetBeforeImage()
	}
	bp.mu.Unlock()

	for i, p := range dirty {
		if err := bp.logFile.LogWrite(tid, before[i], p); err != nil {
			return dberr.Wrap(err, "LogFile.LogWrite")
		}
		file, err := bp.catalog.GetFile(p.ID().TableID)
		if err != nil {
			return dberr.Wrap(err, "Catalog.GetFile")
		}
		if err := file.WritePage(p); err != nil {
			return dberr.Wrap(err, "DbFile.WritePage")
		}
	}
	return nil
}

// Rollback discards tid's in-memory modifications by re-reading every
// page it dirtied from disk and replacing the cache entry, yielding a
// clean entry per page.
func (bp *BufferPool) Rollback(tid *txn.ID) error {
	bp.mu.Lock()
	defer bp.mu.Unlock()

	for _, p := range bp.dirtyPagesOf(tid) {
		pid := p.ID()
		file, err := bp.catalog.GetFile(pid.TableID)
		if err != nil {
			return dberr.Wrap(err, "Catalog.GetFile")
		}
		fresh, err := file.ReadPage(pid)
		if err != nil {
			return dberr.Wrap(err, "DbFile.ReadPage")
		}
		if err := bp.cache.Put(pid, fresh); err != nil {
			return err
		}
	}
	bp.refreshGauges()
	return nil
}

// dirtyPagesOf must be called with bp.mu held.
func (bp *BufferPool) dirtyPagesOf(tid *txn.ID) []page.Page {
	var out []page.Page
	for _, e := range bp.cache.Entries() {
		if e.Page.IsDirty() == tid {
			out = append(out, e.Page)
		}
	}
	return out
}

// refreshGauges must be called with bp.mu held.
func (bp *BufferPool) refreshGauges() {
	entries := bp.cache.Entries()
	dirty := 0
	for _, e := range entries {
		if e.Page.IsDirty() != nil {
			dirty++
		}
	}
	bp.metrics.ResidentPages.Set(float64(len(entries)))
	bp.metrics.DirtyPages.Set(float64(dirty))
}

// FlushAllPages flushes every dirty page in the cache regardless of
// owning transaction. Test/recovery use only — invoking it mid-
// transaction writes uncommitted changes to disk, which a NO-STEAL
// buffer pool must never do during normal operation.
func (bp *BufferPool) FlushAllPages() error {
	bp.mu.Lock()
	var dirty []page.Page
	for _, e := range bp.cache.Entries() {
		if e.Page.IsDirty() != nil {
			dirty = append(dirty, e.Page)
		}
	}
	before := make([]page.Page, len(dirty))
	owners := make([]*txn.ID, len(dirty))
	for i, p := range dirty {
		owners[i] = p.IsDirty()
		before[i] = p.BeforeImage()
		p.SetBeforeImage()
	}
	bp.mu.Unlock()

	for i, p := range dirty {
		if err := bp.logFile.LogWrite(owners[i], before[i], p); err != nil {
			return dberr.Wrap(err, "LogFile.LogWrite")
		}
		file, err := bp.catalog.GetFile(p.ID().TableID)
		if err != nil {
			return dberr.Wrap(err, "Catalog.GetFile")
		}
		if err := file.WritePage(p); err != nil {
			return dberr.Wrap(err, "DbFile.WritePage")
		}
	}
	return nil
}

// UnsafeRelease releases tid's lock on pid without any safety check.
// The caller assumes responsibility for isolation; this exists to
// support lock-coupling operations (e.g. index traversals) that need to
// drop a parent's lock before the whole transaction completes.
func (bp *BufferPool) UnsafeRelease(tid *txn.ID, pid page.ID) {
	bp.locks.Release(tid, pid)
}

// RemovePage evicts pid without flushing it. Used when a page is freed
// by an index structure or must not linger after a rollback.
func (bp *BufferPool) RemovePage(pid page.ID) {
	bp.mu.Lock()
	defer bp.mu.Unlock()
	bp.cache.Remove(pid)
}
