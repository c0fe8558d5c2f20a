package catalog

import (
	"fmt"
	"os"
	"sync"

	"ledgerpool/pkg/bufferpool"
	"ledgerpool/pkg/page"
	"ledgerpool/pkg/primitives"
	"ledgerpool/pkg/txn"
)

// File is a single table's page store: one OS file, fixed-size pages,
// read/written at pageNumber*pageSize offsets. It never interprets page
// contents as tuples, so InsertTuple/DeleteTuple are intentionally
// unimplemented here — tuple/slot layout belongs to a layer this module
// does not define.
type File struct {
	mu       sync.RWMutex
	tableID  primitives.TableID
	pageSize int
	f        *os.File
}

// OpenFile opens (creating if necessary) the backing file for tableID at
// path, using pageSize-byte pages.
func OpenFile(path string, tableID primitives.TableID, pageSize int) (*File, error) {
	f, err := os.OpenFile(path, os.O_RDWR|os.O_CREATE, 0644)
	if err != nil {
		return nil, fmt.Errorf("catalog: open %s: %w", path, err)
	}
	return &File{tableID: tableID, pageSize: pageSize, f: f}, nil
}

// ReadPage reads exactly pageSize bytes at pid's offset. A page that
// starts at or past the current EOF was never written and reads back as
// all zeros rather than erroring; a page cut short by EOF is an error.
func (fl *File) ReadPage(pid page.ID) (page.Page, error) {
	fl.mu.RLock()
	defer fl.mu.RUnlock()

	buf := make([]byte, fl.pageSize)
	offset := int64(pid.PageNumber) * int64(fl.pageSize)
	if _, err := fl.f.ReadAt(buf, offset); err != nil {
		info, statErr := fl.f.Stat()
		if statErr == nil && offset >= info.Size() {
			return NewRawPage(pid, buf), nil
		}
		return nil, fmt.Errorf("catalog: read page %v: %w", pid, err)
	}
	return NewRawPage(pid, buf), nil
}

// WritePage writes p's bytes at its page's offset and syncs, so the
// page is durable when the call returns.
func (fl *File) WritePage(p page.Page) error {
	fl.mu.Lock()
	defer fl.mu.Unlock()

	data := p.Bytes()
	if len(data) != fl.pageSize {
		return fmt.Errorf("catalog: page %v has %d bytes, want %d", p.ID(), len(data), fl.pageSize)
	}

	offset := int64(p.ID().PageNumber) * int64(fl.pageSize)
	if _, err := fl.f.WriteAt(data, offset); err != nil {
		return fmt.Errorf("catalog: write page %v: %w", p.ID(), err)
	}
	return fl.f.Sync()
}

// InsertTuple is out of scope: this module defines no tuple or slot
// layout, so a File cannot itself place a tuple on a page. A real
// storage engine would supply its own DbFile implementation backed by
// whatever heap/slot format it defines.
func (fl *File) InsertTuple(tid *txn.ID, t bufferpool.Tuple) ([]page.Page, error) {
	return nil, fmt.Errorf("catalog: InsertTuple not supported by the raw page file")
}

// DeleteTuple is out of scope for the same reason as InsertTuple.
func (fl *File) DeleteTuple(tid *txn.ID, t bufferpool.Tuple) ([]page.Page, error) {
	return nil, fmt.Errorf("catalog: DeleteTuple not supported by the raw page file")
}

// NumPages returns how many pages currently exist on disk, counting a
// trailing partial page as one.
func (fl *File) NumPages() (primitives.PageNumber, error) {
	fl.mu.RLock()
	defer fl.mu.RUnlock()

	info, err := fl.f.Stat()
	if err != nil {
		return 0, fmt.Errorf("catalog: stat: %w", err)
	}
	n := info.Size() / int64(fl.pageSize)
	if info.Size()%int64(fl.pageSize) != 0 {
		n++
	}
	return primitives.PageNumber(n), nil
}

// Close releases the underlying OS file handle.
func (fl *File) Close() error {
	fl.mu.Lock()
	defer fl.mu.Unlock()
	return fl.f.Close()
}
