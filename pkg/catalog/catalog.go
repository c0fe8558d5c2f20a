package catalog

import (
	"fmt"
	"path/filepath"
	"sync"

	"ledgerpool/pkg/bufferpool"
	"ledgerpool/pkg/primitives"
)

// Catalog is a directory-backed table registry: each table ID maps to
// one *File under dir. It implements bufferpool.Catalog.
type Catalog struct {
	mu       sync.RWMutex
	dir      string
	pageSize int
	files    map[primitives.TableID]*File
}

// New constructs a Catalog rooted at dir, which must already exist; New
// does not create it. Tables need not be registered up front: GetFile
// registers a table on its first lookup.
func New(dir string, pageSize int) *Catalog {
	return &Catalog{dir: dir, pageSize: pageSize, files: make(map[primitives.TableID]*File)}
}

// Register opens (or creates) the backing file for tableID, named
// "<tableID>.tbl" under the catalog's directory.
func (c *Catalog) Register(tableID primitives.TableID) (*File, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if f, ok := c.files[tableID]; ok {
		return f, nil
	}

	path := filepath.Join(c.dir, fmt.Sprintf("%d.tbl", tableID))
	f, err := OpenFile(path, tableID, c.pageSize)
	if err != nil {
		return nil, err
	}
	c.files[tableID] = f
	return f, nil
}

// GetFile resolves tableID to its file, per bufferpool.Catalog.
func (c *Catalog) GetFile(tableID primitives.TableID) (bufferpool.DbFile, error) {
	c.mu.RLock()
	f, ok := c.files[tableID]
	c.mu.RUnlock()
	if ok {
		return f, nil
	}
	return c.Register(tableID)
}

// Close closes every registered file.
func (c *Catalog) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	var firstErr error
	for _, f := range c.files {
		if err := f.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}
