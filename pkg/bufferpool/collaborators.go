// Package bufferpool implements the façade composing the lock manager
// and page cache into the single entry point executors use: acquire,
// fetch-or-load, dirty marking, commit/abort, and flush. It treats
// table lookup, on-disk page I/O, and write-ahead logging as external
// collaborators, consumed only through the narrow interfaces below.
package bufferpool

import (
	"ledgerpool/pkg/page"
	"ledgerpool/pkg/primitives"
	"ledgerpool/pkg/txn"
)

// RecordID identifies a tuple's storage location: which page, and which
// slot within it. This module does not define a page's on-disk byte
// layout (heap/slot format stays a Non-goal); RecordID carries just
// enough for DeleteTuple to resolve the owning table.
type RecordID struct {
	PageID   page.ID
	TupleNum int
}

// Tuple is the opaque unit of data the buffer pool moves between a
// DbFile and its callers. Tuple/field representation is out of scope
// for this module; RecordID is the only structure the core inspects.
type Tuple interface {
	RecordID() *RecordID
}

// Catalog resolves a table ID to the file that stores it.
type Catalog interface {
	GetFile(tableID primitives.TableID) (DbFile, error)
}

// DbFile is the synchronous on-disk page store for one table.
type DbFile interface {
	ReadPage(pid page.ID) (page.Page, error)
	WritePage(p page.Page) error
	InsertTuple(tid *txn.ID, t Tuple) ([]page.Page, error)
	DeleteTuple(tid *txn.ID, t Tuple) ([]page.Page, error)
}

// LogFile is the write-ahead log collaborator. It is not a recovery
// engine — the buffer pool invokes exactly these hooks around
// transaction boundaries and before a dirty page reaches disk.
type LogFile interface {
	LogBegin(tid *txn.ID) error
	LogCommit(tid *txn.ID) error
	LogAbort(tid *txn.ID) error
	LogWrite(tid *txn.ID, before, after page.Page) error
}
