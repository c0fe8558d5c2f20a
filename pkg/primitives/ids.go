// Package primitives defines the small value types shared by the storage
// and concurrency layers: table identifiers and page numbers. The
// transaction identifier lives in package txn.
package primitives

import "fmt"

// TableID identifies a table's backing file. Zero is never issued by a
// real catalog and is reserved as the invalid value.
type TableID int32

// IsValid reports whether the TableID is a real (non-zero) identifier.
func (t TableID) IsValid() bool {
	return t != 0
}

func (t TableID) String() string {
	return fmt.Sprintf("table#%d", int32(t))
}

// PageNumber is the zero-based offset of a page within its table file.
type PageNumber int32

func (p PageNumber) String() string {
	return fmt.Sprintf("page#%d", int32(p))
}
