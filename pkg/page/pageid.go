// Package page defines the identity and external contract of a cached
// page: PageID, the Page interface the buffer pool requires every page
// type to satisfy, and the process-wide page size.
package page

import (
	"encoding/binary"
	"fmt"

	"github.com/cespare/xxhash/v2"
	"ledgerpool/pkg/primitives"
)

// ID is the opaque identity of a page: its table and its offset within
// that table's file. It is a plain comparable struct — not wrapped
// behind an interface — so it can be used directly as a Go map key in
// both the cache and the lock manager, per the data model's requirement
// that equality and hash derive from both fields.
type ID struct {
	TableID    primitives.TableID
	PageNumber primitives.PageNumber
}

// New builds a page identifier for the given table and page offset.
func New(tableID primitives.TableID, pageNumber primitives.PageNumber) ID {
	return ID{TableID: tableID, PageNumber: pageNumber}
}

// Serialize encodes the ID as two little-endian signed 32-bit integers,
// table_id first: the canonical on-the-wire form used by serialization
// round-trip tests and by any external cache or replica that needs a
// byte-stable key.
func (id ID) Serialize() []byte {
	buf := make([]byte, 8)
	binary.LittleEndian.PutUint32(buf[0:4], uint32(id.TableID))
	binary.LittleEndian.PutUint32(buf[4:8], uint32(id.PageNumber))
	return buf
}

// Deserialize reconstructs an ID from bytes produced by Serialize.
func Deserialize(buf []byte) (ID, error) {
	if len(buf) != 8 {
		return ID{}, fmt.Errorf("page: malformed PageID encoding: want 8 bytes, got %d", len(buf))
	}
	return ID{
		TableID:    primitives.TableID(int32(binary.LittleEndian.Uint32(buf[0:4]))),
		PageNumber: primitives.PageNumber(int32(binary.LittleEndian.Uint32(buf[4:8]))),
	}, nil
}

// HashCode returns an xxhash digest of the serialized ID. Go map lookups
// never call this — they use ID's native comparability — but it's
// exposed for collaborators that shard or externally cache by page,
// such as a sharded lock table or a secondary cache front-end.
func (id ID) HashCode() uint64 {
	return xxhash.Sum64(id.Serialize())
}

func (id ID) String() string {
	return fmt.Sprintf("page(table=%d, no=%d)", id.TableID, id.PageNumber)
}
