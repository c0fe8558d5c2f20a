// Package catalog provides a concrete, file-backed Catalog/DbFile pair
// for the buffer pool's external collaborators: raw fixed-size-page I/O
// via os.File's ReadAt/WriteAt plus Sync, with a page treated as an
// opaque byte slice. This package is the only place in the module that
// touches on-disk bytes, and it deliberately does not define a tuple or
// slot layout — that belongs to whichever storage engine sits on top.
package catalog

import (
	"ledgerpool/pkg/page"
	"ledgerpool/pkg/txn"
)

// RawPage is a page whose contents are an opaque byte slice of exactly
// the file's page size. It satisfies page.Page without interpreting what's
// inside those bytes.
type RawPage struct {
	id     page.ID
	data   []byte
	dirty  *txn.ID
	before *RawPage
}

// NewRawPage wraps data (which must already be exactly the file's page
// size) as a RawPage identified by id.
func NewRawPage(id page.ID, data []byte) *RawPage {
	return &RawPage{id: id, data: data}
}

func (p *RawPage) ID() page.ID { return p.id }

func (p *RawPage) IsDirty() *txn.ID { return p.dirty }

func (p *RawPage) MarkDirty(dirty bool, tid *txn.ID) {
	if dirty {
		p.dirty = tid
		return
	}
	p.dirty = nil
}

func (p *RawPage) Bytes() []byte { return p.data }

// BeforeImage returns the snapshot captured at the last SetBeforeImage
// call, or nil if none has been taken yet.
func (p *RawPage) BeforeImage() page.Page {
	if p.before == nil {
		return nil
	}
	return p.before
}

// SetBeforeImage captures the page's current bytes as a new, detached
// snapshot.
func (p *RawPage) SetBeforeImage() {
	snapshot := make([]byte, len(p.data))
	copy(snapshot, p.data)
	p.before = &RawPage{id: p.id, data: snapshot}
}
