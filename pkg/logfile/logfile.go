package logfile

import (
	"encoding/binary"
	"fmt"
	"os"
	"sync"
	"sync/atomic"

	"ledgerpool/pkg/page"
	"ledgerpool/pkg/txn"
)

// File is an append-only durable log: every hook call becomes one
// length-prefixed, CRC-protected record appended to a single file and
// synced before the call returns. It implements bufferpool.LogFile.
//
// There is no segment rotation and no replay path — recovering a crashed
// buffer pool from this file is left to a future component. What this
// type guarantees is that by the time LogWrite/LogCommit/LogAbort/
// LogBegin return without error, the record describing that event is on
// stable storage.
type File struct {
	mu   sync.Mutex
	f    *os.File
	next uint64
}

// Open opens (creating if necessary) the log file at path.
func Open(path string) (*File, error) {
	f, err := os.OpenFile(path, os.O_RDWR|os.O_CREATE|os.O_APPEND, 0644)
	if err != nil {
		return nil, fmt.Errorf("logfile: open %s: %w", path, err)
	}
	last, err := findLastLSN(f)
	if err != nil {
		f.Close()
		return nil, err
	}
	return &File{f: f, next: last + 1}, nil
}

func (lf *File) nextLSN() uint64 {
	return atomic.AddUint64(&lf.next, 1) - 1
}

func (lf *File) append(k kind, data []byte) error {
	lf.mu.Lock()
	defer lf.mu.Unlock()

	rec := record{lsn: lf.nextLSN(), kind: k, data: data}
	buf := rec.encode()

	if _, err := lf.f.Write(buf); err != nil {
		return fmt.Errorf("logfile: append: %w", err)
	}
	return lf.f.Sync()
}

// LogBegin records that tid has started.
func (lf *File) LogBegin(tid *txn.ID) error {
	return lf.append(kindBegin, tidBytes(tid))
}

// LogCommit records that tid committed. The buffer pool calls this
// before flushing tid's dirty pages to disk.
func (lf *File) LogCommit(tid *txn.ID) error {
	return lf.append(kindCommit, tidBytes(tid))
}

// LogAbort records that tid aborted.
func (lf *File) LogAbort(tid *txn.ID) error {
	return lf.append(kindAbort, tidBytes(tid))
}

// LogWrite records before and after images of a page tid is about to
// flush. before may be nil the first time a page is dirtied.
func (lf *File) LogWrite(tid *txn.ID, before, after page.Page) error {
	data := encodeWrite(tid, before, after)
	return lf.append(kindWrite, data)
}

// Close releases the underlying file handle.
func (lf *File) Close() error {
	lf.mu.Lock()
	defer lf.mu.Unlock()
	return lf.f.Close()
}

func tidBytes(tid *txn.ID) []byte {
	buf := make([]byte, 8)
	binary.BigEndian.PutUint64(buf, uint64(tid.Num()))
	return buf
}

// encodeWrite packs tid, before's bytes (length-prefixed, zero length if
// nil) and after's bytes into one payload.
func encodeWrite(tid *txn.ID, before, after page.Page) []byte {
	var beforeBytes []byte
	if before != nil {
		beforeBytes = before.Bytes()
	}
	afterBytes := after.Bytes()

	buf := make([]byte, 8+4+len(beforeBytes)+len(afterBytes))
	binary.BigEndian.PutUint64(buf[0:8], uint64(tid.Num()))
	binary.BigEndian.PutUint32(buf[8:12], uint32(len(beforeBytes)))
	copy(buf[12:12+len(beforeBytes)], beforeBytes)
	copy(buf[12+len(beforeBytes):], afterBytes)
	return buf
}

// findLastLSN scans f's existing records to recover the next LSN to
// hand out, so reopening a log file after a restart keeps LSNs
// monotonic instead of restarting at zero.
func findLastLSN(f *os.File) (uint64, error) {
	info, err := f.Stat()
	if err != nil {
		return 0, fmt.Errorf("logfile: stat: %w", err)
	}

	var last uint64
	var offset int64
	header := make([]byte, recordHeaderSize)
	for offset < info.Size() {
		if _, err := f.ReadAt(header, offset); err != nil {
			break
		}
		lsn, k, length, crc := decodeHeader(header)
		data := make([]byte, length)
		if length > 0 {
			if _, err := f.ReadAt(data, offset+recordHeaderSize); err != nil {
				break
			}
		}
		if checksum(lsn, k, data) != crc {
			break
		}
		last = lsn
		offset += int64(recordHeaderSize) + int64(length)
	}
	return last, nil
}
