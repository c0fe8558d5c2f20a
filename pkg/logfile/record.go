// Package logfile implements the LogFile collaborator the buffer pool
// invokes around transaction boundaries and before a dirty page reaches
// disk: fixed-size binary record headers (LSN + kind + length + CRC32)
// followed by the record payload, appended to a single durable file.
// This is not a recovery engine or a checkpoint algorithm — it
// implements exactly the four hooks bufferpool.LogFile declares.
package logfile

import (
	"encoding/binary"
	"hash/crc32"
)

// recordHeaderSize is LSN(8) + kind(1) + length(4) + CRC(4).
const recordHeaderSize = 17

type kind byte

const (
	kindBegin kind = iota
	kindCommit
	kindAbort
	kindWrite
)

type record struct {
	lsn  uint64
	kind kind
	data []byte
}

func (r record) encode() []byte {
	buf := make([]byte, recordHeaderSize+len(r.data))
	binary.BigEndian.PutUint64(buf[0:8], r.lsn)
	buf[8] = byte(r.kind)
	binary.BigEndian.PutUint32(buf[9:13], uint32(len(r.data)))
	binary.BigEndian.PutUint32(buf[13:17], checksum(r.lsn, r.kind, r.data))
	copy(buf[recordHeaderSize:], r.data)
	return buf
}

func checksum(lsn uint64, k kind, data []byte) uint32 {
	h := crc32.NewIEEE()
	var lsnBuf [8]byte
	binary.BigEndian.PutUint64(lsnBuf[:], lsn)
	h.Write(lsnBuf[:])
	h.Write([]byte{byte(k)})
	h.Write(data)
	return h.Sum32()
}

func decodeHeader(buf []byte) (lsn uint64, k kind, length uint32, crc uint32) {
	lsn = binary.BigEndian.Uint64(buf[0:8])
	k = kind(buf[8])
	length = binary.BigEndian.Uint32(buf[9:13])
	crc = binary.BigEndian.Uint32(buf[13:17])
	return
}
