package logfile_test

import (
	"encoding/binary"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ledgerpool/pkg/catalog"
	"ledgerpool/pkg/logfile"
	"ledgerpool/pkg/page"
	"ledgerpool/pkg/txn"
)

func TestFile_HooksAppendWithoutError(t *testing.T) {
	dir := t.TempDir()
	lf, err := logfile.Open(dir + "/log")
	require.NoError(t, err)
	defer lf.Close()

	tid := txn.New()
	require.NoError(t, lf.LogBegin(tid))

	before := catalog.NewRawPage(page.New(1, 0), make([]byte, 8))
	after := catalog.NewRawPage(page.New(1, 0), []byte{1, 2, 3, 4, 5, 6, 7, 8})
	require.NoError(t, lf.LogWrite(tid, before, after))

	require.NoError(t, lf.LogCommit(tid))
}

func TestFile_LogWriteToleratesNilBeforeImage(t *testing.T) {
	dir := t.TempDir()
	lf, err := logfile.Open(dir + "/log")
	require.NoError(t, err)
	defer lf.Close()

	tid := txn.New()
	after := catalog.NewRawPage(page.New(1, 0), []byte{9, 9, 9})
	assert.NoError(t, lf.LogWrite(tid, nil, after))
}

func TestFile_ReopenPreservesMonotonicLSN(t *testing.T) {
	dir := t.TempDir()
	path := dir + "/log"

	lf, err := logfile.Open(path)
	require.NoError(t, err)
	tid := txn.New()
	require.NoError(t, lf.LogBegin(tid))
	require.NoError(t, lf.LogCommit(tid))
	require.NoError(t, lf.Close())

	lf2, err := logfile.Open(path)
	require.NoError(t, err)
	defer lf2.Close()

	tid2 := txn.New()
	assert.NoError(t, lf2.LogBegin(tid2))

	// Three records, each a 17-byte header plus an 8-byte tid payload;
	// every header starts with its big-endian LSN.
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	require.Len(t, data, 3*25)
	assert.Equal(t, uint64(2), binary.BigEndian.Uint64(data[25:33]))
	assert.Equal(t, uint64(3), binary.BigEndian.Uint64(data[50:58]),
		"the first record after reopen must continue the LSN sequence")
}

func TestFile_AbortHookAppends(t *testing.T) {
	dir := t.TempDir()
	lf, err := logfile.Open(dir + "/log")
	require.NoError(t, err)
	defer lf.Close()

	tid := txn.New()
	require.NoError(t, lf.LogBegin(tid))
	assert.NoError(t, lf.LogAbort(tid))
}
