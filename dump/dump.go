// Package dump implements component J: writing a binary snapshot of a
// replicator's map to disk on operator request (spec §4.J, §6's `dump`
// write handler).
package dump

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"os"

	"golang.org/x/sys/unix"

	"github.com/Beamer-LB/beamer-click/ring"
)

// WriteHistoryMap writes { gen: u32, size: u32, entries... } for a
// DIPHistoryMap, all integers in host byte order, per spec §4.J.
func WriteHistoryMap(w io.Writer, gen uint32, entries []ring.HistoryEntry) error {
	if err := writeHeader(w, gen, uint32(len(entries))); err != nil {
		return err
	}
	buf := make([]byte, 12*len(entries))
	for i, e := range entries {
		o := i * 12
		hostEndian.PutUint32(buf[o:o+4], e.Current)
		hostEndian.PutUint32(buf[o+4:o+8], e.Prev)
		hostEndian.PutUint32(buf[o+8:o+12], e.Timestamp)
	}
	return writeAll(w, buf)
}

// WritePlainMap writes { gen: u32, size: u32, dips... } for a PlainDIPMap.
func WritePlainMap(w io.Writer, gen uint32, entries []uint32) error {
	if err := writeHeader(w, gen, uint32(len(entries))); err != nil {
		return err
	}
	buf := make([]byte, 4*len(entries))
	for i, dip := range entries {
		hostEndian.PutUint32(buf[i*4:i*4+4], dip)
	}
	return writeAll(w, buf)
}

func writeHeader(w io.Writer, gen, size uint32) error {
	var hdr [8]byte
	hostEndian.PutUint32(hdr[0:4], gen)
	hostEndian.PutUint32(hdr[4:8], size)
	return writeAll(w, hdr[:])
}

// WriteSnapshotFile opens path for writing (truncating any existing
// contents, matching the operator `dump` handler's "hash_dump.raw"/
// "id_dump.raw" semantics from spec §6) and invokes write against it.
func WriteSnapshotFile(path string, write func(io.Writer) error) error {
	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0o644)
	if err != nil {
		return fmt.Errorf("dump: open %s: %w", path, err)
	}
	defer f.Close()
	return write(f)
}

// writeAll retries the write on EINTR/EAGAIN and treats any other short
// write as an I/O error, per spec §4.J/§7: "a short write returns an I/O
// error to the caller", matching the teacher's own EAGAIN/EINTR retry
// idiom for raw syscall-backed I/O (golang.org/x/sys/unix error
// comparisons rather than a generic retrying io.Writer wrapper).
func writeAll(w io.Writer, buf []byte) error {
	for len(buf) > 0 {
		n, err := w.Write(buf)
		if err != nil {
			if errors.Is(err, unix.EINTR) || errors.Is(err, unix.EAGAIN) {
				continue
			}
			return fmt.Errorf("dump: write: %w", err)
		}
		if n == 0 {
			return fmt.Errorf("dump: short write (wrote 0 of %d remaining bytes)", len(buf))
		}
		buf = buf[n:]
	}
	return nil
}
