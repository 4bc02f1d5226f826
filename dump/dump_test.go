package dump

import (
	"bytes"
	"errors"
	"testing"

	"golang.org/x/sys/unix"

	"github.com/Beamer-LB/beamer-click/ring"
)

func TestWriteHistoryMapRoundTrip(t *testing.T) {
	entries := []ring.HistoryEntry{
		{Current: 10, Prev: 0, Timestamp: 100},
		{Current: 20, Prev: 10, Timestamp: 200},
	}
	var buf bytes.Buffer
	if err := WriteHistoryMap(&buf, 7, entries); err != nil {
		t.Fatalf("WriteHistoryMap: %v", err)
	}

	out := buf.Bytes()
	if len(out) != 8+12*len(entries) {
		t.Fatalf("len(out) = %d, want %d", len(out), 8+12*len(entries))
	}
	if got := hostEndian.Uint32(out[0:4]); got != 7 {
		t.Fatalf("gen = %d, want 7", got)
	}
	if got := hostEndian.Uint32(out[4:8]); got != uint32(len(entries)) {
		t.Fatalf("size = %d, want %d", got, len(entries))
	}
	if got := hostEndian.Uint32(out[8:12]); got != 10 {
		t.Fatalf("entries[0].Current = %d, want 10", got)
	}
}

func TestWritePlainMapRoundTrip(t *testing.T) {
	entries := []uint32{7, 7, 9}
	var buf bytes.Buffer
	if err := WritePlainMap(&buf, 3, entries); err != nil {
		t.Fatalf("WritePlainMap: %v", err)
	}
	out := buf.Bytes()
	if len(out) != 8+4*len(entries) {
		t.Fatalf("len(out) = %d, want %d", len(out), 8+4*len(entries))
	}
	for i, want := range entries {
		if got := hostEndian.Uint32(out[8+i*4 : 12+i*4]); got != want {
			t.Fatalf("entries[%d] = %d, want %d", i, got, want)
		}
	}
}

// errWriter always returns a non-retryable error, exercising writeAll's
// propagation of a write error that is neither EINTR nor EAGAIN.
type errWriter struct{ err error }

func (w errWriter) Write(p []byte) (int, error) { return 0, w.err }

func TestWriteAllPropagatesNonRetryableError(t *testing.T) {
	boom := errors.New("disk full")
	if err := WriteHistoryMap(errWriter{boom}, 1, []ring.HistoryEntry{{}}); !errors.Is(err, boom) {
		t.Fatalf("WriteHistoryMap error = %v, want wrapping %v", err, boom)
	}
}

// flakyWriter fails with EINTR for the first few calls, then succeeds,
// exercising writeAll's retry loop.
type flakyWriter struct {
	failures int
	buf      bytes.Buffer
}

func (w *flakyWriter) Write(p []byte) (int, error) {
	if w.failures > 0 {
		w.failures--
		return 0, unix.EINTR
	}
	return w.buf.Write(p)
}

func TestWriteAllRetriesOnEINTR(t *testing.T) {
	w := &flakyWriter{failures: 2}
	if err := WriteHistoryMap(w, 1, []ring.HistoryEntry{{Current: 5}}); err != nil {
		t.Fatalf("WriteHistoryMap: %v", err)
	}
	if got := hostEndian.Uint32(w.buf.Bytes()[8:12]); got != 5 {
		t.Fatalf("Current = %d, want 5", got)
	}
}
