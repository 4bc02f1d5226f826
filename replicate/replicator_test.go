package replicate

import (
	"bytes"
	"compress/zlib"
	"encoding/binary"
	"errors"
	"testing"

	"github.com/go-zookeeper/zk"

	"github.com/Beamer-LB/beamer-click/muxlog"
	"github.com/Beamer-LB/beamer-click/ring"
)

// fakeConn is an in-memory stand-in for the Conn surface (Get/GetW) a real
// *zk.Conn exposes, letting the FSM tests below replay exact node trees
// without a ZooKeeper ensemble.
type fakeConn struct {
	nodes map[string][]byte
	watch chan zk.Event
}

func newFakeConn() *fakeConn {
	return &fakeConn{nodes: map[string][]byte{}, watch: make(chan zk.Event, 1)}
}

func (c *fakeConn) Get(path string) ([]byte, error) {
	v, ok := c.nodes[path]
	if !ok {
		return nil, zk.ErrNoNode
	}
	return v, nil
}

func (c *fakeConn) GetW(path string) ([]byte, <-chan zk.Event, error) {
	v, err := c.Get(path)
	if err != nil {
		return nil, nil, err
	}
	return v, c.watch, nil
}

func u32(v uint32) []byte {
	b := make([]byte, 4)
	binary.BigEndian.PutUint32(b, v)
	return b
}

// shard0 wraps payload the way a real single-shard node would: a 4-byte
// shard count of 1, then the zlib-compressed payload.
func shard0(payload []byte) []byte {
	var buf bytes.Buffer
	zw := zlib.NewWriter(&buf)
	zw.Write(payload)
	zw.Close()
	out := make([]byte, 4+buf.Len())
	binary.BigEndian.PutUint32(out[:4], 1)
	copy(out[4:], buf.Bytes())
	return out
}

func historyEntryBytes(entries []ring.HistoryEntry) []byte {
	buf := make([]byte, 0, len(entries)*ring.HistoryEntrySize)
	for _, e := range entries {
		buf = append(buf, u32(e.Current)...)
		buf = append(buf, u32(e.Prev)...)
		buf = append(buf, u32(e.Timestamp)...)
	}
	return buf
}

func logBytes(ts uint32, dip uint32, buckets []int) []byte {
	buf := append([]byte{}, u32(ts)...)
	buf = append(buf, u32(dip)...)
	buf = append(buf, u32(uint32(len(buckets)))...)
	for _, b := range buckets {
		buf = append(buf, u32(uint32(b))...)
	}
	return buf
}

// TestFreshReplicaInstallScenario is spec §8 scenario 1.
func TestFreshReplicaInstallScenario(t *testing.T) {
	conn := newFakeConn()
	root := "/beamer/mux_ring"

	conn.nodes[root+"/latest_blob"] = u32(5)
	conn.nodes[root+"/gen_5/blob_0"] = shard0(historyEntryBytes([]ring.HistoryEntry{
		{Current: 10, Prev: 0, Timestamp: 100},
		{Current: 11, Prev: 0, Timestamp: 100},
		{Current: 12, Prev: 0, Timestamp: 100},
		{Current: 13, Prev: 0, Timestamp: 100},
	}))
	conn.nodes[root+"/latest_gen"] = u32(7)
	conn.nodes[root+"/gen_6/log_0"] = shard0(logBytes(200, 20, []int{0}))
	conn.nodes[root+"/gen_7/log_0"] = shard0(logBytes(300, 30, []int{2, 3}))

	m := ring.NewHistoryMap(4)
	r := New[ring.HistoryEntry](conn, root, m, ring.DecodeHistoryEntries, muxlog.Discard())

	if err := r.doFindNewestBlob(); err != nil {
		t.Fatalf("doFindNewestBlob: %v", err)
	}
	if _, err := r.doUpdateFromBlob(); err != nil {
		t.Fatalf("doUpdateFromBlob: %v", err)
	}
	if r.Gen() != 5 {
		t.Fatalf("gen after blob install = %d, want 5", r.Gen())
	}
	for r.Gen() < r.latestGen {
		if err := r.applyOneGeneration(); err != nil {
			t.Fatalf("applyOneGeneration: %v", err)
		}
	}
	if r.Gen() != 7 {
		t.Fatalf("final gen = %d, want 7", r.Gen())
	}

	want := []ring.HistoryEntry{
		{Current: 20, Prev: 10, Timestamp: 200},
		{Current: 11, Prev: 0, Timestamp: 100},
		{Current: 30, Prev: 12, Timestamp: 300},
		{Current: 30, Prev: 13, Timestamp: 300},
	}
	for i, w := range want {
		if got := m.Get(uint32(i)); got != w {
			t.Fatalf("bucket %d = %+v, want %+v", i, got, w)
		}
	}
}

// TestBlobGCRecoveryScenario is spec §8 scenario 5: a log read that returns
// no-node because the controller garbage-collected old generations sends
// the replicator back to FIND_NEWEST_BLOB rather than failing.
func TestBlobGCRecoveryScenario(t *testing.T) {
	conn := newFakeConn()
	root := "/beamer/id"

	conn.nodes[root+"/latest_blob"] = u32(9)
	conn.nodes[root+"/gen_9/blob_0"] = shard0(historyEntryBytes([]ring.HistoryEntry{
		{Current: 50, Prev: 0, Timestamp: 500},
	}))
	conn.nodes[root+"/latest_gen"] = u32(10)
	conn.nodes[root+"/gen_10/log_0"] = shard0(logBytes(600, 60, []int{0}))
	// gen_4/log_* deliberately absent: it has been garbage-collected.

	m := ring.NewHistoryMap(1)
	r := New[ring.HistoryEntry](conn, root, m, ring.DecodeHistoryEntries, muxlog.Discard())
	r.gen.Store(3)
	r.latestGen = 10

	if err := r.applyOneGeneration(); !errors.Is(err, zk.ErrNoNode) {
		t.Fatalf("applyOneGeneration at the GC'd generation = %v, want zk.ErrNoNode", err)
	}

	if err := r.doFindNewestBlob(); err != nil {
		t.Fatalf("doFindNewestBlob: %v", err)
	}
	if r.latestBlobSeen != 9 {
		t.Fatalf("latestBlobSeen = %d, want 9", r.latestBlobSeen)
	}
	if _, err := r.doUpdateFromBlob(); err != nil {
		t.Fatalf("doUpdateFromBlob: %v", err)
	}
	if r.Gen() != 9 {
		t.Fatalf("gen after recovery blob install = %d, want 9", r.Gen())
	}

	for r.Gen() < r.latestGen {
		if err := r.applyOneGeneration(); err != nil {
			t.Fatalf("applyOneGeneration: %v", err)
		}
	}
	if r.Gen() != 10 {
		t.Fatalf("final gen = %d, want 10", r.Gen())
	}
	want := ring.HistoryEntry{Current: 60, Prev: 50, Timestamp: 600}
	if got := m.Get(0); got != want {
		t.Fatalf("bucket 0 = %+v, want %+v", got, want)
	}
}

func TestAssignDoesNotAdvanceGen(t *testing.T) {
	conn := newFakeConn()
	m := ring.NewHistoryMap(2)
	r := New[ring.HistoryEntry](conn, "/beamer/mux_ring", m, ring.DecodeHistoryEntries, muxlog.Discard())
	r.gen.Store(4)

	r.Assign(99, []int{0, 1}, 1000)

	if r.Gen() != 4 {
		t.Fatalf("gen changed to %d after Assign, want unchanged 4", r.Gen())
	}
	want := ring.HistoryEntry{Current: 99, Prev: 0, Timestamp: 1000}
	if got := m.Get(0); got != want {
		t.Fatalf("bucket 0 = %+v, want %+v", got, want)
	}
	if got := m.Get(1); got != want {
		t.Fatalf("bucket 1 = %+v, want %+v", got, want)
	}
}
