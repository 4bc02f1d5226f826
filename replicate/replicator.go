// Package replicate implements component G, the ZK replicator: the state
// machine that keeps a local ring.Map[E] synchronized with authoritative
// state an external controller publishes under a coordination-service root,
// per spec §4.G.
package replicate

import (
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"sync/atomic"

	"github.com/go-zookeeper/zk"

	"github.com/Beamer-LB/beamer-click/muxassert"
	"github.com/Beamer-LB/beamer-click/muxlog"
	"github.com/Beamer-LB/beamer-click/ring"
)

// fsmState names three of spec §4.G's four states. INIT itself — establish
// a watch-capable session, record live=true on connect — is the caller's
// job: it happens when the embedding binary calls zk.Connect, before a
// Replicator is ever constructed, so this machine starts at
// FIND_NEWEST_BLOB.
type fsmState int

const (
	findNewestBlob fsmState = iota
	updateFromBlob
	updateFromGen
)

// Replicator drives the FSM for one ring.Map[E] — either a DIPHistoryMap or
// a PlainDIPMap, both instantiated through ring.Map's generic interface.
// decode turns an inflated snapshot blob into the concrete entry slice the
// map's PutEntries expects; it is the only piece of the machine that knows
// which concrete map is on the other end.
type Replicator[E any] struct {
	conn   Conn
	root   string
	m      ring.Map[E]
	decode func([]byte) ([]E, error)
	log    *muxlog.Logger

	// gen is read concurrently by every dispatcher worker (spec §5: "gen is
	// a single 32-bit word; reads see either the old or new value"), so it
	// is the one piece of replicator state that needs atomic access; the
	// rest is touched only by the replicator's own goroutine.
	gen            atomic.Uint32
	latestGen      uint32
	latestBlobSeen uint32
}

// New builds a Replicator for map m, reading from the coordination service
// under root ("/beamer/mux_ring" or "/beamer/id", per spec §6).
func New[E any](conn Conn, root string, m ring.Map[E], decode func([]byte) ([]E, error), log *muxlog.Logger) *Replicator[E] {
	if log == nil {
		log = muxlog.Discard()
	}
	return &Replicator[E]{conn: conn, root: root, m: m, decode: decode, log: log}
}

// Gen returns the generation this replicator has fully applied. Safe to
// call concurrently from any dispatcher worker.
func (r *Replicator[E]) Gen() uint32 { return r.gen.Load() }

// Assign applies the operator "assign" command (spec §4.G, §6): pins dip to
// every listed bucket immediately, local-only, without advancing gen. The
// next snapshot or log application reconciles it away if the controller
// disagrees.
func (r *Replicator[E]) Assign(dip uint32, buckets []int, now uint32) {
	hdr := ring.LogHeader{Timestamp: now}
	for _, b := range buckets {
		r.m.Update(b, dip, hdr)
	}
}

// Run drives the state machine until ctx is cancelled. Coordination-
// transient errors (no-such-node on a historical blob/log, spec §7) are
// recovered locally by re-entering FIND_NEWEST_BLOB; every other
// coordination-service error is coordination-fatal and aborts the process
// via muxassert, per spec §7's rationale that silent degradation of a load
// balancer is worse than a crash and restart.
func (r *Replicator[E]) Run(ctx context.Context) {
	state := findNewestBlob
	var watch <-chan zk.Event

	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		var err error
		switch state {
		case findNewestBlob:
			err = r.doFindNewestBlob()
			if err == nil {
				state = updateFromBlob
			}

		case updateFromBlob:
			var w <-chan zk.Event
			w, err = r.doUpdateFromBlob()
			if err == nil {
				watch = w
				state = updateFromGen
			}

		case updateFromGen:
			if r.gen.Load() == r.latestGen {
				var w <-chan zk.Event
				var ok bool
				w, ok, err = r.waitForGenChange(ctx, watch)
				if ok {
					watch = w
				}
				if err == nil {
					continue
				}
			} else {
				err = r.applyOneGeneration()
			}
		}

		if err == nil {
			continue
		}
		if errors.Is(err, zk.ErrNoNode) {
			r.log.Verbosef("replicate: %v, restarting from newest snapshot", err)
			state = findNewestBlob
			continue
		}
		muxassert.Assertf(false, "replicate: coordination-fatal error: %v", err)
	}
}

// doFindNewestBlob reads latest_blob and records it, asserting forward
// progress per spec §4.G's "B > gen ∧ B > latest_blob_seen" rule.
func (r *Replicator[E]) doFindNewestBlob() error {
	raw, err := r.conn.Get(r.root + "/latest_blob")
	if err != nil {
		return err
	}
	if len(raw) < 4 {
		return fmt.Errorf("replicate: latest_blob node too short")
	}
	b := binary.BigEndian.Uint32(raw[:4])
	gen := r.gen.Load()
	muxassert.Assertf(b > gen, "replicate: latest_blob %d did not advance past applied gen %d", b, gen)
	muxassert.Assertf(r.latestBlobSeen == 0 || b > r.latestBlobSeen, "replicate: latest_blob %d went backwards from %d — controller bug", b, r.latestBlobSeen)
	r.latestBlobSeen = b
	return nil
}

// doUpdateFromBlob reads and installs the snapshot at latestBlobSeen, then
// arms the latest_gen watch for the UPDATE_FROM_GEN state.
func (r *Replicator[E]) doUpdateFromBlob() (<-chan zk.Event, error) {
	blobPrefix := fmt.Sprintf("%s/gen_%d/blob", r.root, r.latestBlobSeen)
	raw, err := readSharded(r.conn, blobPrefix)
	if err != nil {
		return nil, err
	}
	inflated, err := inflate(raw)
	if err != nil {
		return nil, err
	}
	entries, err := r.decode(inflated)
	if err != nil {
		return nil, err
	}
	muxassert.Assertf(len(entries) == r.m.Size(), "replicate: snapshot has %d entries, map has %d slots", len(entries), r.m.Size())
	r.m.PutEntries(0, entries)
	r.gen.Store(r.latestBlobSeen)

	raw, watch, err := r.conn.GetW(r.root + "/latest_gen")
	if err != nil {
		return nil, err
	}
	if len(raw) < 4 {
		return nil, fmt.Errorf("replicate: latest_gen node too short")
	}
	r.latestGen = binary.BigEndian.Uint32(raw[:4])
	return watch, nil
}

// applyOneGeneration inflates and applies gen_{gen+1}/log_*, advancing gen
// by exactly one. Run calls this repeatedly until gen catches up to
// latestGen, preserving the spec's "strictly monotonic" log application
// order.
func (r *Replicator[E]) applyOneGeneration() error {
	next := r.gen.Load() + 1
	logPrefix := fmt.Sprintf("%s/gen_%d/log", r.root, next)
	raw, err := readSharded(r.conn, logPrefix)
	if err != nil {
		return err
	}
	inflated, err := inflate(raw)
	if err != nil {
		return err
	}
	hdr, records, err := decodeLog(inflated)
	if err != nil {
		return err
	}
	for _, rec := range records {
		for _, bucket := range rec.Buckets {
			r.m.Update(bucket, rec.DIP, hdr)
		}
	}
	r.gen.Store(next)
	return nil
}

// waitForGenChange blocks until the latest_gen watch fires or ctx is
// cancelled, then re-reads latest_gen and re-arms the watch. The bool
// return is true only when a fresh watch was obtained; it is false on
// cancellation (nil error) and on a failed latest_gen read (non-nil error).
func (r *Replicator[E]) waitForGenChange(ctx context.Context, watch <-chan zk.Event) (<-chan zk.Event, bool, error) {
	select {
	case <-ctx.Done():
		return nil, false, nil
	case <-watch:
	}

	raw, newWatch, err := r.conn.GetW(r.root + "/latest_gen")
	if err != nil {
		return nil, false, err
	}
	if len(raw) >= 4 {
		r.latestGen = binary.BigEndian.Uint32(raw[:4])
	}
	return newWatch, true, nil
}
