// Package statetrack implements the per-CPU, bounded, time-expiring
// flow->DIP table consulted by the stateful Mux variant before every TCP
// packet (component H). One instance exists per CPU shard; per spec §5,
// a shard is never touched by any worker but its own, so the small lock
// github.com/hashicorp/golang-lru/v2/expirable carries internally is never
// actually contended on the fast path.
package statetrack

import (
	"time"

	lru "github.com/hashicorp/golang-lru/v2/expirable"
)

// IdleTimeout is T_idle from spec §3/§4.H: an entry with no hit in this
// long is treated as absent and may be reaped.
const IdleTimeout = 4 * time.Minute

// StateTrack is a bounded map from FiveTuple to *State with LRU eviction
// under capacity pressure and TTL-based idle expiry, the two properties
// spec §4.H asks of "lookup_best_effort"/"allocate". The underlying
// expirable LRU already gives both for free: Get reports a miss once an
// entry ages out, and Add evicts the least-recently-used entry once the
// shard is at capacity.
type StateTrack struct {
	entries *lru.LRU[FiveTuple, *State]
}

// New builds one CPU shard with room for `capacity` flows, each expiring
// after idle.
func New(capacity int, idle time.Duration) *StateTrack {
	return &StateTrack{entries: lru.NewLRU[FiveTuple, *State](capacity, nil, idle)}
}

// LookupBestEffort returns the state pinned to key, if any and not yet
// idle-expired. "Best effort" (spec §4.H): a miss here is never treated as
// an error by the caller, only as "no pinned state yet".
func (t *StateTrack) LookupBestEffort(key FiveTuple) (*State, bool) {
	return t.entries.Get(key)
}

// Allocate returns a fresh, unpopulated slot for a new pin. Go needs no
// preallocated storage the way the original's fixed slab does, but the
// two-step Allocate-then-InsertBestEffort shape is kept so callers mirror
// spec §4.H's "allocate a slot, fill it, then publish" sequence exactly.
func (t *StateTrack) Allocate() *State {
	return &State{}
}

// InsertBestEffort publishes a newly allocated, filled-in state into the
// index, evicting the least-recently-used entry first if the shard is at
// capacity. Unlike the original's fixed slab, this never fails — Go's
// allocator and the LRU's own eviction make insertion unconditional — so
// there is no "allocation failed" case to propagate; the "best effort"
// contract is preserved entirely by LookupBestEffort's miss path.
func (t *StateTrack) InsertBestEffort(now int64, s *State) {
	s.LastTouched = now
	t.entries.Add(s.Key, s)
}

// Refresh marks state as seen at `now`, sliding its idle-expiry deadline
// forward by re-publishing it — the expirable LRU resets an entry's TTL on
// every Add, which is exactly the "touch extends the window" semantics
// spec §4.H's refresh asks for.
func (t *StateTrack) Refresh(now int64, s *State) {
	s.LastTouched = now
	t.entries.Add(s.Key, s)
}

// Len reports the shard's current occupancy, for tests and diagnostics.
func (t *StateTrack) Len() int { return t.entries.Len() }
