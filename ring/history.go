package ring

// HistoryEntry is a bucket's assignment state (component C):
// `current` is the active DIP, `prev` is the DIP it most recently moved
// from (zero if none yet), and `timestamp` is seconds-since-epoch at which
// that transition happened. Per spec §3's invariant, writing a new
// `current` equal to the old one is a no-op; anything else rotates
// current into prev and stamps the transition time.
type HistoryEntry struct {
	Current   uint32
	Prev      uint32
	Timestamp uint32
}

// HistoryMap is a fixed-length ring of HistoryEntry, one per consistent-hash
// bucket. Allocated once at configure time and never resized; all
// operations are O(1) except PutEntries, which is O(count).
type HistoryMap struct {
	entries []HistoryEntry
}

// NewHistoryMap allocates a zeroed ring of n buckets. n is bounded to
// [0, 2^23] by the embedder (package config), matching spec §6's
// RING_SIZE bound.
func NewHistoryMap(n int) *HistoryMap {
	return &HistoryMap{entries: make([]HistoryEntry, n)}
}

// Size returns the ring size.
func (m *HistoryMap) Size() int { return len(m.entries) }

// Get is a pure read of one bucket's history.
func (m *HistoryMap) Get(bucket uint32) HistoryEntry {
	return m.entries[int(bucket)%len(m.entries)]
}

// Update applies a new DIP assignment to a bucket. If newDIP equals the
// current assignment this is a no-op (spec §4.C); otherwise it rotates
// current into prev and stamps hdr.Timestamp as the transition time, per
// spec §3's DIPHistoryEntry invariant.
func (m *HistoryMap) Update(bucket int, newDIP uint32, hdr LogHeader) {
	e := &m.entries[bucket]
	if e.Current == newDIP {
		return
	}
	e.Prev = e.Current
	e.Current = newDIP
	e.Timestamp = hdr.Timestamp
}

// PutEntries bulk-overwrites entries[offset:offset+len(entries)], used to
// install a full snapshot (spec §4.C's put_entries).
func (m *HistoryMap) PutEntries(offset int, entries []HistoryEntry) {
	copy(m.entries[offset:], entries)
}

// Snapshot copies out the whole ring, for the operator `dump` handler
// (spec §4.J) — the Dumper writes this copy rather than reading live
// entries while the replicator may still be updating them.
func (m *HistoryMap) Snapshot() []HistoryEntry {
	out := make([]HistoryEntry, len(m.entries))
	copy(out, m.entries)
	return out
}
