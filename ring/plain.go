package ring

// PlainMap is a flat array of DIPs keyed by reserved destination port
// (component D): no history, just the current assignment. Fixed at 65536
// entries per spec §3.
type PlainMap struct {
	entries []uint32
}

// PlainMapSize is the fixed size of a PlainMap, one slot per possible
// 16-bit destination port.
const PlainMapSize = 1 << 16

// NewPlainMap allocates a zeroed id->DIP table.
func NewPlainMap() *PlainMap {
	return &PlainMap{entries: make([]uint32, PlainMapSize)}
}

// Size returns the map's fixed size.
func (m *PlainMap) Size() int { return len(m.entries) }

// Get reads the DIP assigned to a port id. Zero means unassigned.
func (m *PlainMap) Get(id uint16) uint32 { return m.entries[id] }

// Update writes the DIP for a port id. hdr is accepted to satisfy Map's
// shared signature but unused — PlainMap carries no history.
func (m *PlainMap) Update(id int, dip uint32, _ LogHeader) {
	m.entries[id] = dip
}

// PutEntries bulk-overwrites entries[offset:offset+len(entries)] for
// snapshot install.
func (m *PlainMap) PutEntries(offset int, entries []uint32) {
	copy(m.entries[offset:], entries)
}

// Snapshot copies out the whole table, for the operator `dump` handler.
func (m *PlainMap) Snapshot() []uint32 {
	out := make([]uint32, len(m.entries))
	copy(out, m.entries)
	return out
}
