package ring

import (
	"encoding/binary"
	"fmt"
)

// HistoryEntrySize is the on-the-wire size of a HistoryEntry in a
// replicator snapshot: three big-endian u32 fields, per spec §4.G's
// "tightly packed array of MapEntry".
const HistoryEntrySize = 12

// DecodeHistoryEntries parses a snapshot blob into HistoryEntry records.
// The replicator's UPDATE_FROM_BLOB state uses this to turn an inflated
// snapshot into the slice it bulk-installs via PutEntries.
func DecodeHistoryEntries(buf []byte) ([]HistoryEntry, error) {
	if len(buf)%HistoryEntrySize != 0 {
		return nil, fmt.Errorf("ring: snapshot length %d is not a multiple of entry size %d", len(buf), HistoryEntrySize)
	}
	n := len(buf) / HistoryEntrySize
	out := make([]HistoryEntry, n)
	for i := range out {
		o := i * HistoryEntrySize
		out[i] = HistoryEntry{
			Current:   binary.BigEndian.Uint32(buf[o : o+4]),
			Prev:      binary.BigEndian.Uint32(buf[o+4 : o+8]),
			Timestamp: binary.BigEndian.Uint32(buf[o+8 : o+12]),
		}
	}
	return out, nil
}

// PlainEntrySize is the on-the-wire size of a PlainMap entry: a single
// big-endian u32 DIP.
const PlainEntrySize = 4

// DecodePlainEntries parses a snapshot blob into a flat DIP slice.
func DecodePlainEntries(buf []byte) ([]uint32, error) {
	if len(buf)%PlainEntrySize != 0 {
		return nil, fmt.Errorf("ring: snapshot length %d is not a multiple of entry size %d", len(buf), PlainEntrySize)
	}
	n := len(buf) / PlainEntrySize
	out := make([]uint32, n)
	for i := range out {
		out[i] = binary.BigEndian.Uint32(buf[i*4 : i*4+4])
	}
	return out, nil
}
