// Package ring implements the two fixed-size maps the replicator keeps in
// sync with the controller (components C and D): HistoryMap, a
// consistent-hash bucket ring that remembers one step of history per
// bucket for daisy-chaining, and PlainMap, a flat id->DIP side table for
// reserved-port traffic. Per Design Note "Template-parameterized maps",
// both share the small capability set the replicator needs — Go generics
// stand in for the original's compile-time template parameter.
package ring

// LogHeader carries the per-log timestamp that every LogEntry applied under
// it inherits, per spec §3's LogEntry definition and §4.G's replayLog.
type LogHeader struct {
	Timestamp uint32
}

// Map is the capability set the replicator (package replicate) needs from
// either HistoryMap or PlainMap: size, bulk install for snapshot application,
// and per-bucket update for log replay and the operator `assign` handler.
// E is the type of one bulk-snapshot slot for this map.
type Map[E any] interface {
	Size() int
	PutEntries(offset int, entries []E)
	Update(bucket int, dip uint32, hdr LogHeader)
}
