package statetrack

// FiveTuple identifies a flow: (src-ip, dst-ip, src-port, dst-port, proto),
// per spec §3. It is comparable so it can key a map directly.
type FiveTuple struct {
	SrcIP    uint32
	DstIP    uint32
	SrcPort  uint16
	DstPort  uint16
	Protocol uint8
}

// State is the stateful Mux's pinned-flow record (spec §3's MuxState):
// which DIP this flow was first routed to, and when it was last seen.
type State struct {
	Key         FiveTuple
	DIP         uint32
	LastTouched int64 // monotonic ticks, caller-defined unit
}
