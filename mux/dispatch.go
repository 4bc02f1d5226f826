// Package mux implements component I, the dispatcher: the per-packet
// on_packet dispatch table from spec §4.I, grounded directly on
// beamermux.cc's handleTCP/handleUDP/simple_action(_batch) and
// statefulmux.cc's stateful variant of the same.
package mux

import (
	"encoding/binary"

	"gvisor.dev/gvisor/pkg/tcpip"
	"gvisor.dev/gvisor/pkg/tcpip/header"

	"github.com/Beamer-LB/beamer-click/encap"
	"github.com/Beamer-LB/beamer-click/hashfn"
	"github.com/Beamer-LB/beamer-click/replicate"
	"github.com/Beamer-LB/beamer-click/ring"
	"github.com/Beamer-LB/beamer-click/statetrack"
)

// reservedPortCount is RESERVED_PORT_COUNT from the original beamermux.cc/
// statefulmux.cc: TCP destination ports below this go through the
// consistent-hash ring; ports at or above it are looked up directly in the
// flat id map.
const reservedPortCount = 1024

// Dispatcher is the Mux element itself: it owns the two replicated maps,
// the two encapsulators, the hash backend, and — in the stateful
// configuration — one StateTrack shard per worker.
type Dispatcher struct {
	vip  uint32
	hash hashfn.Func

	hashRepl  *replicate.Replicator[ring.HistoryEntry]
	idRepl    *replicate.Replicator[uint32]
	bucketMap *ring.HistoryMap
	idMap     *ring.PlainMap

	ipip *encap.IPIPEncapper
	gg   *encap.GGEncapper

	stateful   bool
	daisyChain bool
	shards     []*statetrack.StateTrack
}

// Option configures optional Dispatcher behavior.
type Option func(*Dispatcher)

// WithStateTrack makes the Mux stateful: TCP flows under reservedPortCount
// are pinned to the DIP they first landed on via the given per-worker
// StateTrack shards, indexed by the shardID passed to OnPacket/OnBatch.
func WithStateTrack(shards []*statetrack.StateTrack) Option {
	return func(d *Dispatcher) {
		d.stateful = true
		d.shards = shards
	}
}

// WithDaisyChain enables the stateful Mux's daisy-chain variant
// (CLICK_BEAMER_STATEFUL_DAISY in the original): when a pinned flow's DIP
// differs from its bucket's current assignment, GG-encapsulate carrying the
// bucket's prev/timestamp instead of plain IPIP. Off by default, matching
// the original's default-off compile flag.
func WithDaisyChain(enabled bool) Option {
	return func(d *Dispatcher) { d.daisyChain = enabled }
}

// New builds a Dispatcher for VIP vip, backed by hashRepl/idRepl (whose
// Gen() methods back the operator `gen` handler and the GG option's gen
// field) and their underlying maps.
func New(
	vip uint32,
	hash hashfn.Func,
	hashRepl *replicate.Replicator[ring.HistoryEntry],
	bucketMap *ring.HistoryMap,
	idRepl *replicate.Replicator[uint32],
	idMap *ring.PlainMap,
	opts ...Option,
) *Dispatcher {
	d := &Dispatcher{
		vip:       vip,
		hash:      hash,
		hashRepl:  hashRepl,
		idRepl:    idRepl,
		bucketMap: bucketMap,
		idMap:     idMap,
		ipip:      encap.NewIPIPEncapper(),
		gg:        encap.NewGGEncapper(),
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// addrToBE32 reads a gvisor tcpip.Address as the big-endian uint32 the
// hash function and encapsulators expect.
func addrToBE32(a tcpip.Address) uint32 {
	b := a.As4()
	return binary.BigEndian.Uint32(b[:])
}

// OnPacket dispatches a single packet, per spec §4.I's table. p must begin
// at the packet's own (inner) IPv4 header. A nil return means the packet
// was dropped (oversized after encapsulation, spec §7); a non-nil return
// may be p itself, unmodified, for pass-through traffic.
func (d *Dispatcher) OnPacket(shardID int, now int64, p []byte) []byte {
	if len(p) < header.IPv4MinimumSize {
		return p
	}
	ip := header.IPv4(p)

	switch ip.Protocol() {
	case uint8(header.TCPProtocolNumber):
		tcp := header.TCP(ip.Payload())
		if d.stateful {
			return d.handleTCPStateful(shardID, now, p, ip, tcp)
		}
		return d.handleTCPStateless(p, ip, tcp)
	case uint8(header.UDPProtocolNumber):
		return d.handleUDP(p, ip)
	default:
		return p
	}
}

// OnBatch processes packets in order, per spec §4.I's "batch processing
// MUST NOT reorder packets relative to input". Dropped packets are simply
// absent from the result, rather than reordering or leaving a gap marker.
func (d *Dispatcher) OnBatch(shardID int, now int64, packets [][]byte) [][]byte {
	out := make([][]byte, 0, len(packets))
	for _, p := range packets {
		if result := d.OnPacket(shardID, now, p); result != nil {
			out = append(out, result)
		}
	}
	return out
}

// handleTCPStateless is beamermux.cc's handleTCP: no per-flow pinning, so a
// sub-reserved-port flow always takes the GG path with whatever the ring
// currently says for its bucket.
func (d *Dispatcher) handleTCPStateless(p []byte, ip header.IPv4, tcp header.TCP) []byte {
	dport := tcp.DestinationPort()
	if dport >= reservedPortCount {
		dip := d.idMap.Get(dport)
		out, ok := d.ipip.Encapsulate(p, d.vip, dip)
		if !ok {
			return nil
		}
		return out
	}

	srcIPBE := addrToBE32(ip.SourceAddress())
	bucket := d.hash(srcIPBE, tcp.SourcePort(), dport)
	entry := d.bucketMap.Get(bucket)

	out, ok := d.gg.Encapsulate(p, d.vip, entry.Current, entry.Prev, entry.Timestamp, d.hashRepl.Gen())
	if !ok {
		return nil
	}
	return out
}

// handleTCPStateful is statefulmux.cc's handleTCP: sub-reserved-port flows
// consult the per-shard StateTrack first and pin to whichever DIP they
// first resolved to, even across a later bucket reassignment.
func (d *Dispatcher) handleTCPStateful(shardID int, now int64, p []byte, ip header.IPv4, tcp header.TCP) []byte {
	dport := tcp.DestinationPort()
	if dport >= reservedPortCount {
		dip := d.idMap.Get(dport)
		out, ok := d.ipip.Encapsulate(p, d.vip, dip)
		if !ok {
			return nil
		}
		return out
	}

	srcIPBE := addrToBE32(ip.SourceAddress())
	bucket := d.hash(srcIPBE, tcp.SourcePort(), dport)
	entry := d.bucketMap.Get(bucket)

	key := statetrack.FiveTuple{
		SrcIP:    srcIPBE,
		DstIP:    addrToBE32(ip.DestinationAddress()),
		SrcPort:  tcp.SourcePort(),
		DstPort:  dport,
		Protocol: uint8(header.TCPProtocolNumber),
	}

	shard := d.shards[shardID]
	var dip, prevDip, ts uint32

	if state, found := shard.LookupBestEffort(key); found {
		shard.Refresh(now, state)
		dip = state.DIP
		if d.daisyChain && dip == entry.Current {
			prevDip = entry.Prev
			ts = entry.Timestamp
		}
	} else {
		dip = entry.Current
		if d.daisyChain {
			prevDip = entry.Prev
			ts = entry.Timestamp
		}
		s := shard.Allocate()
		s.Key = key
		s.DIP = dip
		shard.InsertBestEffort(now, s)
	}

	if prevDip == 0 || prevDip == dip {
		out, ok := d.ipip.Encapsulate(p, d.vip, dip)
		if !ok {
			return nil
		}
		return out
	}

	out, ok := d.gg.Encapsulate(p, d.vip, dip, prevDip, ts, d.hashRepl.Gen())
	if !ok {
		return nil
	}
	return out
}

// handleUDP is shared verbatim by both the stateless and stateful Mux in
// the original: UDP is never pinned, even under the stateful build.
func (d *Dispatcher) handleUDP(p []byte, ip header.IPv4) []byte {
	udp := header.UDP(ip.Payload())
	srcIPBE := addrToBE32(ip.SourceAddress())
	bucket := d.hash(srcIPBE, udp.SourcePort(), udp.DestinationPort())
	dip := d.bucketMap.Get(bucket).Current

	out, ok := d.ipip.Encapsulate(p, d.vip, dip)
	if !ok {
		return nil
	}
	return out
}
