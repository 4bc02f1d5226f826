// Package encap implements the two outer-header encapsulators (components E
// and F): IPIPEncapper, a plain 20-byte IP-in-IP prepend, and GGEncapper,
// the same prepend plus the custom IP option carrying the previous-DIP
// hint, timestamp and generation used for daisy-chaining. Both build their
// header templates once at construction — with mutable fields (addresses,
// total length, option payload) zeroed — and at encapsulation time only
// overlay the per-packet fields and run an incremental checksum fixup
// (package csum) rather than re-summing the whole header, per spec §4.B.
//
// Header field layout comes from gvisor.dev/gvisor/pkg/tcpip/header, the
// same package the teacher (tun/multihoptun/tun.go, bind.go) uses to read
// and write IPv4 fields in place.
package encap

import (
	"gvisor.dev/gvisor/pkg/tcpip"
	"gvisor.dev/gvisor/pkg/tcpip/checksum"
	"gvisor.dev/gvisor/pkg/tcpip/header"

	"github.com/Beamer-LB/beamer-click/csum"
)

// ProtocolIPIP is the IPv4 protocol number for IP-in-IP encapsulation
// (outer protocol field for both encapsulators, per spec §6).
const ProtocolIPIP = 4

// OuterTTL is the TTL stamped on every outer header, per spec §6.
const OuterTTL = 250

// DefaultMaxPacketLen bounds how large an encapsulated packet may grow
// before Encapsulate refuses the packet rather than producing an
// oversized frame — the Go-idiomatic stand-in for the original's
// insufficient-tailroom failure (spec §7, "Packet-level failures"): there
// is no static headroom to run out of with a growable []byte, so the
// bound models the same "this packet cannot be encapsulated" outcome.
const DefaultMaxPacketLen = 65535

// addr4 turns a network-byte-order uint32 into the address representation
// gvisor's header package expects, the same constructor the teacher uses
// for its own IPv4 addresses (tun/multihoptun/tun.go's
// `tcpip.AddrFrom4Slice(st.localIp)`).
func addr4(v uint32) tcpip.Address {
	b := [4]byte{byte(v >> 24), byte(v >> 16), byte(v >> 8), byte(v)}
	return tcpip.AddrFrom4Slice(b[:])
}

// templateChecksum computes the raw (not yet complemented) folded
// checksum of a byte buffer, the representation package csum's Fixup
// functions expect to keep accumulating onto. It is only ever called once
// per encapper, at construction time, over the all-zero-mutable-fields
// template — never on the packet fast path.
func templateChecksum(buf []byte) uint32 {
	return uint32(checksum.Checksum(buf, 0))
}
