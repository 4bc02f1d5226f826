package encap

import (
	"gvisor.dev/gvisor/pkg/tcpip/header"

	"github.com/Beamer-LB/beamer-click/csum"
)

// IPIPEncapper prepends a plain 20-byte IP-in-IP outer header (component
// E): no options, protocol 4, TTL 250. The template is built once and its
// checksum precomputed; Encapsulate only ever overlays vip, dip and the
// total length and runs the three matching fixups.
type IPIPEncapper struct {
	template     [header.IPv4MinimumSize]byte
	templateSum  uint32
	maxPacketLen int
}

// NewIPIPEncapper builds the header template with its mutable fields
// (addresses, total length) zeroed, matching the original's "precomputed
// own ip_sum" construction.
func NewIPIPEncapper() *IPIPEncapper {
	e := &IPIPEncapper{maxPacketLen: DefaultMaxPacketLen}
	ip := header.IPv4(e.template[:])
	ip.Encode(&header.IPv4Fields{
		TTL:      OuterTTL,
		Protocol: ProtocolIPIP,
	})
	e.templateSum = templateChecksum(e.template[:])
	return e
}

// Encapsulate prepends the outer header to p (p must begin at the network
// layer, i.e. at the inner IPv4 header). Returns (nil, false) if the
// resulting packet would exceed maxPacketLen — the encapsulator's
// "no packet" outcome (spec §7): the dispatcher is expected to drop the
// packet in that case, no panic or exception unwind.
func (e *IPIPEncapper) Encapsulate(p []byte, vip, dip uint32) ([]byte, bool) {
	newLen := len(p) + header.IPv4MinimumSize
	if newLen > e.maxPacketLen {
		return nil, false
	}

	out := make([]byte, newLen)
	copy(out, e.template[:])
	copy(out[header.IPv4MinimumSize:], p)

	ip := header.IPv4(out[:header.IPv4MinimumSize])
	ip.SetSourceAddress(addr4(vip))
	ip.SetDestinationAddress(addr4(dip))
	totalLength := uint16(newLen)
	ip.SetTotalLength(totalLength)

	acc := e.templateSum
	acc = csum.Fixup32(acc, vip)
	acc = csum.Fixup32(acc, dip)
	acc = csum.Fixup16(acc, totalLength)
	ip.SetChecksum(csum.Fold(acc))

	return out, true
}
