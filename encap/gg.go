package encap

import (
	"encoding/binary"

	"gvisor.dev/gvisor/pkg/tcpip/header"

	"github.com/Beamer-LB/beamer-click/csum"
)

// optionLen is the IP option's total length in bytes: a 2-byte option
// header, 2 bytes of padding, then three big-endian u32 fields (pdip, ts,
// gen), per spec §4.F / §6.
const optionLen = 16

// ggHeaderLen is the full outer header: 20-byte IPv4 header plus the
// 16-byte option, so the outer IHL is (20+16)/4 = 9 words.
const ggHeaderLen = header.IPv4MinimumSize + optionLen

const ggIHLWords = ggHeaderLen / 4

// option byte 0: copied=0, class=3 (experimental/reserved), number=1,
// packed as copied(1) | class(2) | number(5), per spec §6.
const optionTypeByte = (0 << 7) | (3 << 5) | 1

// GGEncapper prepends the 20-byte IP-in-IP header plus the custom
// previous-DIP option (component F), carrying the pdip/ts/gen triple used
// for daisy-chaining late packets to their old DIP.
type GGEncapper struct {
	template     [ggHeaderLen]byte
	templateSum  uint32
	maxPacketLen int
}

// NewGGEncapper builds the header+option template with all mutable fields
// (addresses, total length, pdip, ts, gen) zeroed.
func NewGGEncapper() *GGEncapper {
	e := &GGEncapper{maxPacketLen: DefaultMaxPacketLen}

	ip := header.IPv4(e.template[:header.IPv4MinimumSize])
	ip.Encode(&header.IPv4Fields{
		TTL:      OuterTTL,
		Protocol: ProtocolIPIP,
	})
	// header.IPv4Fields carries no way to express IHL for options, so the
	// base Encode call above always writes IHL=5; patch it to account for
	// the 16-byte option that follows.
	e.template[0] = 0x40 | byte(ggIHLWords)

	opt := e.template[header.IPv4MinimumSize:]
	opt[0] = optionTypeByte
	opt[1] = optionLen
	// opt[2:4] is the 2-byte pad, left zero; opt[4:16] is pdip/ts/gen, zero.

	e.templateSum = templateChecksum(e.template[:])
	return e
}

// Encapsulate prepends the outer header and option to p. pdip, ts and gen
// are taken as host-order values and written big-endian into the option,
// so the caller passes gen as is, without byte-swapping it first. Returns
// (nil, false) if the result would exceed maxPacketLen.
func (e *GGEncapper) Encapsulate(p []byte, vip, dip, pdip, ts, gen uint32) ([]byte, bool) {
	newLen := len(p) + ggHeaderLen
	if newLen > e.maxPacketLen {
		return nil, false
	}

	out := make([]byte, newLen)
	copy(out, e.template[:])
	copy(out[ggHeaderLen:], p)

	ip := header.IPv4(out[:header.IPv4MinimumSize])
	ip.SetSourceAddress(addr4(vip))
	ip.SetDestinationAddress(addr4(dip))
	totalLength := uint16(newLen)
	ip.SetTotalLength(totalLength)

	opt := out[header.IPv4MinimumSize:ggHeaderLen]
	binary.BigEndian.PutUint32(opt[4:8], pdip)
	binary.BigEndian.PutUint32(opt[8:12], ts)
	binary.BigEndian.PutUint32(opt[12:16], gen)

	acc := e.templateSum
	acc = csum.Fixup32(acc, vip)
	acc = csum.Fixup32(acc, dip)
	acc = csum.Fixup16(acc, totalLength)
	acc = csum.Fixup32(acc, pdip)
	acc = csum.Fixup32(acc, ts)
	acc = csum.Fixup32(acc, gen)
	ip.SetChecksum(csum.Fold(acc))

	return out, true
}
