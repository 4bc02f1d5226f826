// Package csum implements the incremental one's-complement checksum
// update (component B) used by the encapsulators to avoid re-summing the
// payload on every packet: RFC 1624's formula for updating a checksum after
// one or more header fields change, applied starting from the template's
// precomputed checksum and a fixup per changed field. The accumulator
// `acc` threaded through Fixup16/Fixup32/Fold is the raw (not yet
// complemented) folded sum — the same representation
// gvisor.dev/gvisor/pkg/tcpip/checksum's Combine keeps internally, only
// complementing once at the very end — which is what makes a long chain of
// Fixup calls associative regardless of call order.
package csum

// Fixup16 adds a changed 16-bit field's new value into the running
// accumulator. Per RFC 1624 eq. 3 (HC' = ~(~HC + ~m + m')), when a field's
// old value is zero — always true here, since every encapsulator template
// starts with its mutable fields zeroed — ~m is the identity element of
// one's-complement addition, so the update degenerates to adding the new
// value directly onto the uncomplemented running sum.
func Fixup16(acc uint32, delta16 uint16) uint32 {
	return acc + uint32(delta16)
}

// Fixup32 is Fixup16 generalized to a 32-bit field (e.g. an IPv4 address),
// added to the accumulator as two 16-bit halves per the one's-complement
// sum's halving property.
func Fixup32(acc uint32, delta32 uint32) uint32 {
	acc = Fixup16(acc, uint16(delta32>>16))
	acc = Fixup16(acc, uint16(delta32))
	return acc
}

// Fold collapses the accumulator down to the final on-wire checksum value:
// carry-folds until the sum fits in 16 bits, then complements it, per the
// usual one's-complement checksum construction. Callers seed the
// accumulator with the template's checksum already uncomplemented (see
// encap.templateChecksum) so that this is the one and only complement applied
// across a whole fixup chain.
func Fold(acc uint32) uint16 {
	for acc>>16 != 0 {
		acc = (acc & 0xffff) + (acc >> 16)
	}
	return ^uint16(acc)
}
