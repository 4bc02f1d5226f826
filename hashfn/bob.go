package hashfn

// Bob returns the Bob-Jenkins backend: the classic three-word "final"
// mixer (lookup3.c's `final()`) applied to (src_ip_be, src_port_be,
// dst_port_be), per spec §4.A. Ports are widened into their own words the
// same way the original's freeBSDBob(a, b, c) call does — each argument
// occupies one 32-bit word of the mixer regardless of its wire width.
func Bob() Func {
	return func(srcIPBE uint32, srcPortBE, dstPortBE uint16) uint32 {
		return bobFinal(srcIPBE, uint32(srcPortBE), uint32(dstPortBE))
	}
}

// bobFinal is Bob Jenkins' public-domain final mixer for three 32-bit
// words, as used by FreeBSD's hash(9) jenkins_hash32/siphash consistent
// hashing implementation this backend is named after.
func bobFinal(a, b, c uint32) uint32 {
	c ^= b
	c -= rot(b, 14)
	a ^= c
	a -= rot(c, 11)
	b ^= a
	b -= rot(a, 25)
	c ^= b
	c -= rot(b, 16)
	a ^= c
	a -= rot(c, 4)
	b ^= a
	b -= rot(a, 14)
	c ^= b
	c -= rot(b, 24)
	return c
}

func rot(x uint32, k uint) uint32 {
	return (x << k) | (x >> (32 - k))
}
