package hashfn

import "hash/crc32"

// CRC returns the 6-byte-CRC32 backend: a CRC-32 (IEEE) over the
// concatenation src_ip_be || src_port_be || 0x0000 — an 8-byte tuple buffer
// with the trailing two bytes left zero, per spec §4.A and §6's
// "hash-function tuple" wire format. dstPortBE is accepted to satisfy Func
// but unused, matching the original HashTouple which never carried it.
func CRC() Func {
	return func(srcIPBE uint32, srcPortBE, _ uint16) uint32 {
		var buf [8]byte
		buf[0] = byte(srcIPBE >> 24)
		buf[1] = byte(srcIPBE >> 16)
		buf[2] = byte(srcIPBE >> 8)
		buf[3] = byte(srcIPBE)
		buf[4] = byte(srcPortBE >> 8)
		buf[5] = byte(srcPortBE)
		// buf[6:8] stay zero
		return crc32.ChecksumIEEE(buf[:6])
	}
}
