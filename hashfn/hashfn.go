// Package hashfn implements the flow-hash used to pick a consistent-hash
// bucket for a packet (component A). Two interchangeable backends are
// provided, matching the two the original Click element supports behind a
// compile-time switch; here the choice is a constructor instead, so both can
// be linked into the same binary and picked per Mux instance.
package hashfn

// Func hashes a flow's (src IP, src port, dst port) into a 32-bit bucket
// index input. dstPort is only consulted by the Bob-Jenkins backend; the CRC
// backend ignores it, matching the original's HashTouple layout which never
// carried a destination port.
type Func func(srcIPBE uint32, srcPortBE, dstPortBE uint16) uint32
