package dump

import "encoding/binary"

// hostEndian is the byte order the dump file format uses for every integer
// field, per spec §4.J ("All integers in host byte order") — unlike the
// replicator's coordination-service wire format, which is big-endian for
// cross-replica portability, a dump file is read back only by tooling on
// the same host that wrote it.
var hostEndian = binary.NativeEndian
