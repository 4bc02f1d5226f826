package replicate

import (
	"bytes"
	"compress/gzip"
	"encoding/binary"
	"fmt"
	"io"

	"github.com/klauspost/compress/zlib"
)

// gzipMagic is the two leading bytes of every gzip stream; zlib streams
// never start this way (their first byte's low nibble is always 8, the
// deflate compression method, paired with a compression-info/checksum
// scheme that never produces 0x1f), which is what makes a two-byte sniff
// reliable here.
var gzipMagic = [2]byte{0x1f, 0x8b}

// inflate decompresses a snapshot or log blob, auto-detecting gzip vs zlib
// framing per spec §4.G.
func inflate(b []byte) ([]byte, error) {
	if len(b) >= 2 && b[0] == gzipMagic[0] && b[1] == gzipMagic[1] {
		r, err := gzip.NewReader(bytes.NewReader(b))
		if err != nil {
			return nil, fmt.Errorf("replicate: gzip: %w", err)
		}
		defer r.Close()
		return io.ReadAll(r)
	}

	r, err := zlib.NewReader(bytes.NewReader(b))
	if err != nil {
		return nil, fmt.Errorf("replicate: zlib: %w", err)
	}
	defer r.Close()
	return io.ReadAll(r)
}

// readSharded reassembles a sharded node set under prefix ("<path>/blob" or
// "<path>/log"): shard 0 carries a 4-byte big-endian shard count ahead of
// its payload, the remaining shards are pure payload, per spec §4.G.
func readSharded(conn Conn, prefix string) ([]byte, error) {
	first, err := conn.Get(fmt.Sprintf("%s_0", prefix))
	if err != nil {
		return nil, err
	}
	if len(first) < 4 {
		return nil, fmt.Errorf("replicate: shard 0 of %s is too short for a shard-count header", prefix)
	}
	count := binary.BigEndian.Uint32(first[:4])

	buf := make([]byte, 0, len(first)-4)
	buf = append(buf, first[4:]...)
	for i := uint32(1); i < count; i++ {
		shard, err := conn.Get(fmt.Sprintf("%s_%d", prefix, i))
		if err != nil {
			return nil, err
		}
		buf = append(buf, shard...)
	}
	return buf, nil
}
