package replicate

import (
	"encoding/binary"
	"fmt"

	"github.com/Beamer-LB/beamer-click/ring"
)

// logRecord is one { dip, buckets } record from an inflated log blob,
// applying a single DIP to every listed bucket under the log's shared
// LogHeader.
type logRecord struct {
	DIP     uint32
	Buckets []int
}

// decodeLog parses an inflated log blob: a LogHeader{timestamp:u32}
// followed by concatenated records, each { dip:u32, count:u32,
// bucket_0..bucket_{count-1}:u32 }, per spec §4.G.
func decodeLog(buf []byte) (ring.LogHeader, []logRecord, error) {
	if len(buf) < 4 {
		return ring.LogHeader{}, nil, fmt.Errorf("replicate: log blob too short for header")
	}
	hdr := ring.LogHeader{Timestamp: binary.BigEndian.Uint32(buf[:4])}
	buf = buf[4:]

	var records []logRecord
	for len(buf) > 0 {
		if len(buf) < 8 {
			return hdr, nil, fmt.Errorf("replicate: truncated log record")
		}
		dip := binary.BigEndian.Uint32(buf[:4])
		count := binary.BigEndian.Uint32(buf[4:8])
		buf = buf[8:]

		need := int(count) * 4
		if len(buf) < need {
			return hdr, nil, fmt.Errorf("replicate: truncated bucket list (want %d bytes, have %d)", need, len(buf))
		}
		buckets := make([]int, count)
		for i := range buckets {
			buckets[i] = int(binary.BigEndian.Uint32(buf[i*4 : i*4+4]))
		}
		buf = buf[need:]

		records = append(records, logRecord{DIP: dip, Buckets: buckets})
	}
	return hdr, records, nil
}
