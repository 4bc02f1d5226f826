package mux

import (
	"encoding/binary"
	"fmt"
	"io"
	"net/netip"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/Beamer-LB/beamer-click/dump"
)

// tokenize splits an operator write-handler argument string into fields.
// beamermux.cc's original parser recursed one token at a time off the front
// of a std::string; spec's own Design Note blesses strings.Fields as the
// direct iterative equivalent, so there is no recursive helper to port.
func tokenize(s string) []string {
	return strings.Fields(s)
}

// parseIPv4 parses a dotted-quad into the big-endian uint32 the rest of the
// package works in.
func parseIPv4(s string) (uint32, error) {
	addr, err := netip.ParseAddr(s)
	if err != nil || !addr.Is4() {
		return 0, fmt.Errorf("mux: %q is not an IPv4 address", s)
	}
	b := addr.As4()
	return binary.BigEndian.Uint32(b[:]), nil
}

// Assign is the operator write handler "hash_assign" (H_ASSIGN in the
// original): its argument is "DIP bucket [bucket ...]", assigning one DIP to
// every listed consistent-hash bucket. now is the caller's wall-clock
// timestamp, stamped onto any bucket whose assignment actually changes.
func (d *Dispatcher) Assign(arg string, now uint32) error {
	fields := tokenize(arg)
	if len(fields) < 2 {
		return fmt.Errorf("mux: assign requires a DIP and at least one bucket")
	}
	dip, err := parseIPv4(fields[0])
	if err != nil {
		return err
	}
	buckets := make([]int, 0, len(fields)-1)
	for _, f := range fields[1:] {
		b, err := strconv.Atoi(f)
		if err != nil {
			return fmt.Errorf("mux: bad bucket index %q: %w", f, err)
		}
		buckets = append(buckets, b)
	}
	d.hashRepl.Assign(dip, buckets, now)
	return nil
}

// AssignID is the id-map counterpart of Assign: "DIP port [port ...]",
// assigning one DIP to every listed reserved destination port.
func (d *Dispatcher) AssignID(arg string, now uint32) error {
	fields := tokenize(arg)
	if len(fields) < 2 {
		return fmt.Errorf("mux: assign_id requires a DIP and at least one port")
	}
	dip, err := parseIPv4(fields[0])
	if err != nil {
		return err
	}
	ports := make([]int, 0, len(fields)-1)
	for _, f := range fields[1:] {
		p, err := strconv.Atoi(f)
		if err != nil || p < 0 || p > 0xffff {
			return fmt.Errorf("mux: bad port %q", f)
		}
		ports = append(ports, p)
	}
	d.idRepl.Assign(dip, ports, now)
	return nil
}

// Gen is the operator read handler "gen" (H_GEN): the hash ring's currently
// applied generation number, as a decimal string.
func (d *Dispatcher) Gen() string {
	return strconv.FormatUint(uint64(d.hashRepl.Gen()), 10)
}

// Dump is the operator write handler "dump" (H_DUMP): snapshots both
// replicated maps to dir/hash_dump.raw and dir/id_dump.raw, in the format
// package dump writes, for offline inspection or warm-restart bootstrap.
func (d *Dispatcher) Dump(dir string) error {
	hashEntries := d.bucketMap.Snapshot()
	hashGen := d.hashRepl.Gen()
	if err := dump.WriteSnapshotFile(filepath.Join(dir, "hash_dump.raw"), func(w io.Writer) error {
		return dump.WriteHistoryMap(w, hashGen, hashEntries)
	}); err != nil {
		return fmt.Errorf("mux: dumping hash map: %w", err)
	}

	idEntries := d.idMap.Snapshot()
	idGen := d.idRepl.Gen()
	if err := dump.WriteSnapshotFile(filepath.Join(dir, "id_dump.raw"), func(w io.Writer) error {
		return dump.WritePlainMap(w, idGen, idEntries)
	}); err != nil {
		return fmt.Errorf("mux: dumping id map: %w", err)
	}
	return nil
}
