// Command beamer-mux wires the Mux element's components together the way
// beamermux.cc's/statefulmux.cc's configure()/initialize() do: parse
// options, build the two replicated maps and their replicators, build the
// per-CPU state track when running stateful, and build the dispatcher.
//
// The packet-processing framework that feeds packets into the dispatcher
// and the CLI/handler glue that feeds operator commands are both external
// collaborators per spec — out of scope here. This binary provides a
// minimal stdin-driven line protocol over the operator commands (assign,
// assign_id, dump, gen) so the wiring above is independently runnable and
// testable end to end, matching the teacher's own thin cmd/ binaries.
package main

import (
	"bufio"
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/go-zookeeper/zk"

	"github.com/Beamer-LB/beamer-click/config"
	"github.com/Beamer-LB/beamer-click/hashfn"
	"github.com/Beamer-LB/beamer-click/mux"
	"github.com/Beamer-LB/beamer-click/muxlog"
	"github.com/Beamer-LB/beamer-click/replicate"
	"github.com/Beamer-LB/beamer-click/ring"
	"github.com/Beamer-LB/beamer-click/statetrack"
)

func main() {
	var opts config.Options
	hashBackend := flag.String("hash", "crc", "hash backend: crc or bob")
	config.RegisterFlags(flag.CommandLine, &opts)
	flag.Parse()

	if err := opts.Validate(); err != nil {
		fmt.Fprintln(os.Stderr, "beamer-mux:", err)
		os.Exit(1)
	}

	log := muxlog.New("beamer-mux: ")

	vip, err := parseVIP(opts.VIP)
	if err != nil {
		fmt.Fprintln(os.Stderr, "beamer-mux:", err)
		os.Exit(1)
	}

	var hash hashfn.Func
	switch *hashBackend {
	case "bob":
		hash = hashfn.Bob()
	default:
		hash = hashfn.CRC()
	}

	ringSize := opts.RingSize
	bucketMap := ring.NewHistoryMap(ringSize)
	idMap := ring.NewPlainMap()

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	var hashRepl *replicate.Replicator[ring.HistoryEntry]
	var idRepl *replicate.Replicator[uint32]

	if opts.ZK != "" {
		conn, events, err := zk.Connect(strings.Split(opts.ZK, ","), 10*time.Second)
		if err != nil {
			fmt.Fprintln(os.Stderr, "beamer-mux: zk connect:", err)
			os.Exit(1)
		}
		defer conn.Close()
		go drainZKEvents(ctx, events, log)

		zconn := replicate.ZKConn{Conn: conn}
		hashRepl = replicate.New[ring.HistoryEntry](zconn, "/beamer/mux_ring", bucketMap, ring.DecodeHistoryEntries, log)
		idRepl = replicate.New[uint32](zconn, "/beamer/id", idMap, ring.DecodePlainEntries, log)
		go hashRepl.Run(ctx)
		go idRepl.Run(ctx)
	} else {
		// Replication disabled: maps stay local, driven only by operator
		// assign commands, per spec §6's "ZK empty disables replication".
		hashRepl = replicate.New[ring.HistoryEntry](nil, "/beamer/mux_ring", bucketMap, ring.DecodeHistoryEntries, log)
		idRepl = replicate.New[uint32](nil, "/beamer/id", idMap, ring.DecodePlainEntries, log)
	}

	var dispatcherOpts []mux.Option
	if opts.Stateful {
		shards := make([]*statetrack.StateTrack, opts.Shards)
		capacity := opts.StatesPerShard()
		for i := range shards {
			shards[i] = statetrack.New(capacity, statetrack.IdleTimeout)
		}
		dispatcherOpts = append(dispatcherOpts, mux.WithStateTrack(shards), mux.WithDaisyChain(opts.DaisyChain))
	}

	d := mux.New(vip, hash, hashRepl, bucketMap, idRepl, idMap, dispatcherOpts...)

	log.Verbosef("beamer-mux: ready (vip=%s ring_size=%d stateful=%v zk=%q)\n", opts.VIP, ringSize, opts.Stateful, opts.ZK)

	runOperatorLoop(ctx, d, log)
}

func parseVIP(s string) (uint32, error) {
	fields := strings.Split(s, ".")
	if len(fields) != 4 {
		return 0, fmt.Errorf("vip %q is not a dotted-quad IPv4 address", s)
	}
	var v uint32
	for _, f := range fields {
		var octet uint32
		if _, err := fmt.Sscanf(f, "%d", &octet); err != nil || octet > 255 {
			return 0, fmt.Errorf("vip %q is not a dotted-quad IPv4 address", s)
		}
		v = v<<8 | octet
	}
	return v, nil
}

// drainZKEvents logs session state transitions (connected/disconnected);
// the replicator itself reacts only to the per-path watch channels it
// requests explicitly, not this session-wide event feed.
func drainZKEvents(ctx context.Context, events <-chan zk.Event, log *muxlog.Logger) {
	for {
		select {
		case <-ctx.Done():
			return
		case ev, ok := <-events:
			if !ok {
				return
			}
			log.Verbosef("zk session event: %v\n", ev.State)
		}
	}
}

// runOperatorLoop reads "<handler> <args...>" lines from stdin, matching
// beamermux.cc's write/read handler dispatch (add_handlers: assign, dump,
// gen), until ctx is cancelled or stdin closes.
func runOperatorLoop(ctx context.Context, d *mux.Dispatcher, log *muxlog.Logger) {
	lines := make(chan string)
	go func() {
		defer close(lines)
		scanner := bufio.NewScanner(os.Stdin)
		for scanner.Scan() {
			lines <- scanner.Text()
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return
		case line, ok := <-lines:
			if !ok {
				return
			}
			handleOperatorLine(d, log, line)
		}
	}
}

func handleOperatorLine(d *mux.Dispatcher, log *muxlog.Logger, line string) {
	fields := strings.SplitN(strings.TrimSpace(line), " ", 2)
	if len(fields) == 0 || fields[0] == "" {
		return
	}
	handler := fields[0]
	var arg string
	if len(fields) == 2 {
		arg = fields[1]
	}

	now := uint32(time.Now().Unix())
	switch handler {
	case "assign":
		if err := d.Assign(arg, now); err != nil {
			log.Errorf("assign: %v\n", err)
		}
	case "assign_id":
		if err := d.AssignID(arg, now); err != nil {
			log.Errorf("assign_id: %v\n", err)
		}
	case "dump":
		dir := arg
		if dir == "" {
			dir = "."
		}
		if err := d.Dump(dir); err != nil {
			log.Errorf("dump: %v\n", err)
		}
	case "gen":
		fmt.Println(d.Gen())
	default:
		log.Errorf("unknown handler %q\n", handler)
	}
}
