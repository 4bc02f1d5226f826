// Package config holds the Mux element's recognized options (spec §6): ZK,
// RING_SIZE and MAX_STATES. The teacher carries no flag/viper layer of its
// own — its "configuration" is the UAPI key=value wire protocol — so this
// repo's binary (cmd/beamer-mux) populates Options with the standard
// library's flag package, matching the teacher's cmd/ binaries' preference
// for stdlib flag over a third-party config framework.
package config

import (
	"flag"
	"fmt"
)

// MaxRingSize is 2^23, the upper bound spec §6 places on RING_SIZE.
const MaxRingSize = 1 << 23

// Options is the Mux element's full set of recognized configuration keys.
type Options struct {
	// ZK is the coordination-service connect string. Empty disables
	// replication: the Mux then runs off a local, operator-assigned ring
	// of size RingSize only.
	ZK string

	// RingSize is the local ring size used when ZK is empty. Bounded to
	// [0, 2^23].
	RingSize int

	// MaxStates is the stateful Mux's total state-table capacity across
	// all CPUs; must be > 0 when the stateful variant is selected, unused
	// otherwise.
	MaxStates int

	// Stateful selects the stateful Mux variant (component H wired in).
	Stateful bool

	// DaisyChain enables the stateful Mux's daisy-chain encapsulation
	// variant; meaningless unless Stateful is set.
	DaisyChain bool

	// VIP is the virtual service address packets are expected to arrive
	// addressed to.
	VIP string

	// Shards is the worker count: one StateTrack/goroutine shard per
	// entry when Stateful is set.
	Shards int
}

// RegisterFlags binds fs's flags into o, using the defaults from spec §6.
func RegisterFlags(fs *flag.FlagSet, o *Options) {
	fs.StringVar(&o.ZK, "zk", "", "coordination-service connect string; empty disables replication")
	fs.IntVar(&o.RingSize, "ring-size", 1, "local ring size when -zk is empty, bounded to [0, 2^23]")
	fs.IntVar(&o.MaxStates, "max-states", 0, "total state-table capacity across all CPUs (stateful only, must be > 0)")
	fs.BoolVar(&o.Stateful, "stateful", false, "enable the stateful Mux variant (per-flow DIP pinning)")
	fs.BoolVar(&o.DaisyChain, "daisy-chain", false, "stateful only: GG-encapsulate pinned flows whose DIP has drifted from the bucket's current assignment")
	fs.StringVar(&o.VIP, "vip", "", "virtual service address packets arrive addressed to")
	fs.IntVar(&o.Shards, "shards", 1, "worker/CPU shard count")
}

// Validate checks the bounds spec §6/§7 place on each option, returning a
// Config error (spec §7's "malformed options, missing mandatory fields,
// invalid ranges" kind) on the first violation. The embedding binary must
// treat a non-nil return as an initialization failure and never start the
// element, per spec §7.
func (o Options) Validate() error {
	if o.VIP == "" {
		return fmt.Errorf("config: vip is required")
	}
	if o.RingSize < 0 || o.RingSize > MaxRingSize {
		return fmt.Errorf("config: ring-size %d out of bounds [0, %d]", o.RingSize, MaxRingSize)
	}
	if o.Stateful && o.MaxStates <= 0 {
		return fmt.Errorf("config: max-states must be > 0 for the stateful Mux, got %d", o.MaxStates)
	}
	if o.Shards <= 0 {
		return fmt.Errorf("config: shards must be > 0, got %d", o.Shards)
	}
	return nil
}

// StatesPerShard splits MaxStates evenly across Shards, per spec §4.H's
// "fixed capacity per CPU = MAX_STATES / cpu_count".
func (o Options) StatesPerShard() int {
	return o.MaxStates / o.Shards
}
