// Package muxassert gives coordination-fatal conditions (spec §7) a single
// throat to choke: an invariant violation here means the replicator's
// session or the controller's publication protocol is corrupted, and
// silent degradation of a load balancer is worse than a crash and restart.
// This is the Go-idiomatic stand-in for the original's C assert(), and for
// the teacher's own panics on invariant violations (tun.go's
// `panic("Failed to parse endpoint")`).
package muxassert

import "fmt"

// Assertf panics with a formatted message if cond is false. It is reserved
// for conditions the spec marks coordination-fatal or otherwise impossible
// under correct controller/replica behavior — never for ordinary,
// recoverable errors.
func Assertf(cond bool, format string, args ...interface{}) {
	if !cond {
		panic(fmt.Sprintf(format, args...))
	}
}
