//go:build notekernel_debug

package kernel

import "time"

// settle is a deterministic-testing aid, not a correctness mechanism: it
// gives the per-request cancellation token's resolution a brief window to
// win the race against an in-process mock REPL that would otherwise
// resolve Ok essentially simultaneously (spec §5, "the interleaving
// hazard"). It only exists in builds tagged notekernel_debug.
func settle() {
	time.Sleep(4 * time.Microsecond)
}
