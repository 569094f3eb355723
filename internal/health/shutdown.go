package health

import "sync/atomic"

// ready gates the readiness probe. It starts true and is flipped off at
// the beginning of graceful shutdown so load balancers drain the
// instance before in-flight requests finish.
var ready atomic.Int32

func init() {
	ready.Store(1)
}

// SetReady toggles the readiness gate.
func SetReady(v bool) {
	if v {
		ready.Store(1)
		return
	}
	ready.Store(0)
}

// IsReady reports whether the instance accepts traffic.
func IsReady() bool {
	return ready.Load() == 1
}
