// Package sync implements the offline-first synchronization engine: the
// capability gate, the push orchestrator, the pull reconciler and the
// coordinator driving them.
package sync

// CapabilitySource exposes the observable account state the gate decides
// on. Implementations are fed from the auth and billing layers.
type CapabilitySource interface {
	// AccountValid reports whether the device holds a usable account session.
	AccountValid() bool
	// Sandboxed reports whether the account runs in an isolated trial mode
	// that must not exchange data with the real backend.
	Sandboxed() bool
	// Entitled reports whether the current plan includes multi-device sync.
	Entitled() bool
}

// Gate decides per operation whether sync traffic is allowed. Receiving and
// pushing are asymmetric: a lapsed plan still downloads changes made by
// other devices but stops uploading its own. Decisions are evaluated fresh
// on every call, never cached.
type Gate struct {
	src CapabilitySource
}

func NewGate(src CapabilitySource) *Gate {
	return &Gate{src: src}
}

// CanReceive reports whether pull traffic is allowed.
func (g *Gate) CanReceive() bool {
	return g.src.AccountValid() && !g.src.Sandboxed()
}

// CanPush reports whether push traffic is allowed. Pushing requires
// everything receiving does, plus an entitled plan.
func (g *Gate) CanPush() bool {
	return g.CanReceive() && g.src.Entitled()
}
